// Command hvctl is an interactive shell for CAEN high-voltage power
// supplies. It connects to one system through the native CAEN HV Wrapper
// library and drives crate, system-property, parameter and event
// operations from a readline prompt.
//
// Connection settings come from a TOML configuration file with named
// profiles, overridable per flag:
//
//	hvctl -profile lab
//	hvctl -system SY4527 -arg 192.168.0.1 -user admin -password admin
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caen-go/caenlibs/pkg/caenhv"
	"github.com/caen-go/caenlibs/pkg/caenhv/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hvctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := ParseCommandLineArgs()

	if args.Version {
		release, err := caenhv.SoftwareRelease()
		if err != nil {
			return err
		}
		fmt.Printf("CAEN HV Wrapper %s\n", release)
		return nil
	}

	cfg, err := LoadConfig(args.ConfigFile)
	if err != nil {
		return err
	}
	cfg.ApplyCommandLineArgs(args)
	setupLogging(cfg)

	prof, err := cfg.ResolveProfile(args)
	if err != nil {
		return err
	}

	dev, err := prof.Open(logging.New(nil))
	if err != nil {
		return err
	}
	defer func() {
		if dev.Opened() {
			if cerr := dev.Close(); cerr != nil {
				slog.Warn("close failed", "err", cerr)
			}
		}
	}()

	sh, err := newShell(dev, cfg.History)
	if err != nil {
		return err
	}
	return sh.Run()
}

// setupLogging installs the process-wide slog handler. The device layer
// logs through it via the logging facade.
func setupLogging(cfg *Config) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Log.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
