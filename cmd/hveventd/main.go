// Command hveventd bridges the CAEN HV event stream to WebSocket
// clients. It connects to one power supply through the native CAEN HV
// Wrapper library, registers the subscriptions from its configuration
// file, and republishes every decoded notification as a JSON frame to
// all connected clients.
//
//	hveventd -config hveventd.toml
//
// Clients connect to ws://<addr>/ws and first receive a HELLO frame
// describing the watched system, then one frame per event.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caen-go/caenlibs/pkg/caenhv"
	"github.com/caen-go/caenlibs/pkg/caenhv/logging"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hveventd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := ParseCommandLineArgs()
	cfg, err := LoadConfig(args.ConfigFile)
	if err != nil {
		return err
	}
	cfg.ApplyCommandLineArgs(args)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg)

	dev, err := cfg.OpenDevice(logging.New(nil))
	if err != nil {
		return err
	}
	slog.Info("device opened", "system", dev.SystemType().String(),
		"link", dev.LinkType().String(), "arg", dev.Arg(), "handle", dev.Handle())

	if err := cfg.ApplySubscriptions(dev); err != nil {
		closeDevice(dev)
		return err
	}
	slog.Info("subscriptions registered", "count", len(cfg.Subscriptions))

	hello, err := buildHello(dev, cfg)
	if err != nil {
		closeDevice(dev)
		return err
	}
	h := newHub(hello)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 2)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr)
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errc <- fmt.Errorf("serve: %w", serr)
		}
	}()
	go func() {
		errc <- runEventLoop(ctx, dev, h)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case runErr = <-errc:
	}
	stop()

	// Close the device first: the event loop is blocked in a native read
	// and only a dead stream lets it return.
	closeDevice(dev)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("server shutdown failed", "err", serr)
	}
	h.CloseAll()

	return runErr
}

func closeDevice(dev *caenhv.Device) {
	if !dev.Opened() {
		return
	}
	if err := dev.Close(); err != nil {
		slog.Warn("device close failed", "err", err)
	}
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
