package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/caen-go/caenlibs/pkg/caenhv"
	"github.com/caen-go/caenlibs/pkg/caenhv/logging"
)

const defaultConfigFile = "hvctl.toml"

// Profile holds the connection settings for one power supply. System and
// Link are vendor mnemonics resolved case-insensitively, Arg is the
// endpoint for the chosen link (an IP address for TCPIP, a device path
// for serial links).
type Profile struct {
	System   string `toml:"system"`
	Link     string `toml:"link"`
	Arg      string `toml:"arg"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Config is the hvctl configuration file. Profiles are named connection
// presets selected with the -profile flag.
type Config struct {
	Debug bool `toml:"debug"`
	Log   struct {
		Format string `toml:"format"` // "text" or "json"
	} `toml:"log"`
	History  string             `toml:"history"`
	Profiles map[string]Profile `toml:"profile"`
}

// NewConfig returns the built-in defaults used when no file is present.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.Log.Format = "text"
	cfg.History = ".hvctl_history"
	cfg.Profiles = map[string]Profile{}
	return cfg
}

// LoadConfig reads the configuration with the usual precedence: an
// explicit path must exist, the default file is used when present, and
// built-in defaults apply otherwise.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	filePath := path
	if filePath == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			filePath = defaultConfigFile
		} else {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(filePath, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", filePath, err)
	}
	return cfg, nil
}

// CommandLineArgs carries the flag values together with whether each flag
// was given, so unset flags never clobber file settings.
type CommandLineArgs struct {
	ConfigFile string
	Profile    string
	Version    bool

	System            string
	SystemSpecified   bool
	Link              string
	LinkSpecified     bool
	Arg               string
	ArgSpecified      bool
	Username          string
	UsernameSpecified bool
	Password          string
	PasswordSpecified bool

	Debug              bool
	DebugSpecified     bool
	LogFormat          string
	LogFormatSpecified bool
}

// ParseCommandLineArgs reads the hvctl flags from the process arguments.
func ParseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	flag.StringVar(&args.ConfigFile, "config", "", "path to the configuration file")
	flag.StringVar(&args.Profile, "profile", "", "connection profile name from the configuration file")
	flag.BoolVar(&args.Version, "version", false, "print the native library release and exit")
	flag.StringVar(&args.System, "system", "", "system type mnemonic (SY4527, SMARTHV, ...)")
	flag.StringVar(&args.Link, "link", "", "link type mnemonic (TCPIP, USB, ...)")
	flag.StringVar(&args.Arg, "arg", "", "connection argument for the link type")
	flag.StringVar(&args.Username, "user", "", "login username")
	flag.StringVar(&args.Password, "password", "", "login password")
	flag.BoolVar(&args.Debug, "debug", false, "enable debug logging")
	flag.StringVar(&args.LogFormat, "log-format", "", "log output format, text or json")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "system":
			args.SystemSpecified = true
		case "link":
			args.LinkSpecified = true
		case "arg":
			args.ArgSpecified = true
		case "user":
			args.UsernameSpecified = true
		case "password":
			args.PasswordSpecified = true
		case "debug":
			args.DebugSpecified = true
		case "log-format":
			args.LogFormatSpecified = true
		}
	})

	return args
}

// ApplyCommandLineArgs overrides file settings with explicitly given
// flags.
func (c *Config) ApplyCommandLineArgs(args CommandLineArgs) {
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.LogFormatSpecified {
		c.Log.Format = args.LogFormat
	}
}

// ResolveProfile builds the effective connection profile: the named
// preset (or an empty base when none is selected) overridden by
// connection flags.
func (c *Config) ResolveProfile(args CommandLineArgs) (Profile, error) {
	var prof Profile
	if args.Profile != "" {
		p, ok := c.Profiles[args.Profile]
		if !ok {
			return Profile{}, fmt.Errorf("profile %q not found in configuration", args.Profile)
		}
		prof = p
	}
	if args.SystemSpecified {
		prof.System = args.System
	}
	if args.LinkSpecified {
		prof.Link = args.Link
	}
	if args.ArgSpecified {
		prof.Arg = args.Arg
	}
	if args.UsernameSpecified {
		prof.Username = args.Username
	}
	if args.PasswordSpecified {
		prof.Password = args.Password
	}
	if prof.Link == "" {
		prof.Link = "TCPIP"
	}
	if prof.System == "" {
		return Profile{}, fmt.Errorf("no system type: use -system, or -profile with a configured preset")
	}
	if prof.Arg == "" {
		return Profile{}, fmt.Errorf("no connection argument: use -arg, or -profile with a configured preset")
	}
	return prof, nil
}

// Open connects to the power supply described by the profile.
func (p Profile) Open(log logging.Logger) (*caenhv.Device, error) {
	system, err := caenhv.ParseSystemType(p.System)
	if err != nil {
		return nil, err
	}
	link, err := caenhv.ParseLinkType(p.Link)
	if err != nil {
		return nil, err
	}
	opts := []caenhv.Option{caenhv.WithLogger(log)}
	if p.Username != "" || p.Password != "" {
		opts = append(opts, caenhv.WithCredentials(p.Username, p.Password))
	}
	return caenhv.Open(system, link, p.Arg, opts...)
}
