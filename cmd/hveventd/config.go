package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/caen-go/caenlibs/pkg/caenhv"
	"github.com/caen-go/caenlibs/pkg/caenhv/logging"
)

const defaultConfigFile = "hveventd.toml"

// Subscription is one event registration applied at startup. Scope is
// "system", "board" or "channel"; Slot and Channel are read for the
// scopes that address them.
type Subscription struct {
	Scope   string   `toml:"scope" json:"scope"`
	Slot    uint16   `toml:"slot" json:"slot,omitempty"`
	Channel uint16   `toml:"channel" json:"channel,omitempty"`
	Params  []string `toml:"params" json:"params"`
}

func (s Subscription) validate() error {
	switch s.Scope {
	case "system", "board", "channel":
	default:
		return fmt.Errorf("subscription scope %q, want system, board or channel", s.Scope)
	}
	if len(s.Params) == 0 {
		return fmt.Errorf("%s subscription with no params", s.Scope)
	}
	return nil
}

// Config is the hveventd configuration file: one device, one listen
// address, and the subscriptions to fan out.
type Config struct {
	Debug bool `toml:"debug"`
	Log   struct {
		Format string `toml:"format"` // "text" or "json"
	} `toml:"log"`
	Device struct {
		System   string `toml:"system"`
		Link     string `toml:"link"`
		Arg      string `toml:"arg"`
		Username string `toml:"username"`
		Password string `toml:"password"`
	} `toml:"device"`
	Server struct {
		Addr string `toml:"addr"`
	} `toml:"server"`
	Subscriptions []Subscription `toml:"subscription"`
}

// NewConfig returns the built-in defaults used when no file is present.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.Log.Format = "text"
	cfg.Device.Link = "TCPIP"
	cfg.Server.Addr = ":8080"
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

// Validate rejects configurations the daemon cannot start from.
func (c *Config) Validate() error {
	if c.Device.System == "" {
		return fmt.Errorf("no device.system configured")
	}
	if c.Device.Arg == "" {
		return fmt.Errorf("no device.arg configured")
	}
	if len(c.Subscriptions) == 0 {
		return fmt.Errorf("no subscriptions configured, nothing to publish")
	}
	for _, s := range c.Subscriptions {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

// CommandLineArgs carries the flag values together with whether each flag
// was given, so unset flags never clobber file settings.
type CommandLineArgs struct {
	ConfigFile string

	Addr               string
	AddrSpecified      bool
	Debug              bool
	DebugSpecified     bool
	LogFormat          string
	LogFormatSpecified bool
}

// ParseCommandLineArgs reads the hveventd flags from the process
// arguments.
func ParseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	flag.StringVar(&args.ConfigFile, "config", "", "path to the configuration file")
	flag.StringVar(&args.Addr, "addr", "", "WebSocket listen address")
	flag.BoolVar(&args.Debug, "debug", false, "enable debug logging")
	flag.StringVar(&args.LogFormat, "log-format", "", "log output format, text or json")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			args.AddrSpecified = true
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
	if args.AddrSpecified {
		c.Server.Addr = args.Addr
	}
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.LogFormatSpecified {
		c.Log.Format = args.LogFormat
	}
}

// OpenDevice connects to the configured power supply.
func (c *Config) OpenDevice(log logging.Logger) (*caenhv.Device, error) {
	system, err := caenhv.ParseSystemType(c.Device.System)
	if err != nil {
		return nil, err
	}
	link, err := caenhv.ParseLinkType(c.Device.Link)
	if err != nil {
		return nil, err
	}
	opts := []caenhv.Option{caenhv.WithLogger(log)}
	if c.Device.Username != "" || c.Device.Password != "" {
		opts = append(opts, caenhv.WithCredentials(c.Device.Username, c.Device.Password))
	}
	return caenhv.Open(system, link, c.Device.Arg, opts...)
}

// ApplySubscriptions registers every configured subscription on the
// device.
func (c *Config) ApplySubscriptions(dev *caenhv.Device) error {
	for _, s := range c.Subscriptions {
		var err error
		switch s.Scope {
		case "system":
			err = dev.SubscribeSystemParams(s.Params)
		case "board":
			err = dev.SubscribeBoardParams(s.Slot, s.Params)
		case "channel":
			err = dev.SubscribeChannelParams(s.Slot, s.Channel, s.Params)
		}
		if err != nil {
			return fmt.Errorf("subscribe %s %v: %w", s.Scope, s.Params, err)
		}
	}
	return nil
}
