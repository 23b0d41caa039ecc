package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/gertjaap/stratum-go/logging"
)

type Config struct {
	Network               string  `yaml:"network"`
	Testnet               bool    `yaml:"testnet"`
	StratumPort           int     `yaml:"stratumPort"`
	LogLevel              string  `yaml:"logLevel"`
	LogFile               string  `yaml:"logFile"`
	ExtraNonce1Size       int     `yaml:"extraNonce1Size"`
	ExtraNonce2Size       int     `yaml:"extraNonce2Size"`
	InitialDifficulty     float64 `yaml:"initialDifficulty"`
	RequireAddressWorkers bool    `yaml:"requireAddressWorkers"`
	IdleTimeoutSeconds    int     `yaml:"idleTimeoutSeconds"`
	MaxLineBytes          int     `yaml:"maxLineBytes"`
	MaxConnections        int     `yaml:"maxConnections"`

	// Block template source. Jobs are only produced when RPCHost is set.
	RPCHost             string `yaml:"rpcHost"`
	RPCPort             int    `yaml:"rpcPort"`
	RPCUser             string `yaml:"rpcUser"`
	RPCPass             string `yaml:"rpcPass"`
	PayoutAddress       string `yaml:"payoutAddress"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds"`
}

var Active Config

// Default returns the values used for anything config.yaml and the flags
// leave unset.
func Default() Config {
	return Config{
		Network:             "bitcoin",
		LogLevel:            "info",
		ExtraNonce1Size:     4,
		ExtraNonce2Size:     4,
		InitialDifficulty:   1,
		IdleTimeoutSeconds:  600,
		MaxLineBytes:        16 * 1024,
		PollIntervalSeconds: 1,
	}
}

// LoadConfig reads config.yaml (or config.toml when there is no yaml file)
// from the working directory and applies command line overrides into Active.
func LoadConfig() error {
	path := "config.yaml"
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat("config.toml"); err == nil {
			path = "config.toml"
		}
	}
	cfg, err := Load(path, os.Args[1:])
	if err != nil {
		return err
	}
	Active = cfg
	return nil
}

// Load reads the yaml or toml file at path (a missing file is not an error) and then
// applies args as flag overrides.
func Load(path string, args []string) (Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		logging.Warnf("No %s file found.", path)
	} else {
		defer file.Close()
		if err := decode(file, filepath.Ext(path), &cfg); err != nil {
			logging.Errorf("Failed to decode %s: %v", path, err)
			return cfg, err
		}
	}

	fs := flag.NewFlagSet("stratum-go", flag.ContinueOnError)
	net := fs.String("n", "", "Network")
	testnet := fs.Bool("testnet", false, "Testnet")
	port := fs.Int("port", 0, "Stratum listen port")
	level := fs.String("loglevel", "", "Log level (error, warn, info, debug)")
	diff := fs.Float64("diff", 0, "Initial share difficulty")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *net != "" {
		cfg.Network = *net
	}
	if *testnet {
		cfg.Testnet = true
	}
	if *port != 0 {
		cfg.StratumPort = *port
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *diff != 0 {
		cfg.InitialDifficulty = *diff
	}
	return cfg, cfg.Validate()
}

// decode reads yaml, or toml when ext is ".toml". Both formats use the yaml
// key names.
func decode(r io.Reader, ext string, cfg *Config) error {
	if strings.EqualFold(ext, ".toml") {
		tree, err := toml.LoadReader(r)
		if err != nil {
			return err
		}
		b, err := yaml.Marshal(tree.ToMap())
		if err != nil {
			return err
		}
		return yaml.Unmarshal(b, cfg)
	}
	err := yaml.NewDecoder(r).Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (c Config) Validate() error {
	switch {
	case c.ExtraNonce1Size < 1 || c.ExtraNonce1Size > 16:
		return errors.New("extraNonce1Size must be between 1 and 16")
	case c.ExtraNonce2Size < 1 || c.ExtraNonce2Size > 16:
		return errors.New("extraNonce2Size must be between 1 and 16")
	case c.InitialDifficulty <= 0:
		return errors.New("initialDifficulty must be positive")
	case c.MaxLineBytes < 512:
		return errors.New("maxLineBytes must be at least 512")
	case c.MaxConnections < 0:
		return errors.New("maxConnections must not be negative")
	case c.RPCHost != "" && c.PayoutAddress == "":
		return errors.New("payoutAddress is required when rpcHost is set")
	}
	return nil
}
