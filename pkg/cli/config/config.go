package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the optional TOML application configuration.
// Currently it carries extra chat prompt rules appended to the system
// prompt.
type AppConfig struct {
	Chat ChatConfig `toml:"chat"`

	path string
}

// ChatConfig holds chat answering overrides
type ChatConfig struct {
	Rules []string `toml:"rules"`
}

// Flags returns CLI flags for the app configuration file
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to TOML application configuration file",
			Sources:     cli.EnvVars("BINSIGHT_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Validate checks the loaded configuration
func (a *AppConfig) Validate() error {
	for i, rule := range a.Chat.Rules {
		if strings.TrimSpace(rule) == "" {
			return goerr.Wrap(ErrInvalidConfig, "chat rule is empty", goerr.V("index", i))
		}
	}
	return nil
}

// Configure loads and validates the configuration file when one was
// given. Without a file it returns an empty configuration.
func (a *AppConfig) Configure() (*AppConfig, error) {
	if a.path == "" {
		return a, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "app config file missing", goerr.V("path", a.path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", a.path))
	}

	if err := toml.Unmarshal(data, a); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse config file",
			goerr.V("path", a.path), goerr.V("cause", err.Error()))
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
