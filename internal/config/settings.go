package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Settings configures the contraconf tool itself (not the project). Values
// come from CONTRACONF_* variables; command-line flags override them.
type Settings struct {
	ConfigFile  string `env:"CONTRACONF_CONFIG"`
	Network     string `env:"CONTRACONF_NETWORK"`
	EnvFile     string `env:"CONTRACONF_ENV_FILE" envDefault:".env"`
	SecretsFile string `env:"CONTRACONF_SECRETS_FILE"`
	LogLevel    string `env:"CONTRACONF_LOG_LEVEL" envDefault:"warn"`
	LogFormat   string `env:"CONTRACONF_LOG_FORMAT" envDefault:"text"`
	MetricsFile string `env:"CONTRACONF_METRICS_FILE"`
}

// LoadSettings parses Settings from the process environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("error getting env settings: %w", err)
	}
	if s.SecretsFile == "" {
		s.SecretsFile = DefaultSecretsFile()
	}
	return s, nil
}

// DefaultSecretsFile is ~/.contraconf/secrets.yaml.
func DefaultSecretsFile() string {
	return filepath.Join(HomeDir(), "secrets.yaml")
}

// HomeDir is the per-user contraconf directory.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".contraconf"
	}
	return filepath.Join(home, ".contraconf")
}
