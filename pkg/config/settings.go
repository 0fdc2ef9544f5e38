// Package config loads engine settings from a config file, environment
// variables, and defaults, in that priority order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings holds everything the CLI threads into the engine packages.
type Settings struct {
	// SeverityThreshold below which detected conflicts are discarded.
	SeverityThreshold float64 `mapstructure:"severity_threshold"`

	// Provider and Model select the extraction LLM.
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	// APIKeyEnv names the environment variable holding the provider key.
	APIKeyEnv string `mapstructure:"api_key_env"`

	// RequestsPerSecond caps extraction API calls.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// DataDir holds corpora; OutputDir receives artifacts.
	DataDir   string `mapstructure:"data_dir"`
	OutputDir string `mapstructure:"output_dir"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		SeverityThreshold: 0.3,
		Provider:          "openai",
		APIKeyEnv:         "OPENAI_API_KEY",
		RequestsPerSecond: 1,
		DataDir:           "data",
		OutputDir:         "outputs",
	}
}

// Load reads settings from the given config file (or, when empty, from
// $HOME/.lextime/config.yaml if present), layered over environment variables
// prefixed LEXTIME_ and the defaults. A missing config file is not an error.
func Load(cfgFile string) (Settings, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("severity_threshold", defaults.SeverityThreshold)
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("api_key_env", defaults.APIKeyEnv)
	v.SetDefault("requests_per_second", defaults.RequestsPerSecond)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("output_dir", defaults.OutputDir)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".lextime"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEXTIME")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return Settings{}, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing config: %w", err)
	}
	if s.SeverityThreshold < 0 || s.SeverityThreshold > 1 {
		return Settings{}, fmt.Errorf("severity_threshold %.2f out of range [0, 1]", s.SeverityThreshold)
	}
	return s, nil
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (s Settings) APIKey() string {
	if s.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(s.APIKeyEnv)
}
