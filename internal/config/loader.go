package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LoadConfig loads a Config from the given path, or from the default
// search locations (home directory, then cwd) when path is empty. A
// missing config file is not an error: defaults are returned.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".redactor")
		v.SetConfigType("yaml")
	}

	v.SetDefault("generate_variations", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	setDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveConfig writes the configuration to path, defaulting to
// ~/.redactor.yaml when path is empty.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".redactor.yaml")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("placeholder", cfg.Placeholder)
	v.Set("preserve_case", cfg.PreserveCase)
	v.Set("names", cfg.Names)
	v.Set("honorifics", cfg.Honorifics)
	v.Set("generate_variations", cfg.GenerateVariations)
	v.Set("page_range", cfg.PageRange)
	v.Set("zip", cfg.Zip)
	v.Set("detector", cfg.Detector)

	return v.WriteConfigAs(path)
}
