package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const header = `# Hyprcaptions Configuration
# Changes to [subtitles] are applied to the running session without restart.
# Durations are strings like "3s" or "25s".

`

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "hyprcaptions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the user config file, creating it with defaults when missing.
func Load(logger *zap.Logger) (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath, logger)
}

func LoadFrom(configPath string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		logger.Info("no config file found, creating defaults", zap.String("path", configPath))
		if err := SaveTo(configPath, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	logger.Debug("loading configuration", zap.String("path", configPath))
	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}

	loadEnv(logger, filepath.Join(filepath.Dir(configPath), ".env"), ".env", config.General.EnvFile)
	return config, nil
}

// loadEnv loads .env files without overriding variables that are already
// set. Missing files are skipped.
func loadEnv(logger *zap.Logger, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("failed to load env file", zap.String("path", p), zap.Error(err))
			}
			continue
		}
		logger.Debug("env file loaded", zap.String("path", p))
	}
}

func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configPath, config)
}

// SaveTo writes config atomically so the watcher never sees a partial file.
func SaveTo(configPath string, config *Config) error {
	var buf bytes.Buffer
	buf.WriteString(header)
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
