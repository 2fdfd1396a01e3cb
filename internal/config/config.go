// Package config resolves the watcher configuration from the environment and
// the items file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"price-watcher/internal/types"
)

// File is the layout of the items file. Settings are optional and
// overridden by the environment.
type File struct {
	PollMinutes        *int         `json:"pollMinutes" yaml:"pollMinutes"`
	NotifyOnChange     *bool        `json:"notifyOnChange" yaml:"notifyOnChange"`
	NotifyOnEveryCheck *bool        `json:"notifyOnEveryCheck" yaml:"notifyOnEveryCheck"`
	Items              []types.Item `json:"items" yaml:"items"`
}

// Load builds the configuration: defaults, then the items file, then the
// environment.
func Load() (*types.Config, error) {
	cfg := types.DefaultConfig()
	cfg.ConfigPath = getEnv("CONFIG_PATH", cfg.ConfigPath)

	file, err := ReadItemsFile(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if file.PollMinutes != nil {
		cfg.PollInterval = time.Duration(*file.PollMinutes) * time.Minute
	}
	if file.NotifyOnChange != nil {
		cfg.NotifyOnChange = *file.NotifyOnChange
	}
	if file.NotifyOnEveryCheck != nil {
		cfg.NotifyOnEveryCheck = *file.NotifyOnEveryCheck
	}
	cfg.Items = file.Items

	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *types.Config) {
	if minutes := getEnvInt("POLL_MINUTES", 0); minutes > 0 {
		cfg.PollInterval = time.Duration(minutes) * time.Minute
	}
	cfg.NotifyOnEveryCheck = getEnvBool("NOTIFY_ON_EVERY_CHECK", cfg.NotifyOnEveryCheck)
	cfg.NotifyOnChange = getEnvBool("NOTIFY_ON_CHANGE", cfg.NotifyOnChange)
	cfg.HeadlessDefault = getEnvBool("HEADLESS_DEFAULT", cfg.HeadlessDefault)
	cfg.WebhookURL = getEnv("DISCORD_WEBHOOK_URL", cfg.WebhookURL)

	cfg.StatePath = getEnv("STATE_PATH", cfg.StatePath)
	cfg.StoragePath = getEnv("STORAGE_STATE_PATH", cfg.StoragePath)
	cfg.DebugDir = getEnv("DEBUG_DIR", cfg.DebugDir)
	cfg.ChromePath = getEnv("CHROME_PATH", cfg.ChromePath)
	cfg.ChangeThreshold = getEnvInt64("CHANGE_THRESHOLD_MINOR", cfg.ChangeThreshold)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// ReadItemsFile parses a JSON or YAML items file, chosen by extension. A
// missing or empty file holds no items.
func ReadItemsFile(path string) (*File, error) {
	file := &File{}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return file, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return file, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, file)
	default:
		err = json.Unmarshal(raw, file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return file, nil
}

// Validate checks that values are usable. Items without a URL are allowed;
// the runner skips them.
func Validate(cfg *types.Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0")
	}
	if cfg.StatePath == "" {
		return fmt.Errorf("state path is required")
	}
	if cfg.StoragePath == "" {
		return fmt.Errorf("storage state path is required")
	}
	if cfg.ChangeThreshold < 1 {
		return fmt.Errorf("change threshold must be at least 1 minor unit")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool accepts 1/true/yes/on as true; any other set value is false
func getEnvBool(key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
