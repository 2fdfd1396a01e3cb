package types

import "time"

// Config holds the configuration for the watcher
type Config struct {
	PollInterval       time.Duration
	NotifyOnEveryCheck bool
	NotifyOnChange     bool
	HeadlessDefault    bool
	WebhookURL         string

	APIPort  string
	LogLevel string

	ConfigPath  string
	StatePath   string
	StoragePath string
	DebugDir    string

	ChromePath         string
	UserAgent          string
	NavigationTimeout  time.Duration
	SettleDelay        time.Duration
	PostConsentWait    time.Duration
	CookieClickTimeout time.Duration
	WebhookTimeout     time.Duration

	// ChangeThreshold is the minimum absolute difference, in minor units,
	// reported as a price change.
	ChangeThreshold int64

	Items []Item
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:       30 * time.Minute,
		NotifyOnEveryCheck: true,
		NotifyOnChange:     true,
		HeadlessDefault:    true,
		APIPort:            "8080",
		LogLevel:           "info",
		ConfigPath:         "config.json",
		StatePath:          "state.json",
		StoragePath:        "storageState.json",
		DebugDir:           ".",
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		NavigationTimeout:  60 * time.Second,
		SettleDelay:        1200 * time.Millisecond,
		PostConsentWait:    8 * time.Second,
		CookieClickTimeout: 1200 * time.Millisecond,
		WebhookTimeout:     15 * time.Second,
		ChangeThreshold:    1,
	}
}
