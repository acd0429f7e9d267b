// Package config defines the portal configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields come from a TOML file and are then
// overridden by W3LOTTERY_* environment variables.
type Config struct {
	Server ServerConfig `toml:"server"`
	API    APIConfig    `toml:"api"`
	Cache  CacheConfig  `toml:"cache"`
	Redis  RedisConfig  `toml:"redis"`
	Log    LogConfig    `toml:"log"`
	UI     UIConfig     `toml:"ui"`
}

// ServerConfig controls the HTTP listener and browser sessions.
type ServerConfig struct {
	Addr          string   `toml:"addr"`
	GinMode       string   `toml:"gin_mode"`
	SessionSecret string   `toml:"session_secret"`
	SessionTTL    duration `toml:"session_ttl"`
	SessionIdle   duration `toml:"session_idle"`
	JanitorEvery  duration `toml:"janitor_every"`
	SecureCookie  bool     `toml:"secure_cookie"`
}

// APIConfig points at the external lottery/KYC backend.
type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
	Token   string   `toml:"token"`
}

// CacheConfig selects the cache backend and the per-resource TTLs.
type CacheConfig struct {
	Backend       string    `toml:"backend"`
	Prefix        string    `toml:"prefix"`
	SweepInterval duration  `toml:"sweep_interval"`
	TTL           TTLConfig `toml:"ttl"`
}

// TTLConfig holds one expiry per cached resource.
type TTLConfig struct {
	Lotteries     duration `toml:"lotteries"`
	Results       duration `toml:"results"`
	PastDraws     duration `toml:"past_draws"`
	RecentWinners duration `toml:"recent_winners"`
	PrizePool     duration `toml:"prize_pool"`
	Tickets       duration `toml:"tickets"`
	Types         duration `toml:"types"`
	Issues        duration `toml:"issues"`
	Wallet        duration `toml:"wallet"`
	User          duration `toml:"user"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// LogConfig configures google/logger.
type LogConfig struct {
	Verbose   bool `toml:"verbose"`
	SystemLog bool `toml:"system_log"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Timezone        string `toml:"timezone"`
	DefaultLanguage string `toml:"default_language"`
	PageSize        int    `toml:"page_size"`
}

// duration wraps time.Duration so it can be decoded from TOML strings like "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with every field set to a usable value.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			GinMode:      "release",
			SessionTTL:   duration{24 * time.Hour},
			SessionIdle:  duration{time.Hour},
			JanitorEvery: duration{10 * time.Minute},
		},
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: duration{50 * time.Second},
		},
		Cache: CacheConfig{
			Backend:       "memory",
			Prefix:        "",
			SweepInterval: duration{time.Minute},
			TTL: TTLConfig{
				Lotteries:     duration{5 * time.Minute},
				Results:       duration{10 * time.Minute},
				PastDraws:     duration{30 * time.Minute},
				RecentWinners: duration{15 * time.Minute},
				PrizePool:     duration{5 * time.Minute},
				Tickets:       duration{2 * time.Minute},
				Types:         duration{time.Hour},
				Issues:        duration{5 * time.Minute},
				Wallet:        duration{2 * time.Hour},
				User:          duration{2 * time.Hour},
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		UI: UIConfig{
			Timezone:        "Local",
			DefaultLanguage: "en",
			PageSize:        10,
		},
	}
}

var validBackends = map[string]bool{"memory": true, "redis": true}

var validGinModes = map[string]bool{"debug": true, "release": true, "test": true}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server: addr must not be empty")
	}
	if !validGinModes[c.Server.GinMode] {
		errs = append(errs, fmt.Sprintf("server: unknown gin_mode %q (valid: debug, release, test)", c.Server.GinMode))
	}
	if len(c.Server.SessionSecret) < 16 {
		errs = append(errs, "server: session_secret must be at least 16 characters")
	}
	if c.Server.SessionTTL.Duration <= 0 {
		errs = append(errs, "server: session_ttl must be positive")
	}
	if c.Server.JanitorEvery.Duration <= 0 {
		errs = append(errs, "server: janitor_every must be positive")
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "api: base_url must not be empty")
	} else if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("api: base_url %q must start with http:// or https://", c.API.BaseURL))
	}
	if c.API.Timeout.Duration <= 0 {
		errs = append(errs, "api: timeout must be positive")
	}

	if !validBackends[c.Cache.Backend] {
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if c.Cache.SweepInterval.Duration <= 0 {
		errs = append(errs, "cache: sweep_interval must be positive")
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr is required when cache backend is redis")
	}
	for name, ttl := range c.Cache.TTL.all() {
		if ttl <= 0 {
			errs = append(errs, fmt.Sprintf("cache: ttl.%s must be positive", name))
		}
	}

	if c.UI.DefaultLanguage != "en" && c.UI.DefaultLanguage != "zh" {
		errs = append(errs, fmt.Sprintf("ui: unknown default_language %q (valid: en, zh)", c.UI.DefaultLanguage))
	}
	if _, err := time.LoadLocation(c.UI.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("ui: bad timezone %q: %v", c.UI.Timezone, err))
	}
	if c.UI.PageSize <= 0 {
		errs = append(errs, "ui: page_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (t TTLConfig) all() map[string]time.Duration {
	return map[string]time.Duration{
		"lotteries":      t.Lotteries.Duration,
		"results":        t.Results.Duration,
		"past_draws":     t.PastDraws.Duration,
		"recent_winners": t.RecentWinners.Duration,
		"prize_pool":     t.PrizePool.Duration,
		"tickets":        t.Tickets.Duration,
		"types":          t.Types.Duration,
		"issues":         t.Issues.Duration,
		"wallet":         t.Wallet.Duration,
		"user":           t.User.Duration,
	}
}
