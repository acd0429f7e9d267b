package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path on top of Defaults, then applies
// W3LOTTERY_* environment overrides. A missing file is not an error.
// The result is not validated; call Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Addr, "W3LOTTERY_SERVER_ADDR")
	setStr(&cfg.Server.GinMode, "W3LOTTERY_SERVER_GIN_MODE")
	setStr(&cfg.Server.SessionSecret, "W3LOTTERY_SERVER_SESSION_SECRET")
	setDuration(&cfg.Server.SessionTTL, "W3LOTTERY_SERVER_SESSION_TTL")
	setDuration(&cfg.Server.SessionIdle, "W3LOTTERY_SERVER_SESSION_IDLE")
	setBool(&cfg.Server.SecureCookie, "W3LOTTERY_SERVER_SECURE_COOKIE")
	setDuration(&cfg.Server.JanitorEvery, "W3LOTTERY_SERVER_JANITOR_EVERY")

	setStr(&cfg.API.BaseURL, "W3LOTTERY_API_BASE_URL")
	setDuration(&cfg.API.Timeout, "W3LOTTERY_API_TIMEOUT")
	setStr(&cfg.API.Token, "W3LOTTERY_API_TOKEN")

	setStr(&cfg.Cache.Backend, "W3LOTTERY_CACHE_BACKEND")
	setStr(&cfg.Cache.Prefix, "W3LOTTERY_CACHE_PREFIX")
	setDuration(&cfg.Cache.SweepInterval, "W3LOTTERY_CACHE_SWEEP_INTERVAL")
	ttl := &cfg.Cache.TTL
	setDuration(&ttl.Lotteries, "W3LOTTERY_CACHE_TTL_LOTTERIES")
	setDuration(&ttl.Results, "W3LOTTERY_CACHE_TTL_RESULTS")
	setDuration(&ttl.PastDraws, "W3LOTTERY_CACHE_TTL_PAST_DRAWS")
	setDuration(&ttl.RecentWinners, "W3LOTTERY_CACHE_TTL_RECENT_WINNERS")
	setDuration(&ttl.PrizePool, "W3LOTTERY_CACHE_TTL_PRIZE_POOL")
	setDuration(&ttl.Tickets, "W3LOTTERY_CACHE_TTL_TICKETS")
	setDuration(&ttl.Types, "W3LOTTERY_CACHE_TTL_TYPES")
	setDuration(&ttl.Issues, "W3LOTTERY_CACHE_TTL_ISSUES")
	setDuration(&ttl.Wallet, "W3LOTTERY_CACHE_TTL_WALLET")
	setDuration(&ttl.User, "W3LOTTERY_CACHE_TTL_USER")

	setStr(&cfg.Redis.Addr, "W3LOTTERY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "W3LOTTERY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "W3LOTTERY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "W3LOTTERY_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "W3LOTTERY_REDIS_TLS_ENABLED")

	setBool(&cfg.Log.Verbose, "W3LOTTERY_LOG_VERBOSE")
	setBool(&cfg.Log.SystemLog, "W3LOTTERY_LOG_SYSTEM_LOG")

	setStr(&cfg.UI.Timezone, "W3LOTTERY_UI_TIMEZONE")
	setStr(&cfg.UI.DefaultLanguage, "W3LOTTERY_UI_DEFAULT_LANGUAGE")
	setInt(&cfg.UI.PageSize, "W3LOTTERY_UI_PAGE_SIZE")
}

// Each helper only touches the target when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
