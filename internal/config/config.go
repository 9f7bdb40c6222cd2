// Package config loads every tunable the bot consumes from the
// environment, with .env support for local runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// TikTokHomepage is the page the browser session lands on for cookie
// application and feed scrolling.
const TikTokHomepage = "https://www.tiktok.com/"

// Config holds the full configuration surface. Defaults mirror the
// tunables the bot has always run with.
type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`

	CookiesFile         string `env:"TIKTOK_COOKIES_FILE,default=tiktok_cookies.json"`
	NetscapeCookiesFile string `env:"TIKTOK_NETSCAPE_COOKIES_FILE,default=tiktok_cookies.txt"`
	OutputDir           string `env:"OUTPUT_PATH"`

	QueueCapacity   int `env:"VIDEO_QUEUE_CAPACITY,default=3"`
	CacheCapacity   int `env:"VIDEO_CACHE_CAPACITY,default=3"`
	HistoryCapacity int `env:"HISTORY_MAX,default=3"`
	SeenWindow      int `env:"SEEN_URLS_MAX,default=250"`

	DiskQuotaMB        int64 `env:"OUTPUT_DISK_QUOTA_MB,default=1024"`
	DiskReserveMB      int64 `env:"OUTPUT_DISK_RESERVE_MB,default=2048"`
	JanitorIntervalSec int   `env:"JANITOR_INTERVAL_SEC,default=180"`

	RestartPreloads int   `env:"BROWSER_RESTART_PRELOADS,default=200"`
	MemSoftLimitMB  int64 `env:"MEM_SOFT_LIMIT_MB,default=1200"`

	Extras env.EnvSet
}

// Load reads .env (if present) and unmarshals the environment into a
// Config. A missing .env is not an error; a missing bot token is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	extras, err := env.UnmarshalFromEnviron(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.Extras = extras

	if cfg.OutputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.OutputDir = filepath.Join(wd, "downloads")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a running bot cannot do without.
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	if c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is not set")
	}
	if c.QueueCapacity < 1 || c.CacheCapacity < 1 || c.HistoryCapacity < 1 {
		return fmt.Errorf("queue, cache and history capacities must all be at least 1")
	}
	if c.SeenWindow < 1 {
		return fmt.Errorf("seen window must be at least 1")
	}
	return nil
}

// DiskQuotaBytes returns the tracked-directory quota in bytes.
func (c *Config) DiskQuotaBytes() int64 { return c.DiskQuotaMB * 1024 * 1024 }

// DiskReserveBytes returns the required free-space floor in bytes.
func (c *Config) DiskReserveBytes() int64 { return c.DiskReserveMB * 1024 * 1024 }
