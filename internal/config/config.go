// Package config loads hudstats settings from the environment. Command-line
// flags override these values in cmd/.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config groups every configuration section used by the CLI.
type Config struct {
	Log     LogConfig
	Import  ImportConfig
	HUD     HUDConfig
	Storage StorageConfig
	Server  ServerConfig
	Events  EventsConfig
	Analyze AnalyzeConfig
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"true"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
}

// ImportConfig controls the batch importer.
type ImportConfig struct {
	Workers           int           `env:"HUD_IMPORT_WORKERS" envDefault:"4"`
	FailFast          bool          `env:"HUD_FAIL_FAST" envDefault:"false"`
	FastStoreHudCache bool          `env:"HUD_FAST_STORE_HUDCACHE" envDefault:"false"`
	SessionGap        time.Duration `env:"HUD_SESSION_GAP" envDefault:"30m"`
	DefaultSite       string        `env:"HUD_DEFAULT_SITE" envDefault:"winamax"`
	WatchInterval     time.Duration `env:"HUD_WATCH_INTERVAL" envDefault:"10s"`
}

// HUDConfig selects which cache buckets feed a HUD display.
type HUDConfig struct {
	Style    string   `env:"HUD_STYLE" envDefault:"A"`
	Days     int      `env:"HUD_DAYS" envDefault:"90"`
	AggLevel string   `env:"HUD_AGG_LEVEL" envDefault:"stakes"`
	BBMult   float64  `env:"HUD_AGG_BB_MULT" envDefault:"1"`
	Stats    []string `env:"HUD_STATS" envSeparator:"," envDefault:"n,vpip,pfr,three_B,wtsd,wmsd,agg_fact,cbet,steal"`
}

// StorageConfig names the database: a SQLite path or a postgres:// URL.
// Empty keeps the CLI default.
type StorageConfig struct {
	DB string `env:"HUD_DB"`
}

type ServerConfig struct {
	Addr string `env:"HUD_HTTP_ADDR" envDefault:":8080"`
}

// EventsConfig configures the optional Kafka publisher. An empty broker
// list disables it.
type EventsConfig struct {
	KafkaBrokers []string `env:"HUD_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"HUD_KAFKA_TOPIC" envDefault:"hudstats.hands"`
}

type AnalyzeConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY"`
	Model  string `env:"HUD_ANALYZE_MODEL" envDefault:"claude-haiku-4-5-20251001"`
}

// Load parses every section and validates the values that have a closed set.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.HUD.validate(); err != nil {
		return Config{}, err
	}
	if cfg.Import.Workers < 1 {
		cfg.Import.Workers = 1
	}
	return cfg, nil
}

func (h *HUDConfig) validate() error {
	h.Style = strings.ToUpper(strings.TrimSpace(h.Style))
	switch h.Style {
	case "A", "T", "S":
	default:
		return fmt.Errorf("HUD_STYLE %q: want A, T or S", h.Style)
	}
	h.AggLevel = strings.ToLower(strings.TrimSpace(h.AggLevel))
	switch h.AggLevel {
	case "exact", "stakes", "category":
	default:
		return fmt.Errorf("HUD_AGG_LEVEL %q: want exact, stakes or category", h.AggLevel)
	}
	if h.Days < 0 {
		return fmt.Errorf("HUD_DAYS must not be negative, got %d", h.Days)
	}
	if h.BBMult < 1 {
		h.BBMult = 1
	}
	return nil
}
