package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HUD.Style != "A" {
		t.Fatalf("Style = %q, want A", cfg.HUD.Style)
	}
	if cfg.HUD.Days != 90 {
		t.Fatalf("Days = %d, want 90", cfg.HUD.Days)
	}
	if cfg.Import.SessionGap != 30*time.Minute {
		t.Fatalf("SessionGap = %v, want 30m", cfg.Import.SessionGap)
	}
	if cfg.Import.DefaultSite != "winamax" {
		t.Fatalf("DefaultSite = %q", cfg.Import.DefaultSite)
	}
	if len(cfg.Events.KafkaBrokers) != 0 {
		t.Fatalf("KafkaBrokers = %v, want none", cfg.Events.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HUD_STYLE", "s")
	t.Setenv("HUD_AGG_LEVEL", "Exact")
	t.Setenv("HUD_IMPORT_WORKERS", "0")
	t.Setenv("HUD_STATS", "vpip,pfr_1")
	t.Setenv("HUD_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HUD.Style != "S" || cfg.HUD.AggLevel != "exact" {
		t.Fatalf("unexpected hud config: %+v", cfg.HUD)
	}
	if cfg.Import.Workers != 1 {
		t.Fatalf("Workers = %d, want clamp to 1", cfg.Import.Workers)
	}
	if len(cfg.HUD.Stats) != 2 || cfg.HUD.Stats[1] != "pfr_1" {
		t.Fatalf("Stats = %v", cfg.HUD.Stats)
	}
	if len(cfg.Events.KafkaBrokers) != 2 {
		t.Fatalf("KafkaBrokers = %v", cfg.Events.KafkaBrokers)
	}
}

func TestLoadRejectsUnknownStyle(t *testing.T) {
	t.Setenv("HUD_STYLE", "Q")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestLoadStorageAndAnalyze(t *testing.T) {
	t.Setenv("HUD_DB", "postgres://hud@localhost/hud")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.DB != "postgres://hud@localhost/hud" {
		t.Fatalf("Storage.DB = %q", cfg.Storage.DB)
	}
	if cfg.Analyze.APIKey != "sk-test" || cfg.Analyze.Model == "" {
		t.Fatalf("Analyze = %+v", cfg.Analyze)
	}
}
