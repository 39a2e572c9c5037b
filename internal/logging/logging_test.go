package logging

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/pable/go-hud-stats/internal/config"
)

func TestInitSetsLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	Init(config.LogConfig{Level: "DEBUG"})
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Fatalf("GlobalLevel = %v, want debug", got)
	}

	Init(config.LogConfig{Level: "nonsense"})
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("GlobalLevel = %v, want info fallback", got)
	}
	if Writer() == nil {
		t.Fatal("Writer() returned nil")
	}
}
