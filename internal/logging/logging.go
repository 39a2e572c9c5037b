// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pable/go-hud-stats/internal/config"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stderr
)

// Init installs the global logger. Logs go to stderr so tables printed on
// stdout stay machine-readable.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	mu.Lock()
	output = w
	mu.Unlock()

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(w).With().Timestamp().Logger()
	if n := cfg.SampleEvery; n > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(n)})
	}
	log.Logger = logger
}

// Writer returns the sink selected by Init, for adapters that need an
// io.Writer rather than a zerolog.Logger.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}
