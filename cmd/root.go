package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/config"
	"github.com/pable/go-hud-stats/internal/logging"
	"github.com/pable/go-hud-stats/internal/storage"
)

var (
	dbPath   string
	siteName string
	appCfg   config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hudstats",
	Short: "Poker hand-history HUD statistics",
	Long: `Import poker hand histories, derive per-player statistics for every hand
and keep a cache of summed statistics for a heads-up display.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".hudstats", "hud.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "SQLite path or postgres:// URL (env HUD_DB)")
	rootCmd.PersistentFlags().StringVar(&siteName, "site", "", "poker site of the hand histories (env HUD_DEFAULT_SITE)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tourneyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(regressCmd)
	rootCmd.AddCommand(anonymiseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig reads the environment once; explicit flags win over it.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	appCfg = cfg
	logging.Init(appCfg.Log)

	if !cmd.Flags().Changed("db") && appCfg.Storage.DB != "" {
		dbPath = appCfg.Storage.DB
	}
	if siteName == "" {
		siteName = appCfg.Import.DefaultSite
	}
	return nil
}

// openStore opens the configured database, creating the directory of a
// SQLite file if needed.
func openStore() (*storage.DB, error) {
	if !strings.Contains(dbPath, "://") && dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// hudFlags are the bucket-selection flags shared by stats, trend and
// analyze.
type hudFlags struct {
	stats     string
	style     string
	agg       string
	positions string
	minSeats  int
	maxSeats  int
}

func (f *hudFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stats, "stats", "", "comma-separated statistic names (env HUD_STATS)")
	cmd.Flags().StringVar(&f.style, "style", "", "A (all time), T (last HUD_DAYS days) or S (current session)")
	cmd.Flags().StringVar(&f.agg, "agg", "", "game aggregation: exact, stakes or category")
	cmd.Flags().StringVar(&f.positions, "pos", "", "comma-separated position classes: B,S,D,C,M,E")
	cmd.Flags().IntVar(&f.minSeats, "min-seats", 0, "only tables with at least this many seated players")
	cmd.Flags().IntVar(&f.maxSeats, "max-seats", 0, "only tables with at most this many seated players")
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// splitList splits a comma-separated flag, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func styleFlag(s string) (cache.Style, error) {
	if s == "" {
		return "", nil
	}
	return cache.ParseStyle(strings.ToUpper(s))
}

func aggFlag(s string) (cache.AggLevel, error) {
	if s == "" {
		return "", nil
	}
	return cache.ParseAggLevel(strings.ToLower(s))
}
