package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/events"
	"github.com/pable/go-hud-stats/internal/importer"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/report"
)

var (
	importWorkers  int
	importFailFast bool
	importFast     bool
	importForce    bool
)

var importCmd = &cobra.Command{
	Use:   "import <file-or-dir>...",
	Short: "Import hand-history files",
	Long: `Parse hand-history files, store every hand with its derived statistics and
update the HUD cache. Directories are walked; .gz, .bz2 and .zst archives are
read transparently. Files imported before are skipped unless --force is set.

Hands that fail to parse are counted and reported; the rest of the file is
still imported. Hands with inconsistent data are stored but kept out of the
HUD cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVarP(&importWorkers, "workers", "w", 0, "files imported in parallel (env HUD_IMPORT_WORKERS)")
	importCmd.Flags().BoolVar(&importFailFast, "fail-fast", false, "stop at the first file with an error (env HUD_FAIL_FAST)")
	importCmd.Flags().BoolVar(&importFast, "fast", false, "rebuild the HUD cache once at the end instead of per hand (env HUD_FAST_STORE_HUDCACHE)")
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false, "re-read files imported before")
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := importer.Collect(args)
	if err != nil {
		return fmt.Errorf("collect files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No hand-history files found.")
		return nil
	}

	cfg := appCfg.Import
	if importWorkers > 0 {
		cfg.Workers = importWorkers
	}
	if cmd.Flags().Changed("fail-fast") {
		cfg.FailFast = importFailFast
	}
	if cmd.Flags().Changed("fast") {
		cfg.FastStoreHudCache = importFast
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	pub, err := eventPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	imp := importer.New(db, cache.NewAggregator(db), parser.NewRegistry(), cfg,
		importer.WithPublisher(pub), importer.WithForce(importForce))

	fmt.Fprintf(os.Stdout, "Importing %d file(s) for %s...\n\n", len(files), siteName)
	batch, runErr := imp.Run(cmd.Context(), siteName, files)
	if batch != nil {
		report.PrintBatch(os.Stdout, batch)
		if err := imp.PublishBatch(cmd.Context(), batch); err != nil {
			log.Warn().Err(err).Msg("event_publish_failed")
		}
	}
	if errors.Is(runErr, importer.ErrFailFast) {
		return fmt.Errorf("import stopped: %w", runErr)
	}
	return runErr
}

// eventPublisher returns the Kafka publisher when brokers are configured
// and a no-op otherwise.
func eventPublisher() (events.Publisher, error) {
	if len(appCfg.Events.KafkaBrokers) == 0 {
		return events.Nop{}, nil
	}
	k, err := events.NewKafka(appCfg.Events.KafkaBrokers, appCfg.Events.KafkaTopic)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return k, nil
}
