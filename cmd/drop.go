package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/cache"
)

var (
	dropForce  bool
	dropImport string
)

// dropCmd deletes the hand database, or one import's hands.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the hand database or one import",
	Long: `Permanently delete the SQLite hand database. All stored hands will be lost;
re-import your hand histories afterwards to rebuild.

With --import <id>, only the hands stored by that import run are removed and the
HUD cache and sessions are rebuilt. Import ids are listed by 'hudstats list imports'.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().StringVar(&dropImport, "import", "", "delete only the hands of this import")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if dropImport != "" {
		return dropOneImport(cmd)
	}
	if strings.Contains(dbPath, "://") {
		return fmt.Errorf("drop only deletes SQLite files; drop the postgres database with its own tools")
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropOneImport(cmd *cobra.Command) error {
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete the hands of import %s\n", dropImport)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	players, err := db.DeleteImport(cmd.Context(), dropImport)
	if err != nil {
		return fmt.Errorf("delete import: %w", err)
	}
	if err := cache.NewAggregator(db).Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild hudcache: %w", err)
	}
	if err := db.RecomputeSessions(cmd.Context(), players, appCfg.Import.SessionGap); err != nil {
		return fmt.Errorf("recompute sessions: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted import %s (%d players affected)\n", dropImport, len(players))
	return nil
}
