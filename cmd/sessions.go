package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/report"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <player>",
	Short: "List a player's playing sessions",
	Long: `List the cached sessions of a player, latest first. Hands closer together
than HUD_SESSION_GAP belong to the same session.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := newHUD(db).Sessions(cmd.Context(), siteName, args[0])
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	report.PrintSessions(os.Stdout, sessions)
	return nil
}
