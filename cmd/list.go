package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/report"
)

var (
	listPlayer   string
	listLimit    int
	listMinHands int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored hands, players or imports",
}

var listHandsCmd = &cobra.Command{
	Use:   "hands",
	Short: "List the most recent hands",
	Args:  cobra.NoArgs,
	RunE:  runListHands,
}

var listPlayersCmd = &cobra.Command{
	Use:   "players",
	Short: "List players by hands played",
	Args:  cobra.NoArgs,
	RunE:  runListPlayers,
}

var listImportsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List import runs",
	Args:  cobra.NoArgs,
	RunE:  runListImports,
}

func init() {
	listHandsCmd.Flags().StringVar(&listPlayer, "player", "", "only hands this player sat in")
	listHandsCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum hands to list")
	listPlayersCmd.Flags().IntVar(&listMinHands, "min-hands", 1, "hide players with fewer hands")

	listCmd.AddCommand(listHandsCmd)
	listCmd.AddCommand(listPlayersCmd)
	listCmd.AddCommand(listImportsCmd)
}

func runListHands(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	hands, err := db.ListHands(cmd.Context(), listPlayer, listLimit)
	if err != nil {
		return fmt.Errorf("list hands: %w", err)
	}
	if len(hands) == 0 {
		fmt.Fprintln(os.Stdout, "No hands stored yet. Run 'hudstats import <file>' to add some.")
		return nil
	}
	report.PrintHands(os.Stdout, hands)
	return nil
}

func runListPlayers(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	players, err := db.ListPlayers(cmd.Context(), listMinHands)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	if len(players) == 0 {
		fmt.Fprintln(os.Stdout, "No players stored yet.")
		return nil
	}
	report.PrintPlayers(os.Stdout, players)
	return nil
}

func runListImports(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	imports, err := db.ListImports(cmd.Context())
	if err != nil {
		return fmt.Errorf("list imports: %w", err)
	}
	if len(imports) == 0 {
		fmt.Fprintln(os.Stdout, "No imports yet.")
		return nil
	}
	report.PrintImports(os.Stdout, imports)
	return nil
}
