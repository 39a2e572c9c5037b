package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/report"
	"github.com/pable/go-hud-stats/internal/tourney"
)

var tourneyCmd = &cobra.Command{
	Use:   "tourney",
	Short: "Tournament summaries",
}

var tourneyImportCmd = &cobra.Command{
	Use:   "import <summary-file>...",
	Short: "Import tournament summary files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTourneyImport,
}

var tourneyListCmd = &cobra.Command{
	Use:   "list <player>",
	Short: "List a player's tournament results",
	Args:  cobra.ExactArgs(1),
	RunE:  runTourneyList,
}

func init() {
	tourneyCmd.AddCommand(tourneyImportCmd)
	tourneyCmd.AddCommand(tourneyListCmd)
}

func runTourneyImport(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p := tourney.NewWinamax()
	var stored, failed int
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, _, err := parser.Decode(raw, []parser.Encoding{parser.EncodingUTF8, parser.EncodingCP1252})
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("tourney_decode_failed")
			failed++
			continue
		}
		s, err := p.Parse(text)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("tourney_parse_failed")
			failed++
			continue
		}
		if _, err := db.StoreTourneySummary(cmd.Context(), s); err != nil {
			return fmt.Errorf("store %s: %w", path, err)
		}
		stored++
		fmt.Fprintf(os.Stdout, "%s: %s (#%d) rank %d/%d, won %s\n",
			path, s.Name, s.TourNo, s.Rank, s.Entries, report.Money(s.Winnings))
	}
	fmt.Fprintf(os.Stdout, "\n%d stored, %d failed\n", stored, failed)
	return nil
}

func runTourneyList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.ListTourneys(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("list tourneys: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no tournaments")
		return nil
	}
	report.PrintTourneys(os.Stdout, results)
	return nil
}
