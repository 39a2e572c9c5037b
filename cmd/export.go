package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/storage"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <player>",
	Short: "Export a player's per-hand statistics as CSV or JSON",
	Long: `Write one row per hand the player sat in, with every derived statistic under
its storage column name (street0VPI, street1CBChance, ...). Booleans are 0 or 1
and money is in cents.

Example:
  hudstats export Carol --format csv --out carol.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or json (one object per line)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file path (default: stdout)")
}

var exportIdentity = []string{"handNo", "site", "handStart", "game", "playerName", "position", "seatNo", "startCash", "startCards"}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("unknown format %q: want csv or json", exportFormat)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.PlayerID(cmd.Context(), args[0], siteName)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	var n int
	if exportFormat == "csv" {
		n, err = exportCSV(cmd, db, id, w)
	} else {
		n, err = exportJSON(cmd, db, id, w)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", n, exportOut)
	}
	return nil
}

func identityValues(r storage.ExportRow) []string {
	return []string{
		strconv.FormatInt(r.HandNo, 10),
		r.Site,
		r.HandStart.Format(time.RFC3339),
		r.Game,
		r.Stat.PlayerName,
		string(r.Stat.Position),
		strconv.Itoa(r.Stat.SeatNo),
		strconv.FormatInt(r.Stat.StartCash, 10),
		strconv.Itoa(r.Stat.StartCards),
	}
}

func exportCSV(cmd *cobra.Command, db *storage.DB, playerID int64, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	cols := model.StatColumns()
	if err := cw.Write(append(append([]string(nil), exportIdentity...), cols...)); err != nil {
		return 0, err
	}
	var n int
	err := db.ExportRows(cmd.Context(), playerID, func(r storage.ExportRow) error {
		rec := identityValues(r)
		for _, v := range r.Stat.Values() {
			rec = append(rec, strconv.FormatInt(v, 10))
		}
		n++
		return cw.Write(rec)
	})
	if err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

func exportJSON(cmd *cobra.Command, db *storage.DB, playerID int64, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	cols := model.StatColumns()
	var n int
	err := db.ExportRows(cmd.Context(), playerID, func(r storage.ExportRow) error {
		obj := make(map[string]any, len(exportIdentity)+len(cols))
		for i, v := range identityValues(r) {
			obj[exportIdentity[i]] = v
		}
		for i, v := range r.Stat.Values() {
			obj[cols[i]] = v
		}
		n++
		return enc.Encode(obj)
	})
	return n, err
}
