package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the hand database",
	Long: `Run an arbitrary SQL query against the hand database and print results as a table.

Schema overview:
  sites(id, name)
  players(id, name, siteId)
  gametypes(id, siteId, type, base, category, limitType, currency, smallBlind, bigBlind, ante)
  hands(id, siteId, siteHandNo, gametypeId, tourneyId, tableName, seats, maxSeats, handStart,
    importId, excluded, warnings, handText, boardcard1..5, showdownPot, playersVpi, rake, ...)
  handsplayers(handId, playerId, seatNo, startCash, position, startCards, card1..7,
    street0VPI, street0_3BChance, street1CBChance, ..., winnings, rake, totalProfit)
  handsactions(handId, playerId, street, actionNo, verb, amount, raiseTo, allIn, cards)
  hudcache(gametypeId, playerId, activeSeats, position, tourneyTypeId, styleKey, HDs, street0VPI, ...)
  sessionscache(playerId, sessionStart, sessionEnd, hands, totalProfit)
  tourneytypes, tourneys, tourneysplayers, imports

Money columns are in cents and times are Unix seconds.
Example: hudstats sql "SELECT p.name, SUM(hp.totalProfit) FROM handsplayers hp JOIN players p ON p.id = hp.playerId GROUP BY p.name"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}

