package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/hud"
	"github.com/pable/go-hud-stats/internal/report"
	"github.com/pable/go-hud-stats/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

// shellSession holds what the REPL keeps between commands.
type shellSession struct {
	db  *storage.DB
	hud *hud.Service
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	s := &shellSession{db: db, hud: newHUD(db)}
	ctx := cmd.Context()

	cGreeting.Println("hudstats shell")
	cMuted.Printf("site %s, database %s\n", siteName, dbPath)
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("hudstats")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "hands":
			s.hands(ctx, args)
		case "hand":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: hand <hand-number>")
				continue
			}
			s.hand(ctx, args[0])
		case "players":
			s.players(ctx)
		case "stats":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: stats <player> [stat...]")
				continue
			}
			s.stats(ctx, args[0], args[1:])
		case "trend":
			if len(args) != 2 {
				cError.Fprintln(os.Stderr, "usage: trend <player> <stat>")
				continue
			}
			s.trend(ctx, args[0], args[1])
		case "sessions":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: sessions <player>")
				continue
			}
			s.sessions(ctx, args[0])
		case "summary":
			s.summary(ctx)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"hands [player]", "list the 20 most recent hands"},
		{"hand <hand-number>", "show one hand"},
		{"players", "list players by hands played"},
		{"stats <player> [stat...]", "HUD statistics (default set from HUD_STATS)"},
		{"trend <player> <stat>", "one statistic per day"},
		{"sessions <player>", "playing sessions, latest first"},
		{"summary", "database overview"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-28s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellErr(err error) {
	cError.Fprintf(os.Stderr, "error: %v\n", err)
}

func (s *shellSession) hands(ctx context.Context, args []string) {
	player := ""
	if len(args) > 0 {
		player = args[0]
	}
	hands, err := s.db.ListHands(ctx, player, 20)
	if err != nil {
		shellErr(err)
		return
	}
	if len(hands) == 0 {
		cMuted.Println("No hands stored yet.")
		return
	}
	report.PrintHands(os.Stdout, hands)
}

func (s *shellSession) hand(ctx context.Context, arg string) {
	handNo, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		cError.Fprintf(os.Stderr, "invalid hand number %q\n", arg)
		return
	}
	d, err := s.db.HandByNumber(ctx, siteName, handNo)
	if err != nil {
		shellErr(err)
		return
	}
	report.PrintHandDetail(os.Stdout, d)
}

func (s *shellSession) players(ctx context.Context) {
	players, err := s.db.ListPlayers(ctx, 1)
	if err != nil {
		shellErr(err)
		return
	}
	report.PrintPlayers(os.Stdout, players)
}

func (s *shellSession) stats(ctx context.Context, player string, names []string) {
	ps, err := s.hud.Player(ctx, hud.Query{Site: siteName, Player: player, Stats: names})
	if err != nil {
		shellErr(err)
		return
	}
	report.PrintStats(os.Stdout, ps)
}

func (s *shellSession) trend(ctx context.Context, player, stat string) {
	days, err := s.hud.Trend(ctx, hud.Query{Site: siteName, Player: player}, stat)
	if err != nil {
		shellErr(err)
		return
	}
	report.PrintTrend(os.Stdout, player, stat, days)
}

func (s *shellSession) sessions(ctx context.Context, player string) {
	sessions, err := s.hud.Sessions(ctx, siteName, player)
	if err != nil {
		shellErr(err)
		return
	}
	cHeader.Printf("--- Sessions: %s ---\n", player)
	report.PrintSessions(os.Stdout, sessions)
}

func (s *shellSession) summary(ctx context.Context) {
	ov, err := s.db.Overview(ctx)
	if err != nil {
		shellErr(err)
		return
	}
	report.PrintOverview(os.Stdout, ov)
}
