package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/hud"
	"github.com/pable/go-hud-stats/internal/stats"
)

const analyzeSystemPrompt = `You are a poker coach reviewing HUD statistics. You are given structured data
computed from a player's imported hand histories and a question from the player.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers, with their sample (the breakdown field), when making a claim.
- If the sample is too small to answer confidently, say so explicitly.
- Be concise and actionable: focus on leaks the player can actually fix.
- Avoid generic poker advice unless it directly explains a pattern in the data.

Statistics glossary:
- vpip: % of hands the player voluntarily put money in pre-flop.
- pfr: % of hands raised pre-flop.
- three_B / four_B: % re-raised when facing a raise / a 3-bet.
- f_3bet / f_4bet: % folded when facing a 3-bet / a 4-bet.
- steal: % raised from cutoff, button or small blind when folded to.
- f_BB_steal / f_SB_steal: % folded in the blinds to a steal attempt.
- cbet / cb1..4: % continuation bets when the previous street's aggressor.
- f_cb1..4: % folded to a continuation bet.
- wtsd: % went to showdown after seeing the flop. wmsd: % won at showdown.
- agg_fact: (bets + raises) / calls after the flop. agg_freq: aggression frequency.
- bbper100 / profit100: winnings per 100 hands in big blinds / in money.
- n: hands in the sample.`

var (
	analyzeModel  string
	analyzeAPIKey string
	analyzeFlags  hudFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <player> <question>",
	Short: "AI-powered grounded analysis of a player's HUD statistics (requires ANTHROPIC_API_KEY)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (env HUD_ANALYZE_MODEL)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	analyzeFlags.register(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	q, err := analyzeFlags.query(args[0])
	if err != nil {
		return err
	}
	if len(q.Stats) == 0 {
		q.Stats = analyzeStats(stats.NewRegistry())
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := newHUD(db)
	ps, err := svc.Player(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("player stats: %w", err)
	}
	sessions, err := svc.Sessions(cmd.Context(), q.Site, q.Player)
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}

	contextJSON, err := buildPlayerContext(ps, sessions)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	apiKey, model := analyzeAPIKey, analyzeModel
	if apiKey == "" {
		apiKey = appCfg.Analyze.APIKey
	}
	if model == "" {
		model = appCfg.Analyze.Model
	}
	return callAnthropic(cmd.Context(), apiKey, model, contextJSON, args[1])
}

// analyzeStats is every registered statistic except the ones that carry
// no information for a coach.
func analyzeStats(reg *stats.Registry) []string {
	var out []string
	for _, name := range reg.Names() {
		if name != "playername" {
			out = append(out, name)
		}
	}
	return out
}

// buildPlayerContext serialises the formatted statistics and the recent
// sessions into compact JSON.
func buildPlayerContext(ps *hud.PlayerStats, sessions []cache.Session) (string, error) {
	type statEntry struct {
		Name      string `json:"name"`
		Label     string `json:"label"`
		Value     string `json:"value"`
		Breakdown string `json:"breakdown"`
	}
	type sessionEntry struct {
		Start  string `json:"start"`
		Hands  int    `json:"hands"`
		Profit string `json:"profit"`
	}
	out := struct {
		Player   string         `json:"player"`
		Hands    int64          `json:"hands"`
		Style    string         `json:"style"`
		Since    string         `json:"since,omitempty"`
		Stats    []statEntry    `json:"stats"`
		Sessions []sessionEntry `json:"recent_sessions,omitempty"`
	}{
		Player: ps.Player,
		Hands:  ps.Hands,
		Style:  string(ps.Style),
		Since:  ps.Since,
	}
	for _, r := range ps.Stats {
		out.Stats = append(out.Stats, statEntry{Name: r.Name, Label: r.Label, Value: r.Display, Breakdown: r.Breakdown})
	}
	for i, s := range sessions {
		if i == 10 {
			break
		}
		out.Sessions = append(out.Sessions, sessionEntry{
			Start:  s.Start.Format("2006-01-02 15:04"),
			Hands:  s.Hands,
			Profit: fmt.Sprintf("%.2f", float64(s.TotalProfit)/100),
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
