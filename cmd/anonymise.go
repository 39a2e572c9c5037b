package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/parser"
)

var (
	anonOut      string
	anonPrintMap bool
)

var anonymiseCmd = &cobra.Command{
	Use:     "anonymise <file>",
	Aliases: []string{"anonymize"},
	Short:   "Replace player names in a hand-history file with Player<N>",
	Args:    cobra.ExactArgs(1),
	RunE:    runAnonymise,
}

func init() {
	anonymiseCmd.Flags().StringVarP(&anonOut, "out", "o", "", "output file path (default: stdout)")
	anonymiseCmd.Flags().BoolVar(&anonPrintMap, "print-map", false, "print the name to alias mapping on stderr")
}

func runAnonymise(_ *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	p, err := parser.NewRegistry().Lookup(siteName)
	if err != nil {
		return err
	}
	text, aliases, err := parser.Anonymise(p, raw)
	if err != nil {
		return fmt.Errorf("anonymise: %w", err)
	}

	if anonOut == "" {
		fmt.Fprint(os.Stdout, text)
	} else if err := os.WriteFile(anonOut, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	if anonPrintMap {
		names := make([]string, 0, len(aliases))
		for name := range aliases {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := aliases[names[i]], aliases[names[j]]
			if len(a) != len(b) {
				return len(a) < len(b)
			}
			return a < b
		})
		for _, name := range names {
			fmt.Fprintf(os.Stderr, "%s\t%s\n", aliases[name], name)
		}
	}
	return nil
}
