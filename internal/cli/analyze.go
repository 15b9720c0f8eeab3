package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/waterfall"
)

func analyzeCmd(inputPath *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the ordered breakpoints for a cap table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := loadCapTable(*inputPath)
			if err != nil {
				return err
			}

			result, err := waterfall.Analyze(ct)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}

			if jsonOut || !term.IsTerminal(int(os.Stdout.Fd())) {
				return printJSON(result)
			}
			printBreakpointsTable(result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "force JSON output even in a TTY")
	return cmd
}

func loadCapTable(path string) (captable.CapTable, error) {
	if path == "" {
		return captable.CapTable{}, fmt.Errorf("analyze: --input is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return captable.CapTable{}, fmt.Errorf("analyze: reading %s: %w", path, err)
	}
	var ct captable.CapTable
	if err := json.Unmarshal(b, &ct); err != nil {
		return captable.CapTable{}, fmt.Errorf("analyze: parsing %s: %w", path, err)
	}
	return ct.Normalized(), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBreakpointsTable(result *waterfall.AnalysisResult) {
	fmt.Printf("%-24s %18s  %s\n", "TYPE", "EXIT VALUE", "EXPLANATION")
	for _, bp := range result.Breakpoints {
		fmt.Printf("%-24s %18s  %s\n", bp.Type, bp.ExitValue.Canonical(), bp.Explanation)
	}
	for _, w := range result.Trail.Warnings() {
		log.Warn().Str("phase", w.Phase).Msg(w.Message)
	}
	fmt.Printf("\nverification hash: %s\n", result.VerificationHash)
}
