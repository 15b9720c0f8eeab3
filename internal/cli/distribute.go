package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Eran5102/Valuation-sub003/internal/money"
	"github.com/Eran5102/Valuation-sub003/internal/waterfall"
)

func distributeCmd(inputPath *string) *cobra.Command {
	var exitValueStr string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Compute the per-security payout at a concrete exit value",
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := loadCapTable(*inputPath)
			if err != nil {
				return err
			}
			exitValue, err := money.NewFromString(exitValueStr)
			if err != nil {
				return fmt.Errorf("distribute: --exit-value %q: %w", exitValueStr, err)
			}

			result, err := waterfall.Analyze(ct)
			if err != nil {
				return fmt.Errorf("distribute: %w", err)
			}
			dist, err := waterfall.Distribute(ct, result.Breakpoints, exitValue)
			if err != nil {
				return fmt.Errorf("distribute: %w", err)
			}

			if jsonOut || !term.IsTerminal(int(os.Stdout.Fd())) {
				return printJSON(dist)
			}
			printPayoutsTable(dist)
			return nil
		},
	}
	cmd.Flags().StringVar(&exitValueStr, "exit-value", "", "exit value to distribute, e.g. 10000000")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "force JSON output even in a TTY")
	cmd.MarkFlagRequired("exit-value")
	return cmd
}

func printPayoutsTable(dist *waterfall.DistributionResult) {
	fmt.Printf("exit value: %s\n\n", dist.ExitValue.Canonical())
	fmt.Printf("%-16s %-24s %18s\n", "SECURITY ID", "NAME", "PAYOUT")
	for _, p := range dist.Payouts {
		fmt.Printf("%-16s %-24s %18s\n", p.SecurityID, p.SecurityName, p.Amount.Canonical())
	}
}
