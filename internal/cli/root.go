// Package cli implements the captable command's cobra command tree:
// analyze, distribute, serve, and version. Grounded on the teacher's
// src/cmd/cprotocol/root.go (cobra.Command tree built in an Execute
// function, PersistentFlags for input shared across subcommands).
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Execute builds and runs the captable command tree.
func Execute(version string) error {
	var inputPath string

	root := &cobra.Command{
		Use:   "captable",
		Short: "Cap-table waterfall breakpoint analyzer and distribution engine",
		Run:   runDefaultEntry,
	}
	root.PersistentFlags().StringVar(&inputPath, "input", "", "path to a cap table JSON file")

	root.AddCommand(analyzeCmd(&inputPath))
	root.AddCommand(distributeCmd(&inputPath))
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd(version))

	return root.Execute()
}

// runDefaultEntry runs when captable is invoked with no subcommand. In an
// interactive terminal it points the operator at --help; in a
// non-interactive context (CI, piped input) it does the same without the
// TTY-specific phrasing, matching the teacher's TTY-detection split.
func runDefaultEntry(cmd *cobra.Command, args []string) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("captable: run 'captable --help' for usage, or 'captable analyze --input table.json'")
		return
	}
	log.Info().Msg("captable: no subcommand given; run with --help for usage")
}
