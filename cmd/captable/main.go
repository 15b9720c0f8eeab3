// Command captable is the CLI front end to the waterfall analyzer:
// analyze a cap table's breakpoints, distribute proceeds at a concrete
// exit value, or serve the HTTP API. Grounded on the teacher's
// cmd/cryptorun/main.go and src/cmd/cprotocol/root.go (zerolog console
// writer, cobra root + subcommands, TTY-aware default entry).
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Eran5102/Valuation-sub003/internal/cli"
)

const version = "v0.1.0"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := cli.Execute(version); err != nil {
		log.Error().Err(err).Msg("captable failed")
		os.Exit(1)
	}
}
