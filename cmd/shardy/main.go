package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command with its two process-mode
// subcommands, exposed for unit testing (§2, §6, "one binary, two roles").
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shardy",
		Short: "shardy is a distributed, time-partitioned log search engine",
	}

	root.AddCommand(newAPICmd())
	root.AddCommand(newWorkerCmd())
	return root
}
