package main

import (
	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/repl"
)

var replCmd = &cobra.Command{
	Use:     "repl",
	Aliases: []string{"shell"},
	Short:   "Interactive specification entry",
	Long: `Start an interactive shell for iterative specification entry.

Each line adds a fact; new conflicts and the updated maturity are shown
immediately, so contradictions surface while the context is fresh.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repl.New(&repl.Config{
			Engine:    eng,
			Store:     store,
			ProjectID: projectID,
			Actor:     actor,
		})
		if err != nil {
			return err
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
