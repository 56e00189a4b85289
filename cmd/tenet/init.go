package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize a project",
	Long: `Initialize a project in the tenet database.

Creates the database file if needed and registers the project so facts
can be added to it. The project ID comes from --project; the optional
argument sets a human-readable name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := projectID
		if len(args) > 0 {
			name = args[0]
		}
		if err := store.EnsureProject(cmd.Context(), projectID, name); err != nil {
			return fmt.Errorf("failed to initialize project: %w", err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s initialized project %s (database: %s)\n", green("✓"), projectID, cfg.Database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
