package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Check whether the project can advance",
	Long: `Check the phase gate: whether unresolved medium or high severity
conflicts block the project from advancing.

Exits 0 when the gate is open and 1 when conflicts block it, so the
command can guard scripts and CI steps.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, blocking, err := eng.CanAdvancePhase(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if ok {
			color.Green("gate open: ready to advance")
			return nil
		}
		color.Red("gate closed: %d blocking conflict(s)", len(blocking))
		for _, c := range blocking {
			fmt.Printf("  [%s/%s] %s\n", c.Type, c.Severity, c.Description)
		}
		// exit directly so RunE's error path doesn't print a second message
		store.Close()
		os.Exit(1)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gateCmd)
}
