package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify and repair maturity scores",
	Long: `Recompute maturity from the active specification set and compare it
to the persisted scores. The maturity table is a cache of a pure function
over the active set; any drift is repaired and reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		drift, err := eng.Repair(cmd.Context(), projectID, actor)
		if err != nil {
			return err
		}
		if len(drift) == 0 {
			color.Green("✓ maturity scores consistent with the active specification set")
			return nil
		}
		color.Yellow("repaired %d drifted score(s):", len(drift))
		for cat, pair := range drift {
			fmt.Printf("  %-14s %.2f -> %.2f\n", cat, pair[0], pair[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
