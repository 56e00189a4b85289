package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/maturity"
	"github.com/tenet-io/tenet/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show specification maturity",
	Long: `Show the per-category maturity of the project specification.

Scores are in [0,100] and grow with each accepted fact, with diminishing
returns so a category approaches but never exceeds completeness. The
overall score is the weighted mean across all categories.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := store.GetActive(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		calc := maturity.NewCalculator(&maturity.Config{
			BaseWeight:      cfg.Maturity.BaseWeight,
			CategoryWeights: cfg.Maturity.Weights,
		})
		report := calc.Recompute(projectID, active)

		fmt.Printf("Project: %s (%d active facts)\n\n", projectID, len(active))
		for _, cat := range types.AllCategories {
			score := report.Score(cat)
			fmt.Printf("  %-14s %s %5.1f\n", cat, scoreBar(score), score)
		}
		fmt.Printf("\n  %-14s %s %5.1f\n", "overall", scoreBar(report.Overall), report.Overall)

		unresolved, err := store.ListConflicts(cmd.Context(), projectID, types.ConflictUnresolved)
		if err != nil {
			return err
		}
		fmt.Println()
		if len(unresolved) == 0 {
			color.Green("No unresolved conflicts.")
		} else {
			color.Red("%d unresolved conflict(s). Run: tenet conflicts", len(unresolved))
		}
		return nil
	},
}

// scoreBar renders a 20-cell bar colored by how complete the category is
func scoreBar(score float64) string {
	const width = 20
	filled := int(score / 100 * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case score >= 75:
		return color.GreenString(bar)
	case score >= 40:
		return color.YellowString(bar)
	default:
		return color.RedString(bar)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
