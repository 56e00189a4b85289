package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/types"
)

var conflictsAll bool

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List detected conflicts",
	Long: `List the project's conflicts with their resolution options.

By default only unresolved conflicts are shown; --all includes resolved
ones. Resolve a conflict with: tenet resolve <id> <option label>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := types.ConflictUnresolved
		if conflictsAll {
			status = ""
		}
		conflicts, err := store.ListConflicts(cmd.Context(), projectID, status)
		if err != nil {
			return err
		}
		if len(conflicts) == 0 {
			color.Green("No conflicts.")
			return nil
		}
		for i, c := range conflicts {
			if i > 0 {
				fmt.Println()
			}
			printConflict(c, c.ID)
		}
		return nil
	},
}

// printConflict renders one conflict. When id is non-empty it is shown so
// the user can pass it to resolve.
func printConflict(c *types.Conflict, id string) {
	severity := color.New(color.FgYellow)
	if c.Severity == types.SeverityHigh {
		severity = color.New(color.FgRed, color.Bold)
	} else if c.Severity == types.SeverityLow {
		severity = color.New(color.FgWhite)
	}

	header := fmt.Sprintf("[%s/%s]", c.Type, c.Severity)
	if c.Status == types.ConflictResolved {
		header += " (resolved)"
	}
	severity.Println(header)
	if id != "" {
		fmt.Printf("  id: %s\n", id)
	}
	fmt.Printf("  %s\n", c.Description)
	if len(c.Impact) > 0 {
		fmt.Printf("  impact: %s\n", strings.Join(c.Impact, "; "))
	}
	if c.Status == types.ConflictResolved && c.Resolution != nil {
		fmt.Printf("  resolved with %q by %s\n", c.Resolution.ChosenOptionLabel, c.Resolution.ResolvedBy)
		return
	}
	for i, opt := range c.Options {
		fmt.Printf("  %d. %s (score %.2f)\n", i+1, opt.Label, opt.Score)
		if len(opt.Pros) > 0 {
			fmt.Printf("     + %s\n", strings.Join(opt.Pros, "; "))
		}
		if len(opt.Cons) > 0 {
			fmt.Printf("     - %s\n", strings.Join(opt.Cons, "; "))
		}
	}
}

func init() {
	conflictsCmd.Flags().BoolVarP(&conflictsAll, "all", "a", false, "include resolved conflicts")
	rootCmd.AddCommand(conflictsCmd)
}
