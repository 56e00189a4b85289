package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id> <option label>",
	Short: "Resolve a conflict",
	Long: `Resolve a conflict by choosing one of its options.

The label must match one of the conflict's options (case-insensitive).
The option's effects are applied atomically: superseded facts are replaced,
archived facts retired, and maturity is recomputed. Resolving an
already-resolved conflict reports the prior resolution and changes nothing.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflictID := args[0]
		label := strings.Join(args[1:], " ")

		resolution, err := eng.Resolve(cmd.Context(), conflictID, label, actor)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s resolved with %q\n", green("✓"), resolution.ChosenOptionLabel)
		for _, id := range resolution.ResultingSpecIDs {
			spec, err := store.GetSpecification(cmd.Context(), id)
			if err != nil {
				continue
			}
			fmt.Printf("  %s/%s is now %q\n", spec.Category, spec.Key, spec.Value)
		}

		ok, blocking, err := eng.CanAdvancePhase(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if ok {
			color.Green("gate open: ready to advance")
		} else {
			color.Yellow("%d blocking conflict(s) remain", len(blocking))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
