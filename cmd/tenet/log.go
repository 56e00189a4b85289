package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/types"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the audit trail",
	Long: `Show the project's audit trail, newest first.

Every accepted fact, supersession, detected conflict, resolution, and
degraded enrichment appends one event; the trail is append-only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := store.GetEvents(cmd.Context(), projectID, logLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}
		for _, e := range events {
			ts := e.CreatedAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %s  %s", ts, eventColor(e.Type)(string(e.Type)), e.Actor)
			if e.Detail != "" {
				fmt.Printf("  %s", e.Detail)
			}
			fmt.Println()
		}
		return nil
	},
}

func eventColor(t types.EventType) func(format string, a ...interface{}) string {
	switch t {
	case types.EventConflictDetected, types.EventEnrichmentDegraded:
		return color.RedString
	case types.EventConflictResolved, types.EventSpecAccepted:
		return color.GreenString
	case types.EventSpecSuperseded, types.EventSpecArchived, types.EventDuplicateRejected:
		return color.YellowString
	default:
		return fmt.Sprintf
	}
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 50, "maximum events to show")
	rootCmd.AddCommand(logCmd)
}
