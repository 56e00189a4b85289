package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/types"
)

var specsHistory bool

var specsCmd = &cobra.Command{
	Use:   "specs [category]",
	Short: "List specification facts",
	Long: `List the project's active facts, grouped by category.

With a category argument, only that category is shown. --history includes
superseded and archived versions so value changes can be traced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter types.Category
		if len(args) > 0 {
			filter = types.Category(args[0])
			if !filter.IsValid() {
				return fmt.Errorf("unknown category %q", args[0])
			}
		}

		active, err := store.GetActive(cmd.Context(), projectID)
		if err != nil {
			return err
		}

		byCategory := make(map[types.Category][]*types.Specification)
		for _, s := range active {
			byCategory[s.Category] = append(byCategory[s.Category], s)
		}

		shown := 0
		for _, cat := range types.AllCategories {
			if filter != "" && cat != filter {
				continue
			}
			specs := byCategory[cat]
			if len(specs) == 0 {
				continue
			}
			color.Cyan("%s", cat)
			for _, s := range specs {
				fmt.Printf("  %s = %q (confidence %.2f)\n", s.Key, s.Value, s.Confidence)
				if specsHistory {
					if err := printHistory(cmd, s); err != nil {
						return err
					}
				}
				shown++
			}
		}
		if shown == 0 {
			fmt.Println("No active facts. Add some with: tenet add")
		}
		return nil
	},
}

func printHistory(cmd *cobra.Command, s *types.Specification) error {
	history, err := store.GetHistory(cmd.Context(), projectID, s.Category, s.Key)
	if err != nil {
		return err
	}
	for _, h := range history {
		if h.ID == s.ID {
			continue
		}
		fmt.Printf("    %s %q (%s, %s)\n", color.YellowString(string(h.Status)), h.Value, h.CreatedAt.Format("2006-01-02"), h.Source)
	}
	return nil
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List known projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := store.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects. Create one with: tenet init")
			return nil
		}
		for _, p := range projects {
			marker := " "
			if p == projectID {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p)
		}
		return nil
	},
}

func init() {
	specsCmd.Flags().BoolVar(&specsHistory, "history", false, "show superseded and archived versions")
	rootCmd.AddCommand(specsCmd)
	rootCmd.AddCommand(projectsCmd)
}
