package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tenet-io/tenet/internal/engine"
	"github.com/tenet-io/tenet/internal/types"
	"gopkg.in/yaml.v3"
)

var (
	addConfidence float64
	addSource     string
	addFile       string
)

// batchFile is the YAML shape accepted by add -f. Confidence is a pointer
// so an explicit 0 is distinguishable from an omitted field.
type batchFile struct {
	Specs []struct {
		Category   string   `yaml:"category"`
		Key        string   `yaml:"key"`
		Value      string   `yaml:"value"`
		Confidence *float64 `yaml:"confidence"`
		Source     string   `yaml:"source"`
	} `yaml:"specs"`
}

var addCmd = &cobra.Command{
	Use:   "add <category> <key>=<value> [<key>=<value>...]",
	Short: "Add specification facts",
	Long: `Add one or more facts to the project specification.

Each fact is a key=value pair inside a category. Adding facts is atomic:
the whole batch is accepted together, and the full rule set runs over the
project's active facts afterward. Any detected conflict is printed with
its resolution options.

Examples:
  tenet add tech_stack database=PostgreSQL frontend=React
  tenet add goals market_scope_expansion=national --confidence 0.9
  tenet add -f specs.yaml`,
	Args: func(cmd *cobra.Command, args []string) error {
		if addFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates, err := collectCandidates(args)
		if err != nil {
			return err
		}

		result, err := eng.AddSpecifications(cmd.Context(), projectID, candidates, actor)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func collectCandidates(args []string) ([]types.Candidate, error) {
	if addFile != "" {
		return readBatchFile(addFile)
	}

	category := types.Category(args[0])
	source := types.Source(addSource)
	candidates := make([]types.Candidate, 0, len(args)-1)
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		candidates = append(candidates, types.Candidate{
			Category:   category,
			Key:        key,
			Value:      value,
			Confidence: addConfidence,
			Source:     source,
		})
	}
	return candidates, nil
}

func readBatchFile(path string) ([]types.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(batch.Specs) == 0 {
		return nil, fmt.Errorf("%s contains no specs", path)
	}

	candidates := make([]types.Candidate, 0, len(batch.Specs))
	for _, s := range batch.Specs {
		confidence := addConfidence
		if s.Confidence != nil {
			confidence = *s.Confidence
		}
		source := s.Source
		if source == "" {
			source = addSource
		}
		candidates = append(candidates, types.Candidate{
			Category:   types.Category(s.Category),
			Key:        s.Key,
			Value:      s.Value,
			Confidence: confidence,
			Source:     types.Source(source),
		})
	}
	return candidates, nil
}

func printResult(result *engine.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, spec := range result.Accepted {
		label := "added"
		if spec.Supersedes != "" {
			label = "updated"
		}
		fmt.Printf("%s %s/%s = %q\n", green(label), spec.Category, spec.Key, spec.Value)
	}
	for _, dup := range result.Duplicates {
		fmt.Printf("%s %s/%s already holds %q\n", yellow("unchanged"), dup.Category, dup.Key, dup.Value)
	}

	for _, c := range result.Conflicts {
		fmt.Println()
		printConflict(c, "")
	}

	if result.Maturity != nil {
		fmt.Printf("\noverall maturity: %.1f/100\n", result.Maturity.Overall)
	}
}

func init() {
	addCmd.Flags().Float64Var(&addConfidence, "confidence", 0.8, "confidence in [0,1] applied to each fact")
	addCmd.Flags().StringVar(&addSource, "source", "direct_chat", "fact provenance (socratic, direct_chat, import)")
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", "read facts from a YAML batch file")
	rootCmd.AddCommand(addCmd)
}
