// Package repl provides the interactive shell used for iterative
// specification entry. Each line becomes a candidate batch; new conflicts
// and the updated maturity are shown immediately after every entry.
package repl

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/tenet-io/tenet/internal/engine"
	"github.com/tenet-io/tenet/internal/storage"
	"github.com/tenet-io/tenet/internal/types"
)

// Config holds REPL configuration
type Config struct {
	Engine    *engine.Engine
	Store     storage.Storage
	ProjectID string
	Actor     string
}

// REPL is the interactive specification entry loop
type REPL struct {
	engine    *engine.Engine
	store     storage.Storage
	projectID string
	actor     string
}

// New creates a REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project is required")
	}
	actor := cfg.Actor
	if actor == "" {
		actor = "user"
	}
	return &REPL{
		engine:    cfg.Engine,
		store:     cfg.Store,
		projectID: cfg.ProjectID,
		actor:     actor,
	}, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	prompt := cyan(fmt.Sprintf("%s> ", r.projectID))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if done, err := r.dispatch(ctx, line); done {
			return nil
		} else if err != nil {
			color.Red("Error: %v", err)
		}
	}
}

func (r *REPL) printWelcome() {
	fmt.Println("tenet interactive shell")
	fmt.Println("Enter facts as:  <category> <key> = <value> [@confidence]")
	fmt.Println("Commands: status, conflicts, resolve <n> <option>, gate, help, exit")
	fmt.Println()
}

// dispatch handles one input line. Returns done=true on exit.
func (r *REPL) dispatch(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "exit", "quit":
		fmt.Println("Goodbye!")
		return true, nil
	case "help":
		r.printWelcome()
		return false, nil
	case "status":
		return false, r.showStatus(ctx)
	case "conflicts":
		return false, r.showConflicts(ctx)
	case "gate":
		return false, r.showGate(ctx)
	case "resolve":
		if len(fields) < 3 {
			return false, fmt.Errorf("usage: resolve <number> <option label>")
		}
		return false, r.resolve(ctx, fields[1], strings.Join(fields[2:], " "))
	default:
		return false, r.addFact(ctx, line)
	}
}

// addFact parses "<category> <key> = <value> [@confidence]" and submits it
func (r *REPL) addFact(ctx context.Context, line string) error {
	cand, err := ParseFact(line)
	if err != nil {
		return err
	}

	result, err := r.engine.AddSpecifications(ctx, r.projectID, []types.Candidate{*cand}, r.actor)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, spec := range result.Accepted {
		fmt.Printf("%s %s/%s = %q\n", green("accepted"), spec.Category, spec.Key, spec.Value)
	}
	for _, dup := range result.Duplicates {
		fmt.Printf("%s %s/%s already holds %q\n", yellow("duplicate"), dup.Category, dup.Key, dup.Value)
	}
	for _, c := range result.Conflicts {
		color.Red("conflict [%s/%s] %s", c.Type, c.Severity, c.Description)
		for i, opt := range c.Options {
			fmt.Printf("    %d. %s (score %.2f)\n", i+1, opt.Label, opt.Score)
		}
	}
	if result.Maturity != nil {
		fmt.Printf("overall maturity: %.1f\n", result.Maturity.Overall)
	}
	return nil
}

// ParseFact parses one fact entry line. Format:
//
//	<category> <key> = <value> [@confidence]
//
// e.g. "tech_stack database = PostgreSQL @0.95"
func ParseFact(line string) (*types.Candidate, error) {
	confidence := 0.8
	if at := strings.LastIndex(line, "@"); at >= 0 {
		confStr := strings.TrimSpace(line[at+1:])
		c, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid confidence %q", confStr)
		}
		confidence = c
		line = strings.TrimSpace(line[:at])
	}

	eq := strings.Index(line, "=")
	if eq < 0 {
		return nil, fmt.Errorf("expected: <category> <key> = <value> [@confidence]")
	}
	left := strings.Fields(strings.TrimSpace(line[:eq]))
	if len(left) != 2 {
		return nil, fmt.Errorf("expected: <category> <key> = <value> [@confidence]")
	}
	value := strings.TrimSpace(line[eq+1:])
	value = strings.Trim(value, `"`)
	if value == "" {
		return nil, fmt.Errorf("value is required")
	}

	return &types.Candidate{
		Category:   types.Category(left[0]),
		Key:        left[1],
		Value:      value,
		Confidence: confidence,
		Source:     types.SourceDirectChat,
	}, nil
}

func (r *REPL) showStatus(ctx context.Context) error {
	scores, err := r.store.GetMaturity(ctx, r.projectID)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		fmt.Println("no specifications yet")
		return nil
	}
	for _, cs := range scores {
		if cs.Score == 0 {
			continue
		}
		fmt.Printf("  %-14s %6.1f\n", cs.Category, cs.Score)
	}
	return nil
}

func (r *REPL) showConflicts(ctx context.Context) error {
	conflicts, err := r.store.ListConflicts(ctx, r.projectID, types.ConflictUnresolved)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		color.Green("no unresolved conflicts")
		return nil
	}
	for i, c := range conflicts {
		color.Red("%d. [%s/%s] %s", i+1, c.Type, c.Severity, c.Description)
		for _, opt := range c.Options {
			fmt.Printf("    - %s (score %.2f)\n", opt.Label, opt.Score)
		}
	}
	return nil
}

func (r *REPL) showGate(ctx context.Context) error {
	ok, blocking, err := r.engine.CanAdvancePhase(ctx, r.projectID)
	if err != nil {
		return err
	}
	if ok {
		color.Green("gate open: ready to advance")
	} else {
		color.Red("gate closed: %d blocking conflict(s)", len(blocking))
	}
	return nil
}

// resolve maps the displayed conflict number back to its ID and applies
// the chosen option.
func (r *REPL) resolve(ctx context.Context, numStr, label string) error {
	n, err := strconv.Atoi(numStr)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid conflict number %q", numStr)
	}
	conflicts, err := r.store.ListConflicts(ctx, r.projectID, types.ConflictUnresolved)
	if err != nil {
		return err
	}
	if n > len(conflicts) {
		return fmt.Errorf("conflict %d not found (%d unresolved)", n, len(conflicts))
	}

	resolution, err := r.engine.Resolve(ctx, conflicts[n-1].ID, label, r.actor)
	if err != nil {
		return err
	}
	color.Green("resolved with %q", resolution.ChosenOptionLabel)
	return r.showGate(ctx)
}
