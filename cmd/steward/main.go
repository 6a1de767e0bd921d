package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"steward/internal/config"
	"steward/internal/engine"
	"steward/internal/executor"
	"steward/internal/grammar"
	"steward/internal/logging"
	"steward/internal/types"
)

var (
	// Global flags
	configPath string
	rulePath   string
	verbose    bool
	dryRun     bool

	cfg *config.Config
	eng *engine.Engine
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "steward - natural language command engine",
	Long: `steward turns natural language into validated, dependency-aware task
plans and executes them: pattern-grammar parsing, multi-intent
segmentation, confidence scoring with an explainable breakdown, and a
concurrent executor with retries, timeouts, confirmation gates, and
compensation on failure.

Run without arguments to start the interactive prompt.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if rulePath != "" {
			cfg.Grammar.RulePath = rulePath
		}
		if verbose {
			cfg.Logging.DebugMode = true
		}
		if err := logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
			FilePath:   cfg.Logging.File,
		}); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := buildEngine(); err != nil {
			return err
		}
		return runInteractive(cmd.Context())
	},
}

// runCmd executes a single utterance end to end
var runCmd = &cobra.Command{
	Use:   "run [text...]",
	Short: "Process one utterance through the full pipeline",
	Long: `Normalizes, segments, parses, scores, plans, and executes one
utterance. With --dry-run the plan is executed against a recording
no-op effector and the would-be actions are printed instead.

Example:
  steward run open chrome and play music`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := buildEngine(); err != nil {
			return err
		}
		text := strings.Join(args, " ")
		if dryRun {
			res, calls, err := eng.DryRun(cmd.Context(), text)
			if err != nil {
				return err
			}
			printResult(res)
			for _, call := range calls {
				fmt.Printf("  would: %s\n", call)
			}
			return nil
		}
		res, err := eng.Process(cmd.Context(), text)
		if err != nil {
			return err
		}
		printResult(res)
		return maybeConfirm(cmd.Context(), res, bufio.NewReader(os.Stdin))
	},
}

// parseCmd shows the structural parse and score without planning
var parseCmd = &cobra.Command{
	Use:   "parse [text...]",
	Short: "Show segmentation, matched rules, and the confidence breakdown",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := buildEngine(); err != nil {
			return err
		}
		res, err := eng.Plan(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if res.Kind == engine.ResultNoMatch {
			fmt.Printf("no match: %s\n", res.Message)
			return nil
		}
		for _, c := range res.Classifications {
			fmt.Printf("%q -> %s (rule %s, confidence %.3f)\n",
				c.Text, c.Intent, c.PatternID, c.Confidence)
			for _, f := range c.Factors {
				fmt.Printf("    %-10s %.3f  %s\n", f.Name, f.Contribution, f.Reason)
			}
			if c.Entities != nil && c.Entities.Len() > 0 {
				fmt.Printf("    entities: %s\n", c.Entities)
			}
		}
		return nil
	},
}

// planCmd builds and prints the plan without executing
var planCmd = &cobra.Command{
	Use:   "plan [text...]",
	Short: "Build and print the task plan without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := buildEngine(); err != nil {
			return err
		}
		res, err := eng.Plan(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printResult(res)
		if res.Plan != nil {
			printPlan(res.Plan)
		}
		return nil
	},
}

// grammarCmd groups rule-file operations
var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Rule file operations",
}

var grammarCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Compile a rule file and report every problem found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := grammar.LoadRuleset(args[0])
		if err != nil {
			return err
		}
		g, err := grammar.Compile(rs)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d rules (version %s)\n", g.RuleCount(), g.Version)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&rulePath, "rules", "", "grammar rule file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview actions without executing")

	rootCmd.AddCommand(runCmd, parseCmd, planCmd, grammarCmd)
	grammarCmd.AddCommand(grammarCheckCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func buildEngine() error {
	var err error
	eng, err = engine.New(engine.Options{
		Config:   cfg,
		Effector: &consoleEffector{},
		Sink:     executor.LogSink{},
	})
	return err
}

// runInteractive reads utterances until EOF or interrupt.
func runInteractive(ctx context.Context) error {
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	fmt.Printf("steward %s - type a command, 'quit' to exit\n", cfg.Version)
	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		res, err := eng.Process(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResult(res)
		if err := maybeConfirm(ctx, res, reader); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// maybeConfirm prompts for a pending confirmation and resumes the plan.
func maybeConfirm(ctx context.Context, res *engine.Result, reader *bufio.Reader) error {
	for res.Kind == engine.ResultNeedsConfirmation {
		step := res.Plan.Steps[res.Execution.ConfirmStep]
		fmt.Printf("confirm %s %s? [y/N] ", step.Kind, step.Param("op"))
		line, err := reader.ReadString('\n')
		if err != nil {
			line = "n"
		}
		accept := strings.EqualFold(strings.TrimSpace(line), "y")
		res, err = eng.Confirm(ctx, res.Plan.ID, accept)
		if err != nil {
			return err
		}
		printResult(res)
	}
	return nil
}

func printResult(res *engine.Result) {
	switch res.Kind {
	case engine.ResultExecuted:
		if res.Execution != nil {
			fmt.Printf("%s (%d steps)\n", res.Execution.Status, len(res.Execution.Steps))
			if res.Execution.Message != "" {
				fmt.Printf("  %s\n", res.Execution.Message)
			}
		}
	case engine.ResultPlanned:
		fmt.Printf("planned %d steps (confidence %.3f)\n",
			len(res.Plan.Steps), res.Plan.Confidence)
	case engine.ResultNeedsClarification:
		fmt.Printf("not sure what you meant (confidence %.3f)\n",
			res.Clarification.Confidence)
		for _, s := range res.Clarification.Suggestions {
			fmt.Printf("  did you mean: %q\n", s)
		}
	case engine.ResultNeedsConfirmation:
		fmt.Println(res.Message)
	case engine.ResultNoMatch:
		fmt.Printf("no match: %s\n", res.Message)
	case engine.ResultInvalidPlan:
		fmt.Printf("invalid plan: %s\n", res.Message)
	}
}

func printPlan(plan *types.TaskPlan) {
	for i, step := range plan.Steps {
		deps := plan.DependsOn(i)
		line := fmt.Sprintf("  [%d] %s", i, step.Kind)
		if op := step.Param("op"); op != "" {
			line += " " + op
		}
		if step.Kind == types.ActionWait {
			line += " " + step.WaitFor.String()
		}
		if len(deps) > 0 {
			line += fmt.Sprintf("  after %v", deps)
		}
		if step.Group != "" {
			line += "  group=" + step.Group
		}
		fmt.Println(line)
	}
	if !plan.Valid {
		for _, e := range plan.Errors {
			fmt.Printf("  problem: %s\n", e)
		}
	}
}
