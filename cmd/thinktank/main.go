package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thinktank/internal/config"
	"thinktank/internal/logging"
	"thinktank/internal/report"
	"thinktank/internal/round"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// analyze flags
	inputFile string
	outputDir string
	jsonOnly  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "thinktank",
	Short: "ThinkTank - adversarial multi-persona deliberation",
	Long: `ThinkTank runs a question past a fixed panel of personas split into
opposed camps (Believers, Skeptics, Neutral), has a Foreperson synthesize
their opinions into a consensus report with a confidence score, and maps
that score to an approve/review/block decision.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Init(verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// analyzeCmd runs one full deliberation round
var analyzeCmd = &cobra.Command{
	Use:   "analyze [question]",
	Short: "Run one deliberation round over a question or input file",
	Long: `Runs the full pipeline: extension activation, concurrent persona
deliberation, Foreperson synthesis, and the threshold decision. Writes a
JSON result object and a Markdown report into the output directory.

Example:
  thinktank analyze "Should we deploy the new auth service?"
  thinktank analyze --file security_report.txt`,
	RunE: runAnalyze,
}

// personasCmd inspects the loaded roster
var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the configured persona roster",
	RunE:  runPersonas,
}

// extensionsCmd inspects the loaded extensions
var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List the configured domain extensions",
	RunE:  runExtensions,
}

// initCmd writes a default configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = "thinktank.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing %s", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: thinktank.yaml)")

	analyzeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read the question from a file instead of arguments")
	analyzeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides configuration)")
	analyzeCmd.Flags().BoolVar(&jsonOnly, "json-only", false, "Write only the JSON result, skip the Markdown report")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(extensionsCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "thinktank.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runAnalyze executes a single deliberation round
func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	input, summary, err := resolveInput(args)
	if err != nil {
		return err
	}

	logger := logging.Get(logging.CategoryBoot)
	logger.Info("Starting analysis",
		zap.String("summary", summary),
		zap.String("provider", cfg.LLM.Provider))

	runner, err := round.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	res, err := runner.Run(ctx, input)
	if err != nil {
		var stageErr *round.StageError
		if errors.As(err, &stageErr) && len(stageErr.Opinions) > 0 {
			// Persist whatever was collected before the failure.
			failPath := filepath.Join(cfg.Output.Dir, artifactName("failed", "json"))
			if werr := report.BuildFailure(stageErr).WriteJSON(failPath); werr == nil {
				fmt.Fprintf(os.Stderr, "Partial opinions saved to %s\n", failPath)
			}
		}
		return err
	}

	artifact := report.Build(res, summary)

	jsonPath := filepath.Join(cfg.Output.Dir, artifactName("result", "json"))
	if err := artifact.WriteJSON(jsonPath); err != nil {
		return err
	}
	if !jsonOnly {
		mdPath := filepath.Join(cfg.Output.Dir, artifactName("report", "md"))
		if err := artifact.WriteMarkdown(mdPath); err != nil {
			return err
		}
	}

	fmt.Printf("\n%s (%.1f%%): %s\n", res.Decision.Tag, res.Consensus.Confidence, res.Decision.Action)
	fmt.Printf("Results written to %s\n", cfg.Output.Dir)
	return nil
}

func runPersonas(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := round.NewRunner(cfg)
	if err != nil {
		return err
	}

	reg := runner.Registry()
	fmt.Printf("Roster: %d deliberating personas + 1 Foreperson\n\n", reg.Size())
	for _, p := range reg.DeliberationOrder() {
		fmt.Printf("  [%s] %s\n      %s\n", p.Camp, p.Name, p.Expertise)
	}
	fp := reg.Foreperson()
	fmt.Printf("  [%s] %s\n      %s\n", fp.Camp, fp.Name, fp.Expertise)
	return nil
}

func runExtensions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := round.NewRunner(cfg)
	if err != nil {
		return err
	}

	descriptors := runner.Descriptors()
	if len(descriptors) == 0 {
		fmt.Println("No extensions loaded.")
		return nil
	}
	fmt.Printf("%d extensions loaded:\n\n", len(descriptors))
	for _, d := range descriptors {
		fmt.Printf("  %s (priority %d)\n      keywords: %s\n", d.DisplayName, d.Priority, strings.Join(d.Keywords, ", "))
	}
	return nil
}

// resolveInput reads the question from --file or the positional arguments
// and derives a short summary for report headers.
func resolveInput(args []string) (input, summary string, err error) {
	if inputFile != "" {
		data, rerr := os.ReadFile(inputFile)
		if rerr != nil {
			return "", "", fmt.Errorf("read input file: %w", rerr)
		}
		return string(data), filepath.Base(inputFile), nil
	}
	if len(args) == 0 {
		return "", "", fmt.Errorf("provide a question or --file")
	}
	input = strings.Join(args, " ")
	summary = input
	if len(summary) > 80 {
		summary = summary[:77] + "..."
	}
	return input, summary, nil
}

func artifactName(kind, ext string) string {
	return fmt.Sprintf("%s_%s.%s", kind, time.Now().Format("20060102_150405"), ext)
}
