package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"metacog/internal/config"
	"metacog/internal/engine"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "metacog",
	Short: "metacog - behavioral pattern classifier and adaptive intervention engine",
	Long: `metacog classifies a person's interaction with an AI assistant into one
of six metacognitive usage patterns (A-F) and selects paced, suppressible
interventions from a declarative rule table.

The pipeline: raw behavioral features -> 12 normalized subprocess scores ->
pattern classification (red-flag F check first) -> hybrid resolution ->
intervention rule evaluation filtered by per-user suppression state.

All thresholds and rule tables are configuration; see 'metacog rules show'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "metacog.yaml", "config file path")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(benchCmd)
}

// loadEvaluator loads the config and builds the evaluation pipeline.
func loadEvaluator() (*config.Config, *engine.Evaluator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	ev, err := engine.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ev, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
