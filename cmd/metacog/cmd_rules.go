package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"metacog/internal/config"
	"metacog/internal/engine"
	"metacog/internal/metrics"
	"metacog/internal/pattern"
)

// rulesCmd groups rule-table inspection commands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate the rule tables",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured rule tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Printf("config ok: %d pattern rules, %d red flags, %d intervention rules\n",
			len(cfg.Patterns.Rules), len(cfg.Patterns.RedFlags.Flags), len(cfg.Interventions.Rules))
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

// watchCmd hot-reloads rule tables on config changes until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the config file and hot-reload rule tables",
	RunE:  runWatch,
}

// benchCmd scores the classifier against a labeled CSV dataset
var benchCmd = &cobra.Command{
	Use:   "bench [labeled.csv]",
	Short: "Evaluate classifier accuracy on a labeled dataset",
	Long: `Classifies every labeled score set in the CSV (columns user_id,
p1..p4, m1..m3, e1..e3, r1..r2, pattern) and prints accuracy, per-pattern
precision/recall/F1, and the confusion matrix.`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, ev, err := loadEvaluator()
	if err != nil {
		return err
	}
	defer ev.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := engine.NewConfigWatcher(configPath, ev, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("Watching config", zap.String("path", configPath))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case <-ctx.Done():
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	samples, err := metrics.LoadCSV(f)
	if err != nil {
		return err
	}

	classifier, err := pattern.NewClassifier(cfg.Patterns, logger)
	if err != nil {
		return err
	}
	report, err := metrics.Evaluate(classifier, samples)
	if err != nil {
		return err
	}
	logger.Info("Benchmark complete",
		zap.Int("samples", report.Samples),
		zap.Float64("accuracy", report.Accuracy))
	return printJSON(report)
}
