package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"metacog/internal/engine"
)

var batchConcurrency int

// evaluateCmd runs the pipeline over a single snapshot file
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [snapshot.json]",
	Short: "Evaluate one behavioral snapshot",
	Long: `Reads a snapshot file (feature vector, live signals, optional context
samples) and prints the classification, hybrid result, and active
interventions as JSON.

Example:
  metacog evaluate session_042.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

// batchCmd evaluates a directory of snapshots concurrently
var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Evaluate every *.json snapshot in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "parallel evaluations")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	_, ev, err := loadEvaluator()
	if err != nil {
		return err
	}
	defer ev.Close()

	result, err := evaluateFile(cmd.Context(), ev, args[0])
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runBatch(cmd *cobra.Command, args []string) error {
	_, ev, err := loadEvaluator()
	if err != nil {
		return err
	}
	defer ev.Close()

	paths, err := filepath.Glob(filepath.Join(args[0], "*.json"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no *.json snapshots in %s", args[0])
	}
	sort.Strings(paths)
	logger.Info("Evaluating batch",
		zap.Int("snapshots", len(paths)),
		zap.Int("concurrency", batchConcurrency))

	var mu sync.Mutex
	results := make(map[string]*engine.Evaluation, len(paths))

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(batchConcurrency)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			res, err := evaluateFile(gctx, ev, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			results[filepath.Base(path)] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printJSON(results)
}

func evaluateFile(ctx context.Context, ev *engine.Evaluator, path string) (*engine.Evaluation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var in engine.Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return ev.Evaluate(ctx, in)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
