// Package engine wires the full evaluation pipeline: subprocess scoring,
// pattern classification, hybrid resolution, and intervention rule
// evaluation over one collected snapshot.
//
// Evaluation is synchronous and pure over its input; the only shared
// mutable state is the suppression store, which is isolated per user and
// mutated through atomic read-modify-write.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"metacog/internal/config"
	"metacog/internal/features"
	"metacog/internal/intervention"
	"metacog/internal/pattern"
	"metacog/internal/scoring"
)

// Input is everything the signal source collected for one evaluation point.
type Input struct {
	UserID       string                  `json:"user_id"`
	Features     features.FeatureVector  `json:"features"`
	Signals      map[string]any          `json:"signals,omitempty"`
	Samples      []pattern.ContextSample `json:"context_samples,omitempty"`
	ContextAware bool                    `json:"context_aware,omitempty"`
	UserType     string                  `json:"user_type,omitempty"`
}

// Evaluation is the combined pipeline output for one snapshot.
type Evaluation struct {
	ID            string                  `json:"id"`
	UserID        string                  `json:"user_id"`
	Scores        map[string]float64      `json:"scores"`
	TotalScore    float64                 `json:"total_score"`
	Detection     pattern.DetectionResult `json:"detection"`
	Hybrid        pattern.HybridResult    `json:"hybrid"`
	Interventions []intervention.Active   `json:"interventions"`
}

// Evaluator owns the four pipeline stages. Reload swaps the rule-driven
// stages atomically so a hot-reloaded rule table never tears mid-evaluation.
type Evaluator struct {
	mu         sync.RWMutex
	scorer     *scoring.Scorer
	classifier *pattern.Classifier
	hybrid     *pattern.HybridResolver
	rules      *intervention.Engine
	tracker    *intervention.Tracker
	store      intervention.Store
	logger     *zap.Logger
}

// New builds an evaluator from configuration. The suppression store is
// chosen by cfg.Store.Backend and owned by the evaluator (Close releases it).
func New(cfg *config.Config, logger *zap.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var store intervention.Store
	switch cfg.Store.Backend {
	case "memory":
		store = intervention.NewMemoryStore()
	default:
		s, err := intervention.NewSQLiteStore(cfg.Store.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open suppression store: %w", err)
		}
		store = s
	}

	ev := &Evaluator{store: store, logger: logger}
	if err := ev.configure(cfg); err != nil {
		store.Close()
		return nil, err
	}
	return ev, nil
}

// NewWithStore builds an evaluator over a caller-owned store. Tests inject
// a fresh memory store per case this way.
func NewWithStore(cfg *config.Config, store intervention.Store, logger *zap.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ev := &Evaluator{store: store, logger: logger}
	if err := ev.configure(cfg); err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *Evaluator) configure(cfg *config.Config) error {
	scorer, err := scoring.NewScorer(cfg.Scoring.Dimensions)
	if err != nil {
		return err
	}
	classifier, err := pattern.NewClassifier(cfg.Patterns, e.logger)
	if err != nil {
		return err
	}
	tracker, err := intervention.NewTracker(cfg.Suppression, e.store, e.logger)
	if err != nil {
		return err
	}
	rules, err := intervention.NewEngine(cfg.Interventions.Rules, tracker, e.logger)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.scorer = scorer
	e.classifier = classifier
	e.hybrid = pattern.NewHybridResolver(e.logger)
	e.tracker = tracker
	e.rules = rules
	return nil
}

// Reload replaces the rule-driven stages from a new configuration.
// The suppression store is kept; only tables and thresholds change.
func (e *Evaluator) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config on reload: %w", err)
	}
	if err := e.configure(cfg); err != nil {
		return err
	}
	e.logger.Info("rule tables reloaded")
	return nil
}

// Evaluate runs the full pipeline for one snapshot. It fails fast on
// contract violations and otherwise always returns a complete result.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if err := in.Features.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature vector: %w", err)
	}
	snap, err := features.FromJSONMap(in.Signals)
	if err != nil {
		return nil, fmt.Errorf("invalid signal snapshot: %w", err)
	}

	e.mu.RLock()
	scorer, classifier, hybrid, rules := e.scorer, e.classifier, e.hybrid, e.rules
	e.mu.RUnlock()

	scores := scorer.Score(in.Features)
	detection := classifier.Classify(scores, in.Features)
	hybridRes := hybrid.Resolve(detection, in.Samples, pattern.ResolveOptions{
		ContextAware: in.ContextAware,
		UserType:     in.UserType,
	})
	active := rules.Evaluate(snap, detection, in.UserID)

	ev := &Evaluation{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		Scores:        scoreMap(scores),
		TotalScore:    scores.Total(),
		Detection:     detection,
		Hybrid:        hybridRes,
		Interventions: active,
	}

	e.logger.Info("evaluation complete",
		zap.String("evaluation_id", ev.ID),
		zap.String("user", in.UserID),
		zap.String("pattern", string(detection.Pattern)),
		zap.Float64("confidence", detection.Confidence),
		zap.Int("interventions", len(active)))
	return ev, nil
}

// RecordResponse forwards a user response to the suppression tracker.
func (e *Evaluator) RecordResponse(userID, mrID string, action intervention.Action) (intervention.State, error) {
	e.mu.RLock()
	tracker := e.tracker
	e.mu.RUnlock()
	return tracker.RecordResponse(userID, mrID, action, 0)
}

// Close releases the suppression store.
func (e *Evaluator) Close() error {
	return e.store.Close()
}

func scoreMap(s scoring.ScoreSet) map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, c := range scoring.Codes() {
		out[string(c)] = s.Get(c)
	}
	return out
}
