// Package features defines the raw behavioral inputs to the metacognitive
// pattern pipeline: the per-evaluation feature vector captured by the chat
// orchestration layer, and the live signal snapshot consumed by the
// intervention rule engine.
//
// Both types are plain data. Validation happens once at the boundary; every
// downstream component treats a validated vector as total input and never
// errors on its values.
package features

import (
	"fmt"
	"math"
)

// FeatureVector is a per-evaluation snapshot of 12 raw behavioral
// measurements. Each field keeps its native range; normalization to the
// 0-3 subprocess scale happens in the scoring package.
//
// The vector is immutable once captured. It is owned by the signal source
// (the chat session orchestrator) and passed by value through the pipeline.
type FeatureVector struct {
	// VerificationRate is the fraction of AI outputs the user checked
	// against another source before accepting. Range [0,1].
	VerificationRate float64 `json:"verification_rate" yaml:"verification_rate"`

	// PromptSpecificity measures how concrete and constrained the user's
	// prompts are. Range [0,10].
	PromptSpecificity float64 `json:"prompt_specificity" yaml:"prompt_specificity"`

	// IterationFrequency is the fraction of turns where the user refined
	// a previous request instead of accepting the first answer. Range [0,1].
	IterationFrequency float64 `json:"iteration_frequency" yaml:"iteration_frequency"`

	// ErrorAwareness is the fraction of AI mistakes the user noticed.
	// Range [0,1].
	ErrorAwareness float64 `json:"error_awareness" yaml:"error_awareness"`

	// IndependentAttemptRate is the fraction of tasks the user attempted
	// themselves before asking the assistant. Range [0,1].
	IndependentAttemptRate float64 `json:"independent_attempt_rate" yaml:"independent_attempt_rate"`

	// TaskDecomposition measures how far the user breaks work into
	// explicit steps. Range [0,5].
	TaskDecomposition float64 `json:"task_decomposition" yaml:"task_decomposition"`

	// GoalClarity measures how explicit and measurable the stated goal is.
	// Range [0,5].
	GoalClarity float64 `json:"goal_clarity" yaml:"goal_clarity"`

	// StrategyAdjustment is the fraction of stalled exchanges where the
	// user changed approach rather than repeating the same ask. Range [0,1].
	StrategyAdjustment float64 `json:"strategy_adjustment" yaml:"strategy_adjustment"`

	// ProgressTracking is the fraction of turns with explicit progress
	// checks against the goal. Range [0,1].
	ProgressTracking float64 `json:"progress_tracking" yaml:"progress_tracking"`

	// OutcomeReflection is the fraction of completed tasks followed by an
	// explicit quality judgment. Range [0,1].
	OutcomeReflection float64 `json:"outcome_reflection" yaml:"outcome_reflection"`

	// CrossModelUsage counts distinct verification channels (other models,
	// docs, tests) used in the session. Already on the 0-3 scale.
	CrossModelUsage float64 `json:"cross_model_usage" yaml:"cross_model_usage"`

	// HelpSeekingBalance measures how deliberately the user divides work
	// between themselves and the assistant. Range [0,1].
	HelpSeekingBalance float64 `json:"help_seeking_balance" yaml:"help_seeking_balance"`

	// TasksCompleted and TurnCount are session counters used for contract
	// validation and signal derivation, not for subprocess scoring.
	TasksCompleted int `json:"tasks_completed" yaml:"tasks_completed"`
	TurnCount      int `json:"turn_count" yaml:"turn_count"`
}

// Validate rejects contract violations by the caller before scoring begins.
// Out-of-range float values are NOT errors (the scorer clamps them); only
// structurally impossible input is rejected here.
func (fv FeatureVector) Validate() error {
	if fv.TasksCompleted < 0 {
		return fmt.Errorf("tasks_completed must be >= 0, got %d", fv.TasksCompleted)
	}
	if fv.TurnCount < 0 {
		return fmt.Errorf("turn_count must be >= 0, got %d", fv.TurnCount)
	}
	for name, v := range map[string]float64{
		"verification_rate":        fv.VerificationRate,
		"prompt_specificity":       fv.PromptSpecificity,
		"iteration_frequency":      fv.IterationFrequency,
		"error_awareness":          fv.ErrorAwareness,
		"independent_attempt_rate": fv.IndependentAttemptRate,
		"task_decomposition":       fv.TaskDecomposition,
		"goal_clarity":             fv.GoalClarity,
		"strategy_adjustment":      fv.StrategyAdjustment,
		"progress_tracking":        fv.ProgressTracking,
		"outcome_reflection":       fv.OutcomeReflection,
		"cross_model_usage":        fv.CrossModelUsage,
		"help_seeking_balance":     fv.HelpSeekingBalance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %s is not a finite number", name)
		}
	}
	return nil
}

// Get returns the named feature value. Names match the JSON/YAML tags.
// The boolean reports whether the name is a known feature.
func (fv FeatureVector) Get(name string) (float64, bool) {
	switch name {
	case "verification_rate":
		return fv.VerificationRate, true
	case "prompt_specificity":
		return fv.PromptSpecificity, true
	case "iteration_frequency":
		return fv.IterationFrequency, true
	case "error_awareness":
		return fv.ErrorAwareness, true
	case "independent_attempt_rate":
		return fv.IndependentAttemptRate, true
	case "task_decomposition":
		return fv.TaskDecomposition, true
	case "goal_clarity":
		return fv.GoalClarity, true
	case "strategy_adjustment":
		return fv.StrategyAdjustment, true
	case "progress_tracking":
		return fv.ProgressTracking, true
	case "outcome_reflection":
		return fv.OutcomeReflection, true
	case "cross_model_usage":
		return fv.CrossModelUsage, true
	case "help_seeking_balance":
		return fv.HelpSeekingBalance, true
	default:
		return 0, false
	}
}

// FeatureNames lists the 12 scoreable feature names in declaration order.
func FeatureNames() []string {
	return []string{
		"verification_rate",
		"prompt_specificity",
		"iteration_frequency",
		"error_awareness",
		"independent_attempt_rate",
		"task_decomposition",
		"goal_clarity",
		"strategy_adjustment",
		"progress_tracking",
		"outcome_reflection",
		"cross_model_usage",
		"help_seeking_balance",
	}
}
