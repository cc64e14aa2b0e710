// Package scoring maps a raw behavioral feature vector onto the 12
// normalized subprocess scores (P1-P4 planning, M1-M3 monitoring,
// E1-E3 evaluation, R1-R2 regulation), each on the 0-3 scale.
//
// Scoring is pure and total: out-of-range inputs saturate at the clamp
// boundary instead of erroring, so a validated feature vector can never
// fail to score.
package scoring

import "fmt"

// Code identifies one subprocess dimension.
type Code string

const (
	P1 Code = "P1" // Task understanding & analysis
	P2 Code = "P2" // Goal setting
	P3 Code = "P3" // Strategy selection & planning
	P4 Code = "P4" // Role & boundary definition
	M1 Code = "M1" // Progress monitoring
	M2 Code = "M2" // Iterative refinement
	M3 Code = "M3" // Trust calibration
	E1 Code = "E1" // Error awareness
	E2 Code = "E2" // Outcome reflection
	E3 Code = "E3" // Independent verification effort
	R1 Code = "R1" // Strategy adjustment
	R2 Code = "R2" // Resource regulation
)

// Codes lists all subprocess codes in canonical order.
func Codes() []Code {
	return []Code{P1, P2, P3, P4, M1, M2, M3, E1, E2, E3, R1, R2}
}

const (
	// ScoreMax is the upper bound of every subprocess score.
	ScoreMax = 3.0
	// TotalMax is the upper bound of the summed score set.
	TotalMax = 36.0
)

// Dimension declares how one raw feature is rescaled onto one subprocess
// score. When the native range already equals [0,3] the rescale degenerates
// to a clamp, which keeps the table uniform.
type Dimension struct {
	Code    Code    `yaml:"code" json:"code"`
	Feature string  `yaml:"feature" json:"feature"`
	InMin   float64 `yaml:"in_min" json:"in_min"`
	InMax   float64 `yaml:"in_max" json:"in_max"`
}

// Validate checks the dimension table once at load time.
func ValidateDimensions(dims []Dimension) error {
	if len(dims) != len(Codes()) {
		return fmt.Errorf("dimension table has %d entries, want %d", len(dims), len(Codes()))
	}
	seen := make(map[Code]bool, len(dims))
	for _, d := range dims {
		if d.InMin >= d.InMax {
			return fmt.Errorf("dimension %s: in_min %v must be < in_max %v", d.Code, d.InMin, d.InMax)
		}
		if seen[d.Code] {
			return fmt.Errorf("dimension %s declared twice", d.Code)
		}
		seen[d.Code] = true
	}
	for _, c := range Codes() {
		if !seen[c] {
			return fmt.Errorf("dimension %s missing from table", c)
		}
	}
	return nil
}

// DefaultDimensions is the built-in feature-to-subprocess mapping.
// P1 prompt specificity, P2 goal clarity, P3 decomposition, P4 help-seeking
// balance, M1 progress tracking, M2 iteration, M3 verification (trust
// calibration), E1 error awareness, E2 reflection, E3 independent attempts,
// R1 strategy adjustment, R2 cross-model usage.
func DefaultDimensions() []Dimension {
	return []Dimension{
		{Code: P1, Feature: "prompt_specificity", InMin: 0, InMax: 10},
		{Code: P2, Feature: "goal_clarity", InMin: 0, InMax: 5},
		{Code: P3, Feature: "task_decomposition", InMin: 0, InMax: 5},
		{Code: P4, Feature: "help_seeking_balance", InMin: 0, InMax: 1},
		{Code: M1, Feature: "progress_tracking", InMin: 0, InMax: 1},
		{Code: M2, Feature: "iteration_frequency", InMin: 0, InMax: 1},
		{Code: M3, Feature: "verification_rate", InMin: 0, InMax: 1},
		{Code: E1, Feature: "error_awareness", InMin: 0, InMax: 1},
		{Code: E2, Feature: "outcome_reflection", InMin: 0, InMax: 1},
		{Code: E3, Feature: "independent_attempt_rate", InMin: 0, InMax: 1},
		{Code: R1, Feature: "strategy_adjustment", InMin: 0, InMax: 1},
		{Code: R2, Feature: "cross_model_usage", InMin: 0, InMax: 3},
	}
}

// ScoreSet holds the 12 normalized subprocess scores.
type ScoreSet map[Code]float64

// Get returns the score for a code (0 for unknown codes).
func (s ScoreSet) Get(c Code) float64 { return s[c] }

// Total sums all 12 scores. Range [0,36].
func (s ScoreSet) Total() float64 {
	var sum float64
	for _, c := range Codes() {
		sum += s[c]
	}
	return sum
}

// PlanningAvg averages P1-P4.
func (s ScoreSet) PlanningAvg() float64 {
	return (s[P1] + s[P2] + s[P3] + s[P4]) / 4
}

// MonitoringAvg averages M1-M3.
func (s ScoreSet) MonitoringAvg() float64 {
	return (s[M1] + s[M2] + s[M3]) / 3
}

// EvaluationAvg averages E1-E3.
func (s ScoreSet) EvaluationAvg() float64 {
	return (s[E1] + s[E2] + s[E3]) / 3
}

// RegulationAvg averages R1-R2.
func (s ScoreSet) RegulationAvg() float64 {
	return (s[R1] + s[R2]) / 2
}

// HighScores returns the codes at or above the salience threshold,
// in canonical order. Used for the classification rationale.
func (s ScoreSet) HighScores(threshold float64) []Code {
	var out []Code
	for _, c := range Codes() {
		if s[c] >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Metric resolves a rule-table metric name against the score set.
// Accepted names: subprocess codes ("P1".."R2"), group averages
// ("p_avg", "m_avg", "e_avg", "r_avg"), and "total".
func (s ScoreSet) Metric(name string) (float64, bool) {
	switch name {
	case "p_avg":
		return s.PlanningAvg(), true
	case "m_avg":
		return s.MonitoringAvg(), true
	case "e_avg":
		return s.EvaluationAvg(), true
	case "r_avg":
		return s.RegulationAvg(), true
	case "total":
		return s.Total(), true
	}
	for _, c := range Codes() {
		if string(c) == name {
			return s[c], true
		}
	}
	return 0, false
}
