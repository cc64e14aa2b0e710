package pattern

import (
	"fmt"

	"metacog/internal/scoring"
)

// =============================================================================
// DECLARATIVE RULE CONFIGURATION
// =============================================================================
// Every numeric threshold in the classifier lives here, so the rule tables
// can be overridden from configuration for experimentation without touching
// the evaluation engine.

// MetricOp compares a score-set metric against a rule threshold.
type MetricOp string

const (
	MetricGE MetricOp = "ge"
	MetricGT MetricOp = "gt"
	MetricLE MetricOp = "le"
	MetricLT MetricOp = "lt"
)

// MetricCondition is one sub-condition of a pattern rule, evaluated against
// the subprocess score set (codes, group averages, or "total").
type MetricCondition struct {
	Metric      string   `yaml:"metric" json:"metric"`
	Op          MetricOp `yaml:"op" json:"op"`
	Threshold   float64  `yaml:"threshold" json:"threshold"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

func (c MetricCondition) holds(scores scoring.ScoreSet) bool {
	v, ok := scores.Metric(c.Metric)
	if !ok {
		return false
	}
	switch c.Op {
	case MetricGE:
		return v >= c.Threshold
	case MetricGT:
		return v > c.Threshold
	case MetricLE:
		return v <= c.Threshold
	case MetricLT:
		return v < c.Threshold
	default:
		// Unknown operators fail closed.
		return false
	}
}

// Rule is the declarative match rule for one non-F pattern. The first
// CoreConditions entries of Conditions are the core subset: a pattern
// matches only if every core condition holds and the total score clears
// MinTotal. Confidence is the satisfied fraction of all conditions, with a
// bonus when the full core subset holds.
type Rule struct {
	Pattern        Letter            `yaml:"pattern" json:"pattern"`
	CoreConditions int               `yaml:"core_conditions" json:"core_conditions"`
	Conditions     []MetricCondition `yaml:"conditions" json:"conditions"`
	MinTotal       float64           `yaml:"min_total" json:"min_total"`
}

// RedFlag is one weighted risk signal in the pattern F scheme. It
// contributes Weight points when the named metric falls at or below its
// low-end threshold. Metrics resolve against raw features first
// (feature tag names), then against the score set ("total").
type RedFlag struct {
	Metric      string  `yaml:"metric" json:"metric"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`
	Weight      int     `yaml:"weight" json:"weight"`
	Description string  `yaml:"description" json:"description"`
}

// RedFlagConfig holds the weighted red-flag scheme for pattern F.
type RedFlagConfig struct {
	Flags          []RedFlag `yaml:"flags" json:"flags"`
	TriggerScore   int       `yaml:"trigger_score" json:"trigger_score"`
	HighRiskScore  int       `yaml:"high_risk_score" json:"high_risk_score"`
	BaseConfidence float64   `yaml:"base_confidence" json:"base_confidence"`
	ConfidenceStep float64   `yaml:"confidence_step" json:"confidence_step"`
}

// Config is the full classifier rule table.
type Config struct {
	RedFlags          RedFlagConfig `yaml:"red_flags" json:"red_flags"`
	Rules             []Rule        `yaml:"rules" json:"rules"`
	Fallback          Letter        `yaml:"fallback" json:"fallback"`
	SalienceThreshold float64       `yaml:"salience_threshold" json:"salience_threshold"`
	CoreBonus         float64       `yaml:"core_bonus" json:"core_bonus"`
	ConfidenceCap     float64       `yaml:"confidence_cap" json:"confidence_cap"`
}

// Validate checks the rule table once at load time so evaluation never has
// to handle malformed rules.
func (c Config) Validate() error {
	if !c.Fallback.Valid() || c.Fallback == PatternF {
		return fmt.Errorf("fallback must be a non-F pattern, got %q", c.Fallback)
	}
	if c.RedFlags.TriggerScore <= 0 {
		return fmt.Errorf("red flag trigger score must be positive")
	}
	if c.RedFlags.HighRiskScore < c.RedFlags.TriggerScore {
		return fmt.Errorf("high risk score %d below trigger score %d",
			c.RedFlags.HighRiskScore, c.RedFlags.TriggerScore)
	}
	if len(c.RedFlags.Flags) == 0 {
		return fmt.Errorf("red flag table is empty")
	}
	for i, f := range c.RedFlags.Flags {
		if f.Weight <= 0 {
			return fmt.Errorf("red flag %d (%s): weight must be positive", i, f.Metric)
		}
	}
	seen := make(map[Letter]bool)
	fallbackRuled := false
	for i, r := range c.Rules {
		if !r.Pattern.Valid() || r.Pattern == PatternF {
			return fmt.Errorf("rule %d: pattern %q is not a valid non-F pattern", i, r.Pattern)
		}
		if seen[r.Pattern] {
			return fmt.Errorf("rule %d: duplicate rule for pattern %s", i, r.Pattern)
		}
		seen[r.Pattern] = true
		if len(r.Conditions) == 0 {
			return fmt.Errorf("rule %d (%s): no conditions", i, r.Pattern)
		}
		if r.CoreConditions <= 0 || r.CoreConditions > len(r.Conditions) {
			return fmt.Errorf("rule %d (%s): core_conditions %d out of range 1..%d",
				i, r.Pattern, r.CoreConditions, len(r.Conditions))
		}
		if r.Pattern == c.Fallback {
			fallbackRuled = true
		}
	}
	if !fallbackRuled {
		return fmt.Errorf("fallback pattern %s has no rule", c.Fallback)
	}
	return nil
}

// DefaultConfig is the built-in rule table. The A-E group-average
// conditions follow the calibrated rule classifier; pattern C is the
// deliberately generous adaptive default.
func DefaultConfig() Config {
	return Config{
		SalienceThreshold: 2.5,
		CoreBonus:         0.10,
		ConfidenceCap:     0.95,
		Fallback:          PatternC,
		RedFlags: RedFlagConfig{
			TriggerScore:   5,
			HighRiskScore:  8,
			BaseConfidence: 0.60,
			ConfidenceStep: 0.05,
			Flags: []RedFlag{
				{Metric: "verification_rate", Threshold: 0.2, Weight: 3,
					Description: "almost never verifies AI output"},
				{Metric: "prompt_specificity", Threshold: 4, Weight: 2,
					Description: "vague, low-effort prompting"},
				{Metric: "iteration_frequency", Threshold: 0.2, Weight: 2,
					Description: "accepts first answers without iteration"},
				{Metric: "error_awareness", Threshold: 0.3, Weight: 2,
					Description: "misses most AI mistakes"},
				{Metric: "total", Threshold: 15, Weight: 3,
					Description: "low engagement across all subprocesses"},
			},
		},
		Rules: []Rule{
			{
				Pattern:        PatternA,
				CoreConditions: 3,
				MinTotal:       20,
				Conditions: []MetricCondition{
					{Metric: "M3", Op: MetricGE, Threshold: 2.5, Description: "high verification"},
					{Metric: "P1", Op: MetricGE, Threshold: 2.5, Description: "specific prompting"},
					{Metric: "E3", Op: MetricGE, Threshold: 2.5, Description: "independent attempts"},
					{Metric: "E1", Op: MetricGE, Threshold: 2.0, Description: "notices errors"},
					{Metric: "e_avg", Op: MetricGE, Threshold: 2.0, Description: "strong evaluation"},
					{Metric: "total", Op: MetricGE, Threshold: 22, Description: "broad engagement"},
				},
			},
			{
				Pattern:        PatternB,
				CoreConditions: 3,
				MinTotal:       18,
				Conditions: []MetricCondition{
					{Metric: "P1", Op: MetricGE, Threshold: 2.5, Description: "specific prompting"},
					{Metric: "P2", Op: MetricGE, Threshold: 2.5, Description: "clear goals"},
					{Metric: "p_avg", Op: MetricGE, Threshold: 2.5, Description: "strong planning"},
					{Metric: "m_avg", Op: MetricGE, Threshold: 2.0, Description: "active monitoring"},
					{Metric: "r_avg", Op: MetricLT, Threshold: 2.0, Description: "limited regulation"},
				},
			},
			{
				// Adaptive default: generous mid-band rule so the
				// fallback always has a plausible match.
				Pattern:        PatternC,
				CoreConditions: 3,
				MinTotal:       10,
				Conditions: []MetricCondition{
					{Metric: "total", Op: MetricGE, Threshold: 10, Description: "moderate engagement"},
					{Metric: "total", Op: MetricLE, Threshold: 30, Description: "not at ceiling"},
					{Metric: "m_avg", Op: MetricGE, Threshold: 0.8, Description: "some monitoring"},
					{Metric: "e_avg", Op: MetricLE, Threshold: 2.0, Description: "balanced evaluation"},
					{Metric: "p_avg", Op: MetricLE, Threshold: 2.5, Description: "balanced planning"},
					{Metric: "r_avg", Op: MetricGE, Threshold: 0.8, Description: "some regulation"},
				},
			},
			{
				Pattern:        PatternD,
				CoreConditions: 3,
				MinTotal:       22,
				Conditions: []MetricCondition{
					{Metric: "M1", Op: MetricGE, Threshold: 2.5, Description: "tracks progress closely"},
					{Metric: "M2", Op: MetricGE, Threshold: 2.5, Description: "heavy iteration"},
					{Metric: "m_avg", Op: MetricGE, Threshold: 2.5, Description: "strong monitoring"},
					{Metric: "total", Op: MetricGE, Threshold: 22, Description: "sustained engagement"},
					{Metric: "e_avg", Op: MetricGE, Threshold: 1.5, Description: "working evaluation"},
				},
			},
			{
				Pattern:        PatternE,
				CoreConditions: 3,
				MinTotal:       16,
				Conditions: []MetricCondition{
					{Metric: "R1", Op: MetricGE, Threshold: 2.5, Description: "adjusts strategy"},
					{Metric: "R2", Op: MetricGE, Threshold: 2.5, Description: "uses multiple resources"},
					{Metric: "r_avg", Op: MetricGE, Threshold: 2.5, Description: "strong regulation"},
					{Metric: "p_avg", Op: MetricGE, Threshold: 2.0, Description: "deliberate planning"},
					{Metric: "total", Op: MetricGE, Threshold: 18, Description: "broad engagement"},
				},
			},
		},
	}
}
