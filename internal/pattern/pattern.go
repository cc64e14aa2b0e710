// Package pattern implements the behavioral pattern classifier and the
// hybrid pattern resolver.
//
// The classifier is a priority-ordered decision list over the 12 subprocess
// scores, not a trained estimator. Pattern F (passive over-reliance) is
// evaluated first through a weighted red-flag scheme and wins
// unconditionally when it fires, because it signals risk and must not be
// masked by a higher-scoring pattern elsewhere. The remaining patterns A-E
// are evaluated independently against declarative rule configs and the
// highest-confidence match wins; pattern C is the generous adaptive default
// so the classifier always returns exactly one result.
package pattern

import "fmt"

// Letter is one of the six metacognitive usage patterns.
type Letter string

const (
	PatternA Letter = "A" // Active critical engagement
	PatternB Letter = "B" // Selective engagement
	PatternC Letter = "C" // Moderate balanced use (adaptive default)
	PatternD Letter = "D" // Tool-oriented use
	PatternE Letter = "E" // Exploratory learning
	PatternF Letter = "F" // Passive over-reliance (risk signal)
)

// Letters lists all patterns in lexical order, which is also the
// documented tie-break order for equal-confidence candidates.
func Letters() []Letter {
	return []Letter{PatternA, PatternB, PatternC, PatternD, PatternE, PatternF}
}

// Valid reports whether l is one of the six pattern letters.
func (l Letter) Valid() bool {
	switch l {
	case PatternA, PatternB, PatternC, PatternD, PatternE, PatternF:
		return true
	}
	return false
}

// Name returns the descriptive pattern name.
func (l Letter) Name() string {
	switch l {
	case PatternA:
		return "Active Critical Engagement"
	case PatternB:
		return "Selective Engagement"
	case PatternC:
		return "Moderate Balanced Use"
	case PatternD:
		return "Tool-Oriented Use"
	case PatternE:
		return "Exploratory Learning"
	case PatternF:
		return "Passive Over-Reliance"
	default:
		return "Unknown"
	}
}

// AlertLevel marks a risk classification. Only pattern F results carry one.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertHighRisk AlertLevel = "high_risk"
)

// Rationale explains a detection in terms a person can check against the
// score set.
type Rationale struct {
	HighScores    []string `json:"high_scores"`
	TotalScore    float64  `json:"total_score"`
	KeyIndicators []string `json:"key_indicators,omitempty"`
}

// DetectionResult is the classifier output: exactly one winning pattern,
// its confidence, and the supporting rationale. Created once per
// evaluation and never mutated.
type DetectionResult struct {
	Pattern             Letter     `json:"pattern"`
	Confidence          float64    `json:"confidence"`
	Rationale           Rationale  `json:"rationale"`
	Alert               AlertLevel `json:"alert,omitempty"`
	AlternativePatterns []Letter   `json:"alternative_patterns,omitempty"`
}

// Candidate is one evaluated pattern rule: whether it matched and how
// strongly its conditions were satisfied.
type Candidate struct {
	Pattern    Letter
	Matched    bool
	Confidence float64
	Satisfied  []string // descriptions of satisfied conditions
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s(match=%v conf=%.2f)", c.Pattern, c.Matched, c.Confidence)
}
