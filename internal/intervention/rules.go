// Package intervention implements the adaptive intervention rule engine and
// the per-user suppression tracker that feeds back into rule eligibility.
//
// Rules are data: a rule table is validated once at load time and then
// evaluated as pure predicates over a live signal snapshot and the current
// pattern estimate. The engine never shows more than three interventions at
// once and collapses duplicate ids to the highest-priority instance.
package intervention

import (
	"fmt"

	"metacog/internal/features"
	"metacog/internal/pattern"
)

// Operator is the closed set of trigger-condition comparators. Unknown
// operators fail closed: the condition is false, never a crash.
type Operator string

const (
	OpLT Operator = "lt"
	OpGT Operator = "gt"
	OpLE Operator = "le"
	OpGE Operator = "ge"
	OpEQ Operator = "eq"
	OpNE Operator = "ne"
	OpIn Operator = "in"
)

// Urgency is the intervention tier.
type Urgency string

const (
	UrgencyObserve Urgency = "observe" // non-blocking
	UrgencyRemind  Urgency = "remind"  // visible, non-blocking
	UrgencyEnforce Urgency = "enforce" // blocking, needs explicit action
)

// DisplayMode derives 1:1 from the urgency tier.
type DisplayMode string

const (
	DisplayInline  DisplayMode = "inline"
	DisplaySidebar DisplayMode = "sidebar"
	DisplayModal   DisplayMode = "modal"
)

// Display returns the display mode for a tier.
func (u Urgency) Display() DisplayMode {
	switch u {
	case UrgencyRemind:
		return DisplaySidebar
	case UrgencyEnforce:
		return DisplayModal
	default:
		return DisplayInline
	}
}

func (u Urgency) weight() int {
	switch u {
	case UrgencyEnforce:
		return 3
	case UrgencyRemind:
		return 2
	case UrgencyObserve:
		return 1
	default:
		return 0
	}
}

func (u Urgency) valid() bool {
	return u == UrgencyObserve || u == UrgencyRemind || u == UrgencyEnforce
}

// Condition is one trigger predicate over the signal snapshot. Numeric
// operators use Value; OpIn matches string signals against Values.
// Type mismatches and missing signals fail closed.
type Condition struct {
	Signal      string   `yaml:"signal" json:"signal"`
	Op          Operator `yaml:"op" json:"op"`
	Value       float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Values      []string `yaml:"values,omitempty" json:"values,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// Holds evaluates the condition against a snapshot.
func (c Condition) Holds(snap features.SignalSnapshot) bool {
	v, ok := snap.Lookup(c.Signal)
	if !ok {
		return false
	}
	switch c.Op {
	case OpLT, OpGT, OpLE, OpGE:
		n, ok := v.Numeric()
		if !ok {
			return false
		}
		switch c.Op {
		case OpLT:
			return n < c.Value
		case OpGT:
			return n > c.Value
		case OpLE:
			return n <= c.Value
		default:
			return n >= c.Value
		}
	case OpEQ, OpNE:
		eq := false
		switch v.Kind {
		case features.KindBool:
			eq = v.B == (c.Value != 0)
		case features.KindString:
			eq = len(c.Values) == 1 && v.S == c.Values[0]
		default:
			n, ok := v.Numeric()
			if !ok {
				return false
			}
			eq = n == c.Value
		}
		if c.Op == OpNE {
			return !eq
		}
		return eq
	case OpIn:
		if v.Kind != features.KindString {
			return false
		}
		for _, s := range c.Values {
			if v.S == s {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Rule is one entry of the intervention rule table. Conditions combine
// with AND semantics; TargetPatterns, when non-empty, gate the rule to
// those primary patterns.
type Rule struct {
	ID              string           `yaml:"id" json:"id"`
	Name            string           `yaml:"name" json:"name"`
	Urgency         Urgency          `yaml:"urgency" json:"urgency"`
	TargetPatterns  []pattern.Letter `yaml:"target_patterns,omitempty" json:"target_patterns,omitempty"`
	Conditions      []Condition      `yaml:"conditions" json:"conditions"`
	Message         string           `yaml:"message" json:"message"`
	CriticalMessage string           `yaml:"critical_message,omitempty" json:"critical_message,omitempty"`
	Description     string           `yaml:"description,omitempty" json:"description,omitempty"`
}

func (r Rule) appliesTo(p pattern.Letter) bool {
	if len(r.TargetPatterns) == 0 {
		return true
	}
	for _, t := range r.TargetPatterns {
		if t == p {
			return true
		}
	}
	return false
}

// Active is one surfaced intervention, recomputed every evaluation and
// never persisted by the engine itself.
type Active struct {
	MRID        string      `json:"mr_id"`
	Name        string      `json:"name"`
	Urgency     Urgency     `json:"urgency"`
	DisplayMode DisplayMode `json:"display_mode"`
	Message     string      `json:"message"`
	Priority    int         `json:"priority"`
}

// ValidateRules checks a rule table once at load time.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule %d: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("rule %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if !r.Urgency.valid() {
			return fmt.Errorf("rule %s: unknown urgency %q", r.ID, r.Urgency)
		}
		if len(r.Conditions) == 0 {
			return fmt.Errorf("rule %s: no trigger conditions", r.ID)
		}
		for j, c := range r.Conditions {
			if c.Signal == "" {
				return fmt.Errorf("rule %s condition %d: signal is required", r.ID, j)
			}
			switch c.Op {
			case OpLT, OpGT, OpLE, OpGE, OpEQ, OpNE:
			case OpIn:
				if len(c.Values) == 0 {
					return fmt.Errorf("rule %s condition %d: 'in' needs values", r.ID, j)
				}
			default:
				return fmt.Errorf("rule %s condition %d: unknown operator %q", r.ID, j, c.Op)
			}
		}
		for _, p := range r.TargetPatterns {
			if !p.Valid() {
				return fmt.Errorf("rule %s: unknown target pattern %q", r.ID, p)
			}
		}
	}
	return nil
}

// DefaultRules is the built-in intervention rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:      "mr_verify_prompt",
			Name:    "Verification Nudge",
			Urgency: UrgencyRemind,
			Conditions: []Condition{
				{Signal: "verification_rate", Op: OpLT, Value: 0.3,
					Description: "low verification"},
				{Signal: "turns_since_verification", Op: OpGE, Value: 5,
					Description: "long unverified streak"},
			},
			Message:         "You have accepted several answers in a row without checking them. Try verifying the last one.",
			CriticalMessage: "None of the recent answers were checked. Verify the last answer before relying on it.",
		},
		{
			ID:      "mr_specificity_coach",
			Name:    "Prompt Specificity Coach",
			Urgency: UrgencyObserve,
			Conditions: []Condition{
				{Signal: "prompt_specificity", Op: OpLT, Value: 4,
					Description: "vague prompting"},
			},
			Message: "Adding constraints and context to your prompts usually improves the answers.",
		},
		{
			ID:             "mr_iteration_nudge",
			Name:           "Iteration Nudge",
			Urgency:        UrgencyRemind,
			TargetPatterns: []pattern.Letter{pattern.PatternC, pattern.PatternD, pattern.PatternF},
			Conditions: []Condition{
				{Signal: "iteration_count", Op: OpEQ, Value: 0,
					Description: "no refinement this session"},
				{Signal: "turn_count", Op: OpGE, Value: 4,
					Description: "enough turns to iterate"},
			},
			Message:         "First answers are rarely the best ones. Ask a follow-up to refine the result.",
			CriticalMessage: "Every answer so far was accepted as-is. Push back on at least one before moving on.",
		},
		{
			ID:             "mr_reliance_barrier",
			Name:           "Independent Attempt Barrier",
			Urgency:        UrgencyEnforce,
			TargetPatterns: []pattern.Letter{pattern.PatternF},
			Conditions: []Condition{
				{Signal: "extreme_reliance", Op: OpEQ, Value: 1,
					Description: "extreme reliance flagged"},
			},
			Message:         "Try sketching your own approach before asking for the full solution.",
			CriticalMessage: "The assistant has produced every solution this session. Write your own attempt first; the answer stays available.",
		},
		{
			ID:      "mr_reflection_prompt",
			Name:    "Reflection Prompt",
			Urgency: UrgencyObserve,
			Conditions: []Condition{
				{Signal: "tasks_completed", Op: OpGE, Value: 3,
					Description: "several tasks done"},
				{Signal: "outcome_reflection", Op: OpLT, Value: 0.2,
					Description: "no quality judgments"},
			},
			Message: "You finished a few tasks without judging the results. Which one are you least sure about?",
		},
		{
			ID:             "mr_strategy_switch",
			Name:           "Strategy Switch Hint",
			Urgency:        UrgencyRemind,
			TargetPatterns: []pattern.Letter{pattern.PatternC, pattern.PatternD},
			Conditions: []Condition{
				{Signal: "repeated_prompt_count", Op: OpGE, Value: 3,
					Description: "same ask repeated"},
				{Signal: "task_type", Op: OpIn, Values: []string{"debugging", "writing", "analysis"},
					Description: "retry-prone task type"},
			},
			Message: "Repeating the same request rarely changes the answer. Try rephrasing the problem or splitting it up.",
		},
	}
}
