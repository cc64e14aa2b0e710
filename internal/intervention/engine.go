package intervention

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"metacog/internal/features"
	"metacog/internal/pattern"
)

// MaxActive caps how many interventions are ever surfaced at once.
const MaxActive = 3

// Priority bonuses. Urgency weight is multiplied by priorityScale; the
// bonuses stack on top.
const (
	priorityScale    = 10
	patternFBonus    = 50
	riskBonus        = 30
	noIterationBonus = 20
)

// Engine evaluates the intervention rule table against a signal snapshot
// and the current pattern estimate, filtered through the suppression
// tracker.
type Engine struct {
	rules   []Rule
	tracker *Tracker
	logger  *zap.Logger
}

// NewEngine validates the rule table and builds an engine.
func NewEngine(rules []Rule, tracker *Tracker, logger *zap.Logger) (*Engine, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid intervention rules: %w", err)
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Engine{rules: cp, tracker: tracker, logger: logger}, nil
}

// Evaluate runs the rule table in order and returns the ranked, deduplicated
// active list, capped at MaxActive entries.
func (e *Engine) Evaluate(snap features.SignalSnapshot, estimate pattern.DetectionResult, userID string) []Active {
	byID := make(map[string]Active)
	for _, rule := range e.rules {
		if !rule.appliesTo(estimate.Pattern) {
			continue
		}
		if e.tracker.Suppressed(userID, rule.ID) {
			e.logger.Debug("rule suppressed",
				zap.String("mr", rule.ID), zap.String("user", userID))
			continue
		}
		if !allHold(rule.Conditions, snap) {
			continue
		}

		act := Active{
			MRID:        rule.ID,
			Name:        rule.Name,
			Urgency:     rule.Urgency,
			DisplayMode: rule.Urgency.Display(),
			Message:     renderMessage(rule, estimate),
			Priority:    e.priority(rule, snap, estimate),
		}
		if prev, ok := byID[rule.ID]; !ok || act.Priority > prev.Priority {
			byID[rule.ID] = act
		}
	}

	active := make([]Active, 0, len(byID))
	for _, a := range byID {
		active = append(active, a)
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].MRID < active[j].MRID
	})
	if len(active) > MaxActive {
		active = active[:MaxActive]
	}

	e.logger.Debug("interventions evaluated",
		zap.String("user", userID),
		zap.String("pattern", string(estimate.Pattern)),
		zap.Int("active", len(active)))
	return active
}

func allHold(conds []Condition, snap features.SignalSnapshot) bool {
	for _, c := range conds {
		if !c.Holds(snap) {
			return false
		}
	}
	return true
}

// renderMessage picks the rule's wording for the current pattern estimate:
// pattern F gets the sharper critical message when one is defined.
func renderMessage(rule Rule, estimate pattern.DetectionResult) string {
	if estimate.Pattern == pattern.PatternF && rule.CriticalMessage != "" {
		return rule.CriticalMessage
	}
	return rule.Message
}

func (e *Engine) priority(rule Rule, snap features.SignalSnapshot, estimate pattern.DetectionResult) int {
	p := rule.Urgency.weight() * priorityScale
	if estimate.Pattern == pattern.PatternF {
		p += patternFBonus
	}
	if v, ok := snap.Lookup("extreme_reliance"); ok {
		if n, isNum := v.Numeric(); (isNum && n != 0) || (v.Kind == features.KindBool && v.B) {
			p += riskBonus
		}
	}
	if v, ok := snap.Lookup("iteration_count"); ok {
		if n, isNum := v.Numeric(); isNum && n == 0 && estimate.Pattern != pattern.PatternA {
			p += noIterationBonus
		}
	}
	return p
}
