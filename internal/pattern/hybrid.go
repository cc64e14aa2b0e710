package pattern

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// =============================================================================
// HYBRID PATTERN RESOLUTION
// =============================================================================

// HybridThreshold is the minimum secondary confidence for a result to be
// surfaced as hybrid; below it the result degrades to pure-primary.
const HybridThreshold = 0.50

// sampleBonus is added to a context sample's own score when it becomes the
// secondary confidence.
const sampleBonus = 0.10

// ContextSample is one observed per-context behavior reading supplied by
// the signal source when context-aware tracking is available.
type ContextSample struct {
	Context string             `json:"context" yaml:"context"` // e.g. "simple_task"
	Pattern Letter             `json:"pattern" yaml:"pattern"`
	Score   float64            `json:"score" yaml:"score"` // local confidence [0,1]
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// ResolveOptions carries the caller hints used when no context samples
// exist.
type ResolveOptions struct {
	ContextAware bool
	UserType     string // e.g. "student", "professional"
}

// HybridResult is the resolver output. Secondary fields are populated only
// when IsHybrid is true.
type HybridResult struct {
	Primary             Letter   `json:"primary"`
	PrimaryConfidence   float64  `json:"primary_confidence"`
	IsHybrid            bool     `json:"is_hybrid"`
	Secondary           Letter   `json:"secondary,omitempty"`
	SecondaryConfidence float64  `json:"secondary_confidence,omitempty"`
	SwitchTriggers      []string `json:"switch_triggers,omitempty"`
	Description         string   `json:"description,omitempty"`
}

// PairKey identifies a (primary, secondary) pattern combination in the
// switch-trigger table. A typed key keeps missing combinations visible at
// the table literal instead of hiding behind string concatenation.
type PairKey struct {
	Primary   Letter
	Secondary Letter
}

// priorKey indexes the secondary-pattern prior table.
type priorKey struct {
	UserType string
	Primary  Letter
}

// prior is a coarse heuristic guess at a secondary pattern, used only when
// no per-context samples are available.
type prior struct {
	Secondary  Letter
	Confidence float64
}

// secondaryPriors maps (userType, primary) to a heuristic secondary
// pattern. These are priors, not derived statistics.
var secondaryPriors = map[priorKey]prior{
	{UserType: "student", Primary: PatternA}:      {Secondary: PatternE, Confidence: 0.55},
	{UserType: "student", Primary: PatternB}:      {Secondary: PatternC, Confidence: 0.52},
	{UserType: "student", Primary: PatternC}:      {Secondary: PatternE, Confidence: 0.50},
	{UserType: "student", Primary: PatternE}:      {Secondary: PatternA, Confidence: 0.55},
	{UserType: "professional", Primary: PatternA}: {Secondary: PatternB, Confidence: 0.60},
	{UserType: "professional", Primary: PatternB}: {Secondary: PatternD, Confidence: 0.55},
	{UserType: "professional", Primary: PatternC}: {Secondary: PatternB, Confidence: 0.50},
	{UserType: "professional", Primary: PatternD}: {Secondary: PatternB, Confidence: 0.55},
	{UserType: "researcher", Primary: PatternA}:   {Secondary: PatternE, Confidence: 0.60},
	{UserType: "researcher", Primary: PatternE}:   {Secondary: PatternA, Confidence: 0.60},
}

// switchTriggers maps a pattern pair to the 0-2 opaque labels shown in
// explanatory UI text. The labels drive no further logic.
var switchTriggers = map[PairKey][]string{
	{PatternA, PatternB}: {"time_pressure", "routine_subtask"},
	{PatternA, PatternC}: {"fatigue"},
	{PatternA, PatternE}: {"novel_domain", "curiosity_detour"},
	{PatternB, PatternC}: {"low_stakes_task"},
	{PatternB, PatternD}: {"tooling_focus"},
	{PatternC, PatternB}: {"rising_stakes"},
	{PatternC, PatternE}: {"novel_domain"},
	{PatternD, PatternB}: {"planning_phase"},
	{PatternE, PatternA}: {"deadline_approach", "quality_gate"},
}

// HybridResolver infers a secondary pattern for context-dependent behavior.
type HybridResolver struct {
	logger *zap.Logger
}

// NewHybridResolver builds a resolver. A nil logger becomes a no-op logger.
func NewHybridResolver(logger *zap.Logger) *HybridResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridResolver{logger: logger}
}

// Resolve looks for a second interpretation of the same behavior.
//
// With samples: the first sampled context whose pattern differs from the
// primary supplies the secondary, at that context's own score plus a small
// bonus (capped). Without samples, a context-aware caller gets a secondary
// from the fixed prior table. Either way the result is hybrid only when
// secondary confidence clears HybridThreshold.
func (r *HybridResolver) Resolve(primary DetectionResult, samples []ContextSample, opts ResolveOptions) HybridResult {
	res := HybridResult{
		Primary:           primary.Pattern,
		PrimaryConfidence: primary.Confidence,
	}

	secondary, conf, found := r.secondaryFrom(primary.Pattern, samples, opts)
	if !found || conf < HybridThreshold {
		return res
	}

	res.IsHybrid = true
	res.Secondary = secondary
	res.SecondaryConfidence = conf
	res.SwitchTriggers = switchTriggers[PairKey{Primary: primary.Pattern, Secondary: secondary}]
	res.Description = fmt.Sprintf("%s with %s under context shifts",
		primary.Pattern.Name(), secondary.Name())

	r.logger.Debug("hybrid pattern resolved",
		zap.String("primary", string(res.Primary)),
		zap.String("secondary", string(res.Secondary)),
		zap.Float64("secondary_confidence", conf))
	return res
}

func (r *HybridResolver) secondaryFrom(primary Letter, samples []ContextSample, opts ResolveOptions) (Letter, float64, bool) {
	for _, s := range samples {
		if s.Pattern.Valid() && s.Pattern != primary {
			return s.Pattern, math.Min(0.95, s.Score+sampleBonus), true
		}
	}
	if opts.ContextAware {
		if p, ok := secondaryPriors[priorKey{UserType: opts.UserType, Primary: primary}]; ok {
			return p.Secondary, p.Confidence, true
		}
	}
	return "", 0, false
}
