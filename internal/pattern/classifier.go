package pattern

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"metacog/internal/features"
	"metacog/internal/scoring"
)

// Classifier evaluates the rule table against a score set. It is stateless
// after construction; classifying the same input twice yields an identical
// result.
type Classifier struct {
	cfg    Config
	logger *zap.Logger
}

// NewClassifier validates the rule table and builds a classifier.
// A nil logger is replaced with a no-op logger.
func NewClassifier(cfg Config, logger *zap.Logger) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pattern config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{cfg: cfg, logger: logger}, nil
}

// Classify returns exactly one DetectionResult for a well-formed input.
//
// Order of evaluation is fixed: the pattern F red-flag scheme runs first
// and wins unconditionally when it fires; otherwise every A-E rule is
// evaluated independently and the highest-confidence match wins, with
// lexical pattern order as the deterministic tie-break. When nothing
// matches the fallback pattern is returned, never a null result.
func (c *Classifier) Classify(scores scoring.ScoreSet, fv features.FeatureVector) DetectionResult {
	total := scores.Total()
	highScores := codeStrings(scores.HighScores(c.cfg.SalienceThreshold))

	if res, fired := c.classifyRedFlags(scores, fv, total, highScores); fired {
		return res
	}

	candidates := make([]Candidate, 0, len(c.cfg.Rules))
	for _, rule := range c.cfg.Rules {
		candidates = append(candidates, c.evaluateRule(rule, scores, total))
	}

	best, ok := pickWinner(candidates)
	if !ok {
		// Structurally unlikely given the generous fallback rule, but the
		// contract is explicit: callers never receive "no result".
		c.logger.Debug("no pattern rule matched, using fallback",
			zap.String("fallback", string(c.cfg.Fallback)),
			zap.Float64("total", total))
		return DetectionResult{
			Pattern:    c.cfg.Fallback,
			Confidence: 0.50,
			Rationale: Rationale{
				HighScores:    highScores,
				TotalScore:    total,
				KeyIndicators: []string{"no rule matched, adaptive default"},
			},
		}
	}

	var alternatives []Letter
	for _, cand := range candidates {
		if cand.Matched && cand.Pattern != best.Pattern {
			alternatives = append(alternatives, cand.Pattern)
		}
	}
	sort.Slice(alternatives, func(i, j int) bool { return alternatives[i] < alternatives[j] })

	c.logger.Debug("pattern classified",
		zap.String("pattern", string(best.Pattern)),
		zap.Float64("confidence", best.Confidence),
		zap.Float64("total", total))

	return DetectionResult{
		Pattern:    best.Pattern,
		Confidence: best.Confidence,
		Rationale: Rationale{
			HighScores:    highScores,
			TotalScore:    total,
			KeyIndicators: best.Satisfied,
		},
		AlternativePatterns: alternatives,
	}
}

// classifyRedFlags runs the weighted pattern F scheme. Each flag
// contributes its weight when the metric sits at or below the low-end
// threshold; the cumulative score decides both the match and the alert
// level.
func (c *Classifier) classifyRedFlags(scores scoring.ScoreSet, fv features.FeatureVector, total float64, highScores []string) (DetectionResult, bool) {
	rf := c.cfg.RedFlags
	score := 0
	var indicators []string
	for _, flag := range rf.Flags {
		v, ok := fv.Get(flag.Metric)
		if !ok {
			if v, ok = scores.Metric(flag.Metric); !ok {
				continue
			}
		}
		if v <= flag.Threshold {
			score += flag.Weight
			indicators = append(indicators, flag.Description)
		}
	}
	if score < rf.TriggerScore {
		return DetectionResult{}, false
	}

	alert := AlertWarning
	if score >= rf.HighRiskScore {
		alert = AlertHighRisk
	}
	conf := rf.BaseConfidence + rf.ConfidenceStep*float64(score-rf.TriggerScore)
	conf = math.Min(c.cfg.ConfidenceCap, conf)

	c.logger.Debug("red flags triggered pattern F",
		zap.Int("flag_score", score),
		zap.String("alert", string(alert)),
		zap.Float64("confidence", conf))

	return DetectionResult{
		Pattern:    PatternF,
		Confidence: conf,
		Alert:      alert,
		Rationale: Rationale{
			HighScores:    highScores,
			TotalScore:    total,
			KeyIndicators: indicators,
		},
	}, true
}

// evaluateRule scores one A-E rule: match requires the full core subset
// plus the total-score floor; confidence is the satisfied fraction of all
// conditions with a bonus when the core subset holds, capped.
func (c *Classifier) evaluateRule(rule Rule, scores scoring.ScoreSet, total float64) Candidate {
	satisfied := 0
	coreSatisfied := 0
	var descriptions []string
	for i, cond := range rule.Conditions {
		if !cond.holds(scores) {
			continue
		}
		satisfied++
		if i < rule.CoreConditions {
			coreSatisfied++
		}
		if cond.Description != "" {
			descriptions = append(descriptions, cond.Description)
		}
	}

	coreOK := coreSatisfied == rule.CoreConditions
	conf := float64(satisfied) / float64(len(rule.Conditions))
	if coreOK {
		conf += c.cfg.CoreBonus
	}
	conf = math.Min(c.cfg.ConfidenceCap, conf)

	return Candidate{
		Pattern:    rule.Pattern,
		Matched:    coreOK && total >= rule.MinTotal,
		Confidence: conf,
		Satisfied:  descriptions,
	}
}

// pickWinner selects the highest-confidence matching candidate. Equal
// confidence breaks toward the lexically first pattern, which keeps the
// outcome deterministic regardless of rule-table order.
func pickWinner(candidates []Candidate) (Candidate, bool) {
	var best Candidate
	found := false
	for _, cand := range candidates {
		if !cand.Matched {
			continue
		}
		switch {
		case !found:
			best, found = cand, true
		case cand.Confidence > best.Confidence:
			best = cand
		case cand.Confidence == best.Confidence && cand.Pattern < best.Pattern:
			best = cand
		}
	}
	return best, found
}

func codeStrings(codes []scoring.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
