package scoring

import (
	"testing"

	"metacog/internal/features"
)

func midRangeVector() features.FeatureVector {
	return features.FeatureVector{
		VerificationRate:       0.5,
		PromptSpecificity:      5,
		IterationFrequency:     0.5,
		ErrorAwareness:         0.5,
		IndependentAttemptRate: 0.5,
		TaskDecomposition:      2.5,
		GoalClarity:            2.5,
		StrategyAdjustment:     0.5,
		ProgressTracking:       0.5,
		OutcomeReflection:      0.5,
		CrossModelUsage:        1.5,
		HelpSeekingBalance:     0.5,
	}
}

func TestScorer_MidRange(t *testing.T) {
	s, err := NewScorer(nil)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	scores := s.Score(midRangeVector())
	for _, c := range Codes() {
		if scores[c] != 1.5 {
			t.Errorf("score %s = %v, want 1.5", c, scores[c])
		}
	}
	if got := scores.Total(); got != 18 {
		t.Errorf("Total = %v, want 18", got)
	}
}

func TestScorer_BoundsProperty(t *testing.T) {
	s, err := NewScorer(nil)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	// Sweep across in-range, boundary, and far out-of-range inputs;
	// every score must stay in [0,3] and the total in [0,36].
	cases := []features.FeatureVector{
		{},
		midRangeVector(),
		{VerificationRate: 1, PromptSpecificity: 10, IterationFrequency: 1,
			ErrorAwareness: 1, IndependentAttemptRate: 1, TaskDecomposition: 5,
			GoalClarity: 5, StrategyAdjustment: 1, ProgressTracking: 1,
			OutcomeReflection: 1, CrossModelUsage: 3, HelpSeekingBalance: 1},
		{VerificationRate: 99, PromptSpecificity: 1e6, CrossModelUsage: 50},
		{VerificationRate: -99, PromptSpecificity: -1, GoalClarity: -0.1},
	}
	for i, fv := range cases {
		scores := s.Score(fv)
		for _, c := range Codes() {
			if scores[c] < 0 || scores[c] > ScoreMax {
				t.Errorf("case %d: score %s = %v out of [0,3]", i, c, scores[c])
			}
		}
		if total := scores.Total(); total < 0 || total > TotalMax {
			t.Errorf("case %d: total = %v out of [0,36]", i, total)
		}
	}
}

func TestScorer_ClampSaturates(t *testing.T) {
	s, _ := NewScorer(nil)

	high := s.Score(features.FeatureVector{VerificationRate: 5})
	if high[M3] != 3 {
		t.Errorf("over-range verification = %v, want 3", high[M3])
	}
	low := s.Score(features.FeatureVector{VerificationRate: -5})
	if low[M3] != 0 {
		t.Errorf("under-range verification = %v, want 0", low[M3])
	}
}

func TestScoreSet_GroupAverages(t *testing.T) {
	scores := ScoreSet{
		P1: 3, P2: 2, P3: 1, P4: 2,
		M1: 3, M2: 3, M3: 3,
		E1: 0, E2: 0, E3: 3,
		R1: 1, R2: 2,
	}
	if got := scores.PlanningAvg(); got != 2 {
		t.Errorf("PlanningAvg = %v, want 2", got)
	}
	if got := scores.MonitoringAvg(); got != 3 {
		t.Errorf("MonitoringAvg = %v, want 3", got)
	}
	if got := scores.EvaluationAvg(); got != 1 {
		t.Errorf("EvaluationAvg = %v, want 1", got)
	}
	if got := scores.RegulationAvg(); got != 1.5 {
		t.Errorf("RegulationAvg = %v, want 1.5", got)
	}
}

func TestScoreSet_Metric(t *testing.T) {
	scores := ScoreSet{P1: 2.5, M1: 1, M2: 1, M3: 1}

	cases := []struct {
		name string
		want float64
	}{
		{"P1", 2.5},
		{"m_avg", 1},
		{"total", 6.5},
	}
	for _, tc := range cases {
		got, ok := scores.Metric(tc.name)
		if !ok {
			t.Errorf("Metric(%q) unknown", tc.name)
			continue
		}
		if got != tc.want {
			t.Errorf("Metric(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
	if _, ok := scores.Metric("bogus"); ok {
		t.Error("unknown metric should report !ok")
	}
}

func TestScoreSet_HighScores(t *testing.T) {
	scores := ScoreSet{P1: 2.7, M3: 2.5, E1: 2.4}
	got := scores.HighScores(2.5)
	if len(got) != 2 || got[0] != P1 || got[1] != M3 {
		t.Errorf("HighScores = %v, want [P1 M3]", got)
	}
}

func TestValidateDimensions(t *testing.T) {
	if err := ValidateDimensions(DefaultDimensions()); err != nil {
		t.Fatalf("default dimensions invalid: %v", err)
	}

	bad := DefaultDimensions()
	bad[0].InMin = bad[0].InMax
	if err := ValidateDimensions(bad); err == nil {
		t.Error("expected error for degenerate range")
	}

	dup := DefaultDimensions()
	dup[1].Code = dup[0].Code
	if err := ValidateDimensions(dup); err == nil {
		t.Error("expected error for duplicate code")
	}

	if err := ValidateDimensions(DefaultDimensions()[:11]); err == nil {
		t.Error("expected error for missing dimension")
	}
}
