package metrics

import (
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"metacog/internal/pattern"
	"metacog/internal/scoring"
)

func uniformScores(v float64) scoring.ScoreSet {
	s := make(scoring.ScoreSet, 12)
	for _, code := range scoring.Codes() {
		s[code] = v
	}
	return s
}

// highScores is a score set the default rule table classifies as A.
func highScores() scoring.ScoreSet {
	return uniformScores(2.7)
}

// lowScores is a score set the red-flag scheme classifies as F.
func lowScores() scoring.ScoreSet {
	return uniformScores(0.3)
}

func testClassifier(t *testing.T) *pattern.Classifier {
	t.Helper()
	c, err := pattern.NewClassifier(pattern.DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	return c
}

func TestEvaluate_AllCorrect(t *testing.T) {
	samples := []LabeledSample{
		{UserID: "u1", Scores: highScores(), Pattern: pattern.PatternA},
		{UserID: "u2", Scores: lowScores(), Pattern: pattern.PatternF},
		{UserID: "u3", Scores: uniformScores(1.5), Pattern: pattern.PatternC},
	}

	rep, err := Evaluate(testClassifier(t), samples)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if rep.Samples != 3 {
		t.Errorf("expected 3 samples, got %d", rep.Samples)
	}
	if rep.Accuracy != 1.0 {
		t.Errorf("expected accuracy 1.0, got %v (confusion %v)", rep.Accuracy, rep.Confusion)
	}
	for _, cls := range []pattern.Letter{pattern.PatternA, pattern.PatternC, pattern.PatternF} {
		m := rep.PerClass[cls]
		if m.Support != 1 {
			t.Errorf("%s: expected support 1, got %d", cls, m.Support)
		}
		if m.Precision != 1.0 || m.Recall != 1.0 || m.F1 != 1.0 {
			t.Errorf("%s: expected perfect metrics, got %+v", cls, m)
		}
	}
}

func TestEvaluate_Mislabel(t *testing.T) {
	// Two F-scoring samples, one mislabeled as A. The classifier predicts F
	// for both, so accuracy is 0.5 and F precision drops while F recall
	// stays perfect.
	samples := []LabeledSample{
		{UserID: "u1", Scores: lowScores(), Pattern: pattern.PatternF},
		{UserID: "u2", Scores: lowScores(), Pattern: pattern.PatternA},
	}

	rep, err := Evaluate(testClassifier(t), samples)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if rep.Accuracy != 0.5 {
		t.Errorf("expected accuracy 0.5, got %v", rep.Accuracy)
	}
	f := rep.PerClass[pattern.PatternF]
	if math.Abs(f.Precision-0.5) > 1e-9 {
		t.Errorf("expected F precision 0.5, got %v", f.Precision)
	}
	if f.Recall != 1.0 {
		t.Errorf("expected F recall 1.0, got %v", f.Recall)
	}
	a := rep.PerClass[pattern.PatternA]
	if a.Recall != 0 || a.Support != 1 {
		t.Errorf("expected A recall 0 support 1, got %+v", a)
	}
	if rep.Confusion[pattern.PatternA][pattern.PatternF] != 1 {
		t.Errorf("expected confusion A->F of 1, got %v", rep.Confusion)
	}
}

func TestEvaluate_Empty(t *testing.T) {
	if _, err := Evaluate(testClassifier(t), nil); err == nil {
		t.Error("expected error for empty sample set")
	}
}

const csvHeader = "user_id,p1,p2,p3,p4,m1,m2,m3,e1,e2,e3,r1,r2,pattern\n"

func TestLoadCSV(t *testing.T) {
	data := csvHeader +
		"u1,2.7,2.7,2.7,2.7,2.7,2.7,2.7,2.7,2.7,2.7,2.7,2.7,A\n" +
		"u2,0.3,0.3,0.3,0.3,0.3,0.3,0.3,0.3,0.3,0.3,0.3,0.3,F\n"

	samples, err := LoadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].UserID != "u1" || samples[0].Pattern != pattern.PatternA {
		t.Errorf("unexpected first sample: %+v", samples[0])
	}
	if got := samples[0].Scores.Get(scoring.P1); got != 2.7 {
		t.Errorf("expected P1 2.7, got %v", got)
	}
	if got := samples[1].Scores.Total(); math.Abs(got-3.6) > 1e-9 {
		t.Errorf("expected total 3.6, got %v", got)
	}
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing column", "user_id,p1,pattern\nu1,2.0,A\n"},
		{"bad score", csvHeader + "u1,x,1,1,1,1,1,1,1,1,1,1,1,A\n"},
		{"out of range", csvHeader + "u1,3.5,1,1,1,1,1,1,1,1,1,1,1,A\n"},
		{"bad pattern", csvHeader + "u1,1,1,1,1,1,1,1,1,1,1,1,1,X\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadCSV(strings.NewReader(tc.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
