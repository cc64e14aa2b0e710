// Package metrics provides offline evaluation of the rule classifier
// against labeled score sets: accuracy, per-pattern precision/recall/F1,
// and a confusion matrix. No model is trained or updated here; the
// metrics only measure the fixed rule table.
package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"metacog/internal/features"
	"metacog/internal/pattern"
	"metacog/internal/scoring"
)

// LabeledSample is one annotated row: a full subprocess score set with its
// ground-truth pattern label.
type LabeledSample struct {
	UserID  string
	Scores  scoring.ScoreSet
	Pattern pattern.Letter
}

// ClassMetrics holds per-pattern quality numbers.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the full offline evaluation output.
type Report struct {
	Samples   int                             `json:"samples"`
	Accuracy  float64                         `json:"accuracy"`
	PerClass  map[pattern.Letter]ClassMetrics `json:"per_class"`
	Confusion map[pattern.Letter]map[pattern.Letter]int `json:"confusion"`
}

// Evaluate classifies every labeled sample and scores the predictions.
// Labeled datasets carry subprocess scores only, so the raw features the
// red-flag scheme reads are back-projected from the scores.
func Evaluate(c *pattern.Classifier, samples []LabeledSample) (Report, error) {
	if len(samples) == 0 {
		return Report{}, fmt.Errorf("no labeled samples")
	}

	rep := Report{
		Samples:   len(samples),
		PerClass:  make(map[pattern.Letter]ClassMetrics),
		Confusion: make(map[pattern.Letter]map[pattern.Letter]int),
	}
	for _, l := range pattern.Letters() {
		rep.Confusion[l] = make(map[pattern.Letter]int)
	}

	correct := 0
	for _, s := range samples {
		res := c.Classify(s.Scores, featuresFromScores(s.Scores))
		rep.Confusion[s.Pattern][res.Pattern]++
		if res.Pattern == s.Pattern {
			correct++
		}
	}
	rep.Accuracy = float64(correct) / float64(len(samples))

	for _, cls := range pattern.Letters() {
		tp := rep.Confusion[cls][cls]
		fp, fn, support := 0, 0, 0
		for _, other := range pattern.Letters() {
			if other != cls {
				fp += rep.Confusion[other][cls]
				fn += rep.Confusion[cls][other]
			}
		}
		for _, s := range samples {
			if s.Pattern == cls {
				support++
			}
		}
		m := ClassMetrics{Support: support}
		if tp+fp > 0 {
			m.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			m.Recall = float64(tp) / float64(tp+fn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.PerClass[cls] = m
	}
	return rep, nil
}

// featuresFromScores back-projects the raw features the red-flag scheme
// reads from the labeled subprocess scores, inverting the default
// dimension rescales.
func featuresFromScores(s scoring.ScoreSet) features.FeatureVector {
	return features.FeatureVector{
		VerificationRate:   s.Get(scoring.M3) / 3,
		PromptSpecificity:  s.Get(scoring.P1) / 3 * 10,
		IterationFrequency: s.Get(scoring.M2) / 3,
		ErrorAwareness:     s.Get(scoring.E1) / 3,
	}
}

// LoadCSV reads labeled samples in the training-data layout:
// header with user_id, p1..p4, m1..m3, e1..e3, r1..r2, pattern.
func LoadCSV(r io.Reader) ([]LabeledSample, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	required := []string{"p1", "p2", "p3", "p4", "m1", "m2", "m3", "e1", "e2", "e3", "r1", "r2", "pattern"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var samples []LabeledSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s := LabeledSample{Scores: make(scoring.ScoreSet, 12)}
		if i, ok := col["user_id"]; ok {
			s.UserID = rec[i]
		}
		for i, code := range scoring.Codes() {
			v, err := strconv.ParseFloat(rec[col[required[i]]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, required[i], err)
			}
			if v < 0 || v > scoring.ScoreMax {
				return nil, fmt.Errorf("line %d: column %s: score %v out of [0,3]", line, required[i], v)
			}
			s.Scores[code] = v
		}
		s.Pattern = pattern.Letter(rec[col["pattern"]])
		if !s.Pattern.Valid() {
			return nil, fmt.Errorf("line %d: unknown pattern %q", line, rec[col["pattern"]])
		}
		samples = append(samples, s)
	}
	return samples, nil
}
