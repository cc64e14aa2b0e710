package features

import (
	"math"
	"testing"
)

func TestFeatureVector_Validate(t *testing.T) {
	fv := FeatureVector{VerificationRate: 0.5, TasksCompleted: 3, TurnCount: 10}
	if err := fv.Validate(); err != nil {
		t.Fatalf("valid vector rejected: %v", err)
	}
}

func TestFeatureVector_Validate_NegativeCounts(t *testing.T) {
	fv := FeatureVector{TasksCompleted: -1}
	if err := fv.Validate(); err == nil {
		t.Error("expected error for negative tasks_completed")
	}

	fv = FeatureVector{TurnCount: -5}
	if err := fv.Validate(); err == nil {
		t.Error("expected error for negative turn_count")
	}
}

func TestFeatureVector_Validate_NonFinite(t *testing.T) {
	fv := FeatureVector{VerificationRate: math.NaN()}
	if err := fv.Validate(); err == nil {
		t.Error("expected error for NaN feature")
	}

	fv = FeatureVector{PromptSpecificity: math.Inf(1)}
	if err := fv.Validate(); err == nil {
		t.Error("expected error for Inf feature")
	}
}

func TestFeatureVector_Validate_OutOfRangeIsNotAnError(t *testing.T) {
	// Out-of-range values clamp at the scorer, they do not fail validation.
	fv := FeatureVector{VerificationRate: 7.5, PromptSpecificity: -3}
	if err := fv.Validate(); err != nil {
		t.Errorf("out-of-range floats should validate, got %v", err)
	}
}

func TestFeatureVector_Get(t *testing.T) {
	fv := FeatureVector{VerificationRate: 0.9, CrossModelUsage: 2}

	for _, name := range FeatureNames() {
		if _, ok := fv.Get(name); !ok {
			t.Errorf("Get(%q) unknown", name)
		}
	}
	if v, _ := fv.Get("verification_rate"); v != 0.9 {
		t.Errorf("verification_rate = %v, want 0.9", v)
	}
	if _, ok := fv.Get("no_such_feature"); ok {
		t.Error("unknown feature should report !ok")
	}
}

func TestSignalSnapshot_FromJSONMap(t *testing.T) {
	snap, err := FromJSONMap(map[string]any{
		"verification_rate": 0.25,
		"extreme_reliance":  true,
		"task_type":         "debugging",
	})
	if err != nil {
		t.Fatalf("FromJSONMap failed: %v", err)
	}

	v, ok := snap.Lookup("verification_rate")
	if !ok || v.Kind != KindFloat || v.F != 0.25 {
		t.Errorf("verification_rate = %+v, want float 0.25", v)
	}
	if v, _ := snap.Lookup("extreme_reliance"); v.Kind != KindBool || !v.B {
		t.Errorf("extreme_reliance = %+v, want bool true", v)
	}
	if v, _ := snap.Lookup("task_type"); v.Kind != KindString || v.S != "debugging" {
		t.Errorf("task_type = %+v, want string debugging", v)
	}
	if _, ok := snap.Lookup("missing"); ok {
		t.Error("missing signal should report !ok")
	}
}

func TestSignalSnapshot_FromJSONMap_UnsupportedType(t *testing.T) {
	_, err := FromJSONMap(map[string]any{"bad": []string{"x"}})
	if err == nil {
		t.Error("expected error for unsupported signal type")
	}
}

func TestSignalValue_Numeric(t *testing.T) {
	if n, ok := Float(1.5).Numeric(); !ok || n != 1.5 {
		t.Errorf("Float.Numeric = %v,%v", n, ok)
	}
	if n, ok := Int(4).Numeric(); !ok || n != 4 {
		t.Errorf("Int.Numeric = %v,%v", n, ok)
	}
	if _, ok := Bool(true).Numeric(); ok {
		t.Error("Bool should not be numeric")
	}
	if _, ok := String("x").Numeric(); ok {
		t.Error("String should not be numeric")
	}
}
