package features

import "fmt"

// SignalKind is the declared type of a live behavioral signal.
type SignalKind int

const (
	KindFloat SignalKind = iota
	KindInt
	KindBool
	KindString
)

func (k SignalKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// SignalValue is a typed value inside a SignalSnapshot. Exactly one of the
// payload fields is meaningful, selected by Kind.
type SignalValue struct {
	Kind SignalKind
	F    float64
	I    int64
	B    bool
	S    string
}

// Float wraps a float signal value.
func Float(v float64) SignalValue { return SignalValue{Kind: KindFloat, F: v} }

// Int wraps an integer signal value.
func Int(v int64) SignalValue { return SignalValue{Kind: KindInt, I: v} }

// Bool wraps a boolean signal value.
func Bool(v bool) SignalValue { return SignalValue{Kind: KindBool, B: v} }

// String wraps a string signal value.
func String(v string) SignalValue { return SignalValue{Kind: KindString, S: v} }

// Numeric returns the value as a float64 for comparison operators.
// Only valid for KindFloat and KindInt.
func (v SignalValue) Numeric() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.F, true
	case KindInt:
		return float64(v.I), true
	default:
		return 0, false
	}
}

// SignalSnapshot is the live behavioral signal map evaluated by the
// intervention rule engine. It is collected once per evaluation point and
// never mutated during rule evaluation.
type SignalSnapshot map[string]SignalValue

// Lookup returns the named signal. A missing signal is not an error; rule
// conditions over missing signals fail closed.
func (s SignalSnapshot) Lookup(name string) (SignalValue, bool) {
	v, ok := s[name]
	return v, ok
}

// FromJSONMap converts a decoded JSON object into a typed snapshot.
// JSON numbers become floats, which covers every numeric signal the rule
// tables declare; int-typed conditions compare numerically so no precision
// is lost for counter signals.
func FromJSONMap(m map[string]any) (SignalSnapshot, error) {
	snap := make(SignalSnapshot, len(m))
	for name, raw := range m {
		switch v := raw.(type) {
		case float64:
			snap[name] = Float(v)
		case int:
			snap[name] = Int(int64(v))
		case bool:
			snap[name] = Bool(v)
		case string:
			snap[name] = String(v)
		default:
			return nil, fmt.Errorf("signal %s: unsupported value type %T", name, raw)
		}
	}
	return snap, nil
}
