package engine

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind indicates the type of a runtime value.
type ValueKind int

const (
	// KindNull is the absent value. Reads of missing paths yield it.
	KindNull ValueKind = iota

	// KindBool is a boolean.
	KindBool

	// KindNumber is a float64. Integer values display without a decimal
	// point.
	KindNumber

	// KindString is a string.
	KindString

	// KindObject is a string-keyed map of values.
	KindObject

	// KindArray is an ordered list of values.
	KindArray
)

// String returns a string representation of the value kind.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Value is the single runtime type: a tagged union of JSON-shaped values.
// The zero Value is Null.
type Value struct {
	Kind ValueKind

	// Exactly one of these is meaningful, selected by Kind.
	Bool   bool
	Num    float64
	Str    string
	Object map[string]Value
	Array  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ObjectValue returns an object value wrapping m. The map is not copied.
func ObjectValue(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}

	return Value{Kind: KindObject, Object: m}
}

// ArrayValue returns an array value wrapping vs. The slice is not copied.
func ArrayValue(vs []Value) Value {
	if vs == nil {
		vs = []Value{}
	}

	return Value{Kind: KindArray, Array: vs}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Truthy reports whether the value is considered true in conditions:
// false for Null and false, nonzero for Number, nonempty for String,
// Object, and Array.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	case KindObject:
		return len(v.Object) > 0
	case KindArray:
		return len(v.Array) > 0
	default:
		return false
	}
}

// Equal reports deep equality. Values of different kinds are never equal.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}

	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == w.Bool
	case KindNumber:
		return v.Num == w.Num
	case KindString:
		return v.Str == w.Str
	case KindObject:
		if len(v.Object) != len(w.Object) {
			return false
		}

		for key, val := range v.Object {
			other, ok := w.Object[key]
			if !ok || !val.Equal(other) {
				return false
			}
		}

		return true
	case KindArray:
		if len(v.Array) != len(w.Array) {
			return false
		}

		for i := range v.Array {
			if !v.Array[i].Equal(w.Array[i]) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindObject:
		m := make(map[string]Value, len(v.Object))
		for key, val := range v.Object {
			m[key] = val.Clone()
		}

		return ObjectValue(m)
	case KindArray:
		vs := make([]Value, len(v.Array))
		for i := range v.Array {
			vs[i] = v.Array[i].Clone()
		}

		return ArrayValue(vs)
	default:
		return v
	}
}

// Display returns the interpolated string form: Null is empty, numbers drop
// trailing zeros, and containers render as compact JSON with sorted keys so
// output is deterministic. The form is for visibility, not round-tripping.
func (v Value) Display() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return v.Str
	default:
		var b strings.Builder

		v.writeCompact(&b)

		return b.String()
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// writeCompact renders the JSON-like debugging form used by Display.
func (v Value) writeCompact(b *strings.Builder) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindNumber:
		b.WriteString(formatNumber(v.Num))
	case KindString:
		b.WriteString(strconv.Quote(v.Str))
	case KindObject:
		keys := make([]string, 0, len(v.Object))
		for key := range v.Object {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		b.WriteByte('{')

		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}

			b.WriteString(strconv.Quote(key))
			b.WriteByte(':')
			v.Object[key].writeCompact(b)
		}

		b.WriteByte('}')
	case KindArray:
		b.WriteByte('[')

		for i := range v.Array {
			if i > 0 {
				b.WriteByte(',')
			}

			v.Array[i].writeCompact(b)
		}

		b.WriteByte(']')
	}
}

// ToNative converts the value to its plain Go representation
// (nil, bool, float64, string, map[string]any, []any).
func (v Value) ToNative() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindObject:
		m := make(map[string]any, len(v.Object))
		for key, val := range v.Object {
			m[key] = val.ToNative()
		}

		return m
	case KindArray:
		vs := make([]any, len(v.Array))
		for i := range v.Array {
			vs[i] = v.Array[i].ToNative()
		}

		return vs
	default:
		return nil
	}
}

// FromNative converts a plain Go value into a Value.
// Unsupported types become Null.
func FromNative(native any) Value {
	switch t := native.(type) {
	case nil:
		return Null()
	case bool:
		return BoolValue(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null()
		}

		return Number(f)
	case string:
		return StringValue(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for key, val := range t {
			m[key] = FromNative(val)
		}

		return ObjectValue(m)
	case []any:
		vs := make([]Value, len(t))
		for i := range t {
			vs[i] = FromNative(t[i])
		}

		return ArrayValue(vs)
	default:
		return Null()
	}
}

// MarshalJSON implements json.Marshaler.
// Values map 1:1 to JSON shapes.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		// Emit integers without exponent or decimal so snapshots diff
		// cleanly.
		return []byte(formatNumber(v.Num)), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindObject:
		return json.Marshal(v.Object)
	case KindArray:
		return json.Marshal(v.Array)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var native any

	err := dec.Decode(&native)
	if err != nil {
		return err
	}

	*v = fromDecoded(native)

	return nil
}

// fromDecoded converts json.Decoder output (with UseNumber) to a Value.
func fromDecoded(native any) Value {
	switch t := native.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null()
		}

		return Number(f)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for key, val := range t {
			m[key] = fromDecoded(val)
		}

		return ObjectValue(m)
	case []any:
		vs := make([]Value, len(t))
		for i := range t {
			vs[i] = fromDecoded(t[i])
		}

		return ArrayValue(vs)
	default:
		return FromNative(native)
	}
}
