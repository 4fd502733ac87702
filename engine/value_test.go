package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValue_Truthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"null", Null(), false},
		{"false", BoolValue(false), false},
		{"true", BoolValue(true), true},
		{"zero", Number(0), false},
		{"nonzero", Number(0.1), true},
		{"negative", Number(-1), true},
		{"empty string", StringValue(""), false},
		{"nonempty string", StringValue("x"), true},
		{"empty object", ObjectValue(nil), false},
		{"object", ObjectValue(map[string]Value{"a": Null()}), true},
		{"empty array", ArrayValue(nil), false},
		{"array", ArrayValue([]Value{Null()}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_Equal(t *testing.T) {
	deep := func() Value {
		return ObjectValue(map[string]Value{
			"name": StringValue("Ada"),
			"tags": ArrayValue([]Value{Number(1), Number(2)}),
		})
	}

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null(), Null(), true},
		{"numbers", Number(2), Number(2), true},
		{"numbers differ", Number(2), Number(3), false},
		{"kinds never cross", Number(1), StringValue("1"), false},
		{"bool vs number", BoolValue(true), Number(1), false},
		{"null vs false", Null(), BoolValue(false), false},
		{"deep equal", deep(), deep(), true},
		{
			"deep differ",
			deep(),
			ObjectValue(map[string]Value{"name": StringValue("Ada")}),
			false,
		},
		{
			"array order matters",
			ArrayValue([]Value{Number(1), Number(2)}),
			ArrayValue([]Value{Number(2), Number(1)}),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_Display(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null is empty", Null(), ""},
		{"bool", BoolValue(true), "true"},
		{"integer drops decimal", Number(42), "42"},
		{"negative integer", Number(-3), "-3"},
		{"float", Number(2.5), "2.5"},
		{"string is bare", StringValue("hi"), "hi"},
		{
			"object sorts keys",
			ObjectValue(map[string]Value{
				"b": Number(2),
				"a": Number(1),
			}),
			`{"a":1,"b":2}`,
		},
		{
			"nested",
			ArrayValue([]Value{
				Null(),
				StringValue("x"),
				ObjectValue(map[string]Value{"k": BoolValue(false)}),
			}),
			`[null,"x",{"k":false}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValue_Clone_Isolates(t *testing.T) {
	orig := ObjectValue(map[string]Value{
		"list": ArrayValue([]Value{Number(1)}),
	})

	clone := orig.Clone()
	clone.Object["list"].Array[0] = Number(99)

	if !orig.Object["list"].Array[0].Equal(Number(1)) {
		t.Error("mutating a clone leaked into the original")
	}
}

func TestValue_JSONRoundTrip(t *testing.T) {
	orig := ObjectValue(map[string]Value{
		"name":   StringValue("Ada"),
		"hp":     Number(10),
		"ratio":  Number(0.5),
		"alive":  BoolValue(true),
		"absent": Null(),
		"bag": ArrayValue([]Value{
			Number(1),
			ObjectValue(map[string]Value{"nested": StringValue("yes")}),
		}),
	})

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Value
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if diff := cmp.Diff(orig.ToNative(), got.ToNative()); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromNative(t *testing.T) {
	got := FromNative(map[string]any{
		"n":    3,
		"f":    1.5,
		"s":    "x",
		"b":    true,
		"nil":  nil,
		"list": []any{"a", 2},
	})

	want := ObjectValue(map[string]Value{
		"n":    Number(3),
		"f":    Number(1.5),
		"s":    StringValue("x"),
		"b":    BoolValue(true),
		"nil":  Null(),
		"list": ArrayValue([]Value{StringValue("a"), Number(2)}),
	})

	if !got.Equal(want) {
		t.Errorf("FromNative = %v, want %v", got.Display(), want.Display())
	}
}
