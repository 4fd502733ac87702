package engine

import (
	"errors"
	"testing"
)

func evalState(t *testing.T, pairs map[string]Value) *State {
	t.Helper()

	st := NewState()

	for path, value := range pairs {
		if err := st.Set(path, value); err != nil {
			t.Fatalf("Set(%q) failed: %v", path, err)
		}
	}

	return st
}

func TestEvaluate_Literals(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Value
	}{
		{"null", "null", Null()},
		{"true", "true", BoolValue(true)},
		{"false", "false", BoolValue(false)},
		{"case insensitive bool", "TRUE", BoolValue(true)},
		{"integer", "42", Number(42)},
		{"negative integer", "-7", Number(-7)},
		{"float", "3.5", Number(3.5)},
		{"string", `"hello"`, StringValue("hello")},
		{"string with escape", `"a\"b"`, StringValue(`a"b`)},
		{"empty array", "[]", ArrayValue(nil)},
		{"array", `[1, "two", true]`, ArrayValue([]Value{
			Number(1), StringValue("two"), BoolValue(true),
		})},
		{"empty object", "{}", ObjectValue(nil)},
		{"object", `{name: "Ada", age: 36}`, ObjectValue(map[string]Value{
			"name": StringValue("Ada"),
			"age":  Number(36),
		})},
		{"nested", `{tags: ["a", "b"]}`, ObjectValue(map[string]Value{
			"tags": ArrayValue([]Value{
				StringValue("a"), StringValue("b"),
			}),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, NewState())
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
			}

			if !got.Equal(tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v",
					tt.expr, got.Display(), tt.want.Display())
			}
		})
	}
}

func TestEvaluate_Paths(t *testing.T) {
	st := evalState(t, map[string]Value{
		"player.name":  StringValue("Ada"),
		"player.hp":    Number(10),
		"inventory[0]": StringValue("sword"),
	})

	tests := []struct {
		expr string
		want Value
	}{
		{"player.name", StringValue("Ada")},
		{"player.hp", Number(10)},
		{"inventory[0]", StringValue("sword")},
		{"player.missing", Null()},
		{"no.such.path", Null()},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.expr, st)
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
		}

		if !got.Equal(tt.want) {
			t.Errorf("Evaluate(%q) = %v, want %v",
				tt.expr, got.Display(), tt.want.Display())
		}
	}
}

func TestEvaluate_Comparisons(t *testing.T) {
	st := evalState(t, map[string]Value{
		"hp":   Number(10),
		"name": StringValue("Ada"),
	})

	tests := []struct {
		expr string
		want bool
	}{
		{"hp == 10", true},
		{"hp != 10", false},
		{"hp < 20", true},
		{"hp <= 10", true},
		{"hp > 10", false},
		{"hp >= 10", true},
		{`name == "Ada"`, true},
		{`name < "Bob"`, true},
		{"missing == null", true},
		{"missing != null", false},

		// Mismatched kinds never order, and are definitionally unequal.
		{`hp == "10"`, false},
		{`hp != "10"`, true},
		{`hp < "20"`, false},
		{`name >= 1`, false},
		{"[1] == [1]", true},
		{"[1] == [2]", false},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.expr, st)
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
		}

		if got.Kind != KindBool || got.Bool != tt.want {
			t.Errorf("Evaluate(%q) = %v, want %v",
				tt.expr, got.Display(), tt.want)
		}
	}
}

func TestEvaluate_BoolOperators(t *testing.T) {
	st := evalState(t, map[string]Value{
		"hp":   Number(10),
		"dead": BoolValue(false),
	})

	tests := []struct {
		expr string
		want bool
	}{
		{"true and true", true},
		{"true and false", false},
		{"false or true", true},
		{"false or false", false},
		{"not false", true},
		{"not not true", true},
		{"true && false", false},
		{"true || false", true},
		{"!dead", true},

		// Precedence: or is loosest, then and, then not, then comparison.
		{"true or false and false", true},
		{"not hp == 10", false},
		{"hp > 5 and hp < 20", true},
		{"(false or true) and true", true},

		// Non-boolean operands participate by truthiness.
		{"hp and true", true},
		{`"" or false`, false},
		{"missing or true", true},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.expr, st)
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
		}

		if got.Kind != KindBool || got.Bool != tt.want {
			t.Errorf("Evaluate(%q) = %v, want %v",
				tt.expr, got.Display(), tt.want)
		}
	}
}

func TestEvaluate_RejectsArithmetic(t *testing.T) {
	exprs := []string{
		"1 + 2",
		"hp - 1",
		"2 * 3",
		"10 / 2",
		"count = 5",
		"f(x)",
		"1 2",
		"hp ==",
		"(1",
		`"unterminated`,
		"[1, 2",
		"{a: 1",
		"&",
	}

	for _, expr := range exprs {
		_, err := Evaluate(expr, NewState())
		if err == nil {
			t.Errorf("Evaluate(%q) succeeded, want parse error", expr)

			continue
		}

		if !errors.Is(err, ErrExprParse) {
			t.Errorf("Evaluate(%q) error = %v, want ErrExprParse", expr, err)
		}
	}
}

func TestEvaluate_NegativeNumberIsNotSubtraction(t *testing.T) {
	got, err := Evaluate("-5 < -1", NewState())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if got.Kind != KindBool || !got.Bool {
		t.Errorf("got %v, want true", got.Display())
	}

	// A '-' not attached to a digit has no meaning.
	if _, err := Evaluate("5 - 1", NewState()); err == nil {
		t.Error("binary minus accepted, want parse error")
	}
}
