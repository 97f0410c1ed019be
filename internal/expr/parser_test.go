package expr

import (
	"errors"
	"testing"
)

func conditionContext(value float64) *Context {
	ctx := NewContext(map[string]any{"value": value, "name": "alice"}, nil)
	ctx.AddNodeOutput("classify", map[string]any{
		"category":   "technical",
		"confidence": float64(0.92),
		"urgent":     true,
	})
	return ctx
}

func TestEvalCondition_NumericComparison(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		value     float64
		want      bool
	}{
		{"greater true", "{{input.value}} > 10", 15, true},
		{"greater false", "{{input.value}} > 10", 5, false},
		{"greater boundary", "{{input.value}} > 10", 10, false},
		{"greater or equal boundary", "{{input.value}} >= 10", 10, true},
		{"less", "{{input.value}} < 10", 5, true},
		{"less or equal", "{{input.value}} <= 5", 5, true},
		{"equal", "{{input.value}} == 15", 15, true},
		{"not equal", "{{input.value}} != 15", 5, true},
		{"negative literal", "{{input.value}} > -1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.condition, conditionContext(tt.value))
			if err != nil {
				t.Fatalf("EvalCondition(%q) error = %v", tt.condition, err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%q) with value=%v = %v, want %v", tt.condition, tt.value, got, tt.want)
			}
		})
	}
}

func TestEvalCondition_StringComparison(t *testing.T) {
	ctx := conditionContext(15)

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{"single quotes", "{{classify.output.category}} == 'technical'", true},
		{"double quotes", `{{classify.output.category}} == "billing"`, false},
		{"not equal", "{{input.name}} != 'bob'", true},
		{"ordering", "'apple' < 'banana'", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.condition, ctx)
			if err != nil {
				t.Fatalf("EvalCondition(%q) error = %v", tt.condition, err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%q) = %v, want %v", tt.condition, got, tt.want)
			}
		})
	}
}

func TestEvalCondition_Logical(t *testing.T) {
	ctx := conditionContext(15)

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{"and true", "{{input.value}} > 10 && {{classify.output.category}} == 'technical'", true},
		{"and false", "{{input.value}} > 10 && {{classify.output.category}} == 'billing'", false},
		{"or", "{{input.value}} > 100 || {{classify.output.urgent}} == true", true},
		{"not", "!({{input.value}} > 100)", true},
		{"bare bool reference", "{{classify.output.urgent}}", true},
		{"negated bool reference", "!{{classify.output.urgent}}", false},
		{"parens change grouping", "({{input.value}} > 100 || {{input.value}} > 10) && true", true},
		{"bool literal", "false || true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.condition, ctx)
			if err != nil {
				t.Fatalf("EvalCondition(%q) error = %v", tt.condition, err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%q) = %v, want %v", tt.condition, got, tt.want)
			}
		})
	}
}

func TestEvalCondition_Errors(t *testing.T) {
	ctx := conditionContext(15)

	tests := []struct {
		name      string
		condition string
		wantKind  Kind
	}{
		{"unresolved reference", "{{input.missing}} > 10", KindUnresolvedReference},
		{"number vs string", "{{input.value}} == 'fifteen'", KindType},
		{"string vs number", "{{input.name}} > 5", KindType},
		{"bool ordering", "{{classify.output.urgent}} < true", KindType},
		{"non-bool result", "{{input.value}}", KindType},
		{"non-bool and operand", "5 && true", KindType},
		{"bare identifier", "value > 10", KindSyntax},
		{"unclosed expression", "{{input.value > 10", KindSyntax},
		{"unterminated string", "{{input.name}} == 'alice", KindSyntax},
		{"missing paren", "({{input.value}} > 10", KindSyntax},
		{"trailing garbage", "{{input.value}} > 10 5", KindSyntax},
		{"single ampersand", "true & false", KindSyntax},
		{"single equals", "{{input.value}} = 10", KindSyntax},
		{"empty condition", "", KindSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvalCondition(tt.condition, ctx)
			if err == nil {
				t.Fatalf("EvalCondition(%q) expected error", tt.condition)
			}
			var exprErr *Error
			if !errors.As(err, &exprErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if exprErr.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s (err: %v)", exprErr.Kind, tt.wantKind, err)
			}
		})
	}
}

func TestEvalCondition_IntOperandsFromConfig(t *testing.T) {
	// Input, собранный в Go-коде, может содержать int вместо float64.
	ctx := NewContext(map[string]any{"count": 3}, nil)

	got, err := EvalCondition("{{input.count}} >= 3", ctx)
	if err != nil {
		t.Fatalf("EvalCondition() error = %v", err)
	}
	if !got {
		t.Error("EvalCondition() = false, want true for int operand")
	}
}

func TestEvalCondition_Deterministic(t *testing.T) {
	ctx := conditionContext(15)
	condition := "{{input.value}} > 10 && {{classify.output.confidence}} >= 0.9"

	for i := 0; i < 3; i++ {
		got, err := EvalCondition(condition, ctx)
		if err != nil {
			t.Fatalf("EvalCondition() call %d error = %v", i, err)
		}
		if !got {
			t.Fatalf("EvalCondition() call %d = false, want true", i)
		}
	}
}
