package expr

import (
	"errors"
	"reflect"
	"testing"
)

func testContext() *Context {
	ctx := NewContext(
		map[string]any{
			"value": float64(15),
			"text":  "hello",
			"user":  map[string]any{"name": "alice", "age": float64(30)},
		},
		map[string]string{"API_KEY": "sk-test"},
	)
	ctx.AddNodeOutput("classify", map[string]any{
		"category":   "technical",
		"confidence": float64(0.92),
	})
	return ctx
}

func TestResolve_PlainString(t *testing.T) {
	value, err := Resolve("no expressions here", testContext())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if value != "no expressions here" {
		t.Errorf("value = %v, want plain string unchanged", value)
	}
}

func TestResolve_SinglePlaceholderKeepsType(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name     string
		template string
		want     any
	}{
		{"number", "{{input.value}}", float64(15)},
		{"string", "{{input.text}}", "hello"},
		{"nested field", "{{input.user.name}}", "alice"},
		{"node output field", "{{classify.output.category}}", "technical"},
		{"secret", "{{secrets.API_KEY}}", "sk-test"},
		{"spaces inside markers", "{{ input.value }}", float64(15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Resolve(tt.template, ctx)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.template, err)
			}
			if value != tt.want {
				t.Errorf("Resolve(%q) = %v (%T), want %v (%T)", tt.template, value, value, tt.want, tt.want)
			}
		})
	}
}

func TestResolve_WholeObject(t *testing.T) {
	value, err := Resolve("{{classify.output}}", testContext())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	output, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("value type = %T, want map[string]any", value)
	}
	if output["category"] != "technical" {
		t.Errorf("category = %v, want technical", output["category"])
	}
}

func TestResolve_Interpolation(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"string in text", "Hello, {{input.user.name}}!", "Hello, alice!"},
		{"number in text", "value is {{input.value}}", "value is 15"},
		{"two placeholders", "{{input.text}} {{classify.output.category}}", "hello technical"},
		{"float without trailing zeros", "confidence: {{classify.output.confidence}}", "confidence: 0.92"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Resolve(tt.template, ctx)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.template, err)
			}
			if value != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.template, value, tt.want)
			}
		})
	}
}

func TestResolve_UnresolvedReference(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name     string
		template string
	}{
		{"missing input field", "{{input.missing}}"},
		{"unknown node", "{{unknown.output.field}}"},
		{"missing output field", "{{classify.output.missing}}"},
		{"missing secret", "{{secrets.MISSING}}"},
		{"node path without output segment", "{{classify.category}}"},
		{"path through scalar", "{{input.value.deeper}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.template, ctx)
			if err == nil {
				t.Fatalf("Resolve(%q) expected error", tt.template)
			}
			var exprErr *Error
			if !errors.As(err, &exprErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if exprErr.Kind != KindUnresolvedReference {
				t.Errorf("Kind = %s, want %s", exprErr.Kind, KindUnresolvedReference)
			}
		})
	}
}

func TestResolve_SyntaxErrors(t *testing.T) {
	ctx := testContext()

	for _, template := range []string{"{{input.value", "prefix {{ }} suffix"} {
		_, err := Resolve(template, ctx)
		var exprErr *Error
		if !errors.As(err, &exprErr) || exprErr.Kind != KindSyntax {
			t.Errorf("Resolve(%q) error = %v, want syntax error", template, err)
		}
	}
}

func TestResolve_Pure(t *testing.T) {
	ctx := testContext()
	template := "user {{input.user.name}} scored {{classify.output.confidence}}"

	first, err := Resolve(template, ctx)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := Resolve(template, ctx)
	if err != nil {
		t.Fatalf("Resolve() second call error = %v", err)
	}
	if first != second {
		t.Errorf("repeated resolution differs: %v vs %v", first, second)
	}
}

func TestResolveConfig_Recursive(t *testing.T) {
	ctx := testContext()

	config := map[string]any{
		"url": "https://api.example.com/{{classify.output.category}}",
		"headers": map[string]string{
			"Authorization": "Bearer {{secrets.API_KEY}}",
		},
		"body": map[string]any{
			"value": "{{input.value}}",
			"tags":  []any{"{{input.text}}", "static"},
		},
		"timeout_sec": float64(30),
	}

	resolved, err := ResolveConfig(config, ctx)
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}

	if resolved["url"] != "https://api.example.com/technical" {
		t.Errorf("url = %v", resolved["url"])
	}
	headers := resolved["headers"].(map[string]string)
	if headers["Authorization"] != "Bearer sk-test" {
		t.Errorf("Authorization = %v", headers["Authorization"])
	}
	body := resolved["body"].(map[string]any)
	if body["value"] != float64(15) {
		t.Errorf("body.value = %v (%T), want typed 15", body["value"], body["value"])
	}
	if !reflect.DeepEqual(body["tags"], []any{"hello", "static"}) {
		t.Errorf("body.tags = %v", body["tags"])
	}
	if resolved["timeout_sec"] != float64(30) {
		t.Errorf("timeout_sec = %v, want untouched leaf", resolved["timeout_sec"])
	}
}

func TestResolveConfig_Nil(t *testing.T) {
	resolved, err := ResolveConfig(nil, testContext())
	if err != nil {
		t.Fatalf("ResolveConfig(nil) error = %v", err)
	}
	if resolved == nil {
		t.Error("expected empty map, got nil")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"bool", true, "true"},
		{"integer float", float64(42), "42"},
		{"fractional float", float64(3.14), "3.14"},
		{"int", 7, "7"},
		{"map as json", map[string]any{"a": float64(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.value); got != tt.want {
				t.Errorf("Stringify(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
