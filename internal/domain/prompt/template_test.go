package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

func TestRender_Basic(t *testing.T) {
	tpl := MustParse("Q:{question} C:{context}")

	got, err := tpl.Render(map[string]string{"question": "q", "context": "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Q:q C:c" {
		t.Errorf("Render = %q, want %q", got, "Q:q C:c")
	}
}

func TestRender_MissingVariable(t *testing.T) {
	tpl := MustParse("Q:{question} C:{context}")

	_, err := tpl.Render(map[string]string{"question": "q"})
	if !errors.Is(err, domain.ErrMissingVariable) {
		t.Fatalf("expected ErrMissingVariable, got %v", err)
	}
	var mv *domain.MissingVariableError
	if !errors.As(err, &mv) || mv.Name != "context" {
		t.Errorf("expected missing variable 'context', got %v", err)
	}
}

func TestRender_ExtraKeysIgnored(t *testing.T) {
	tpl := MustParse("{question}")
	got, err := tpl.Render(map[string]string{"question": "q", "unused": "x"})
	if err != nil || got != "q" {
		t.Errorf("Render = %q, %v", got, err)
	}
}

func TestRender_ValuesNotRescanned(t *testing.T) {
	tpl := MustParse("C:{context} Q:{question}")

	got, err := tpl.Render(map[string]string{"context": "{question}", "question": "real"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "C:{question} Q:real" {
		t.Errorf("Render = %q", got)
	}
}

func TestRender_EmptyContext(t *testing.T) {
	got, err := Default().Render(map[string]string{"context": "", "question": "有免費方案嗎？"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "參考資料：\n\n") {
		t.Errorf("expected empty reference block, got %q", got)
	}
}

func TestParse_EscapedBraces(t *testing.T) {
	tpl := MustParse(`{{"json": true}} {question}`)

	if vars := tpl.Variables(); len(vars) != 1 || vars[0] != "question" {
		t.Errorf("Variables() = %v", vars)
	}
	got, _ := tpl.Render(map[string]string{"question": "q"})
	if got != `{"json": true} q` {
		t.Errorf("Render = %q", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, text := range []string{"{unclosed", "stray }", "{bad name}", "{}"} {
		if _, err := Parse(text); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalidArgument", text, err)
		}
	}
}

func TestVariables_Deduplicated(t *testing.T) {
	tpl := MustParse("{a}{b}{a}")
	vars := tpl.Variables()
	if len(vars) != 2 || vars[0] != "a" || vars[1] != "b" {
		t.Errorf("Variables() = %v", vars)
	}
}

func TestDefault_Scenario(t *testing.T) {
	ctx := FormatContext([]string{"A", "B"})
	got, err := Default().Render(map[string]string{VarContext: ctx, VarQuestion: "Q?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "參考資料：\nA\nB\n\n問題：Q?") {
		t.Errorf("unexpected prompt:\n%s", got)
	}
	if !strings.HasSuffix(got, "請用繁體中文簡潔回答。\n") {
		t.Errorf("unexpected suffix:\n%s", got)
	}
}

func TestFormatContext(t *testing.T) {
	if FormatContext(nil) != "" {
		t.Error("empty list must format to empty string")
	}
	if got := FormatContext([]string{"x", "x"}); got != "x\nx" {
		t.Errorf("duplicates must be kept, got %q", got)
	}
}
