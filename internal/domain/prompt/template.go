// Package prompt assembles retrieved context and the user question into the
// text sent to the language model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Variable names used by the RAG pipeline.
const (
	VarContext  = "context"
	VarQuestion = "question"
)

// DefaultText is the zh-TW knowledge-base assistant template.
const DefaultText = `你是企業知識庫助手，請根據以下參考資料回答問題。

參考資料：
{context}

問題：{question}

請用繁體中文簡潔回答。
`

type segment struct {
	literal string
	varName string // non-empty marks a placeholder
}

// Template is a parsed prompt with {name} placeholders. "{{" and "}}" render as
// literal braces. Rendering is a single pass: substituted values are never
// scanned for placeholders.
type Template struct {
	source   string
	segments []segment
	vars     []string
}

// Default returns the parsed DefaultText.
func Default() *Template {
	return MustParse(DefaultText)
}

// MustParse calls Parse and panics on error.
func MustParse(text string) *Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse validates text and splits it into literals and placeholders.
func Parse(text string) (*Template, error) {
	t := &Template{source: text}
	seen := make(map[string]bool)

	var lit strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed placeholder at offset %d", domain.ErrInvalidArgument, i)
			}
			name := text[i+1 : i+1+end]
			if !isIdentifier(name) {
				return nil, fmt.Errorf("%w: invalid placeholder %q", domain.ErrInvalidArgument, name)
			}
			if lit.Len() > 0 {
				t.segments = append(t.segments, segment{literal: lit.String()})
				lit.Reset()
			}
			t.segments = append(t.segments, segment{varName: name})
			if !seen[name] {
				seen[name] = true
				t.vars = append(t.vars, name)
			}
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("%w: single '}' at offset %d", domain.ErrInvalidArgument, i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{literal: lit.String()})
	}
	return t, nil
}

// Variables lists placeholder names in order of first appearance.
func (t *Template) Variables() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

// String returns the unparsed template text.
func (t *Template) String() string { return t.source }

// Render substitutes every placeholder. Extra keys in vars are ignored.
func (t *Template) Render(vars map[string]string) (string, error) {
	for _, name := range t.vars {
		if _, ok := vars[name]; !ok {
			return "", &domain.MissingVariableError{Name: name}
		}
	}

	var b strings.Builder
	for _, s := range t.segments {
		if s.varName != "" {
			b.WriteString(vars[s.varName])
			continue
		}
		b.WriteString(s.literal)
	}
	return b.String(), nil
}

// FormatContext joins retrieved texts with a newline in retrieval order.
func FormatContext(texts []string) string {
	return strings.Join(texts, "\n")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' {
			return false
		}
	}
	return true
}
