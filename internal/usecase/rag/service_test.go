package rag

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/prompt"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/repository/memory"
	"github.com/kailas-cloud/vecrag/internal/transport/openai"
	"github.com/kailas-cloud/vecrag/internal/usecase/generation"
	"github.com/kailas-cloud/vecrag/internal/usecase/index"
	"github.com/kailas-cloud/vecrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/vecrag/internal/usecase/vectorstore"
)

const (
	dims       = 384
	collection = "notes"
	budgetAsk  = "我是小團隊，預算不多但想試用 AI，有適合的方案嗎？"
	freeAsk    = "我的預算有限，有免費方案嗎？"
)

// scriptedEmbedder stands in for the sentence model: corpus document i maps to
// basis vector e_i, the budget questions lean towards documents 1, 2 and 6.
type scriptedEmbedder struct {
	byText map[string][]float32
}

func newScriptedEmbedder(docs []domain.Document) *scriptedEmbedder {
	e := &scriptedEmbedder{byText: make(map[string][]float32)}
	for _, d := range docs {
		v := make([]float32, dims)
		v[d.ID] = 1
		e.byText[d.Text] = v
	}
	q := make([]float32, dims)
	q[1], q[2], q[6] = 0.9, 0.35, 0.2
	e.byText[budgetAsk] = q
	free := make([]float32, dims)
	free[1], free[6], free[2] = 0.95, 0.25, 0.1
	e.byText[freeAsk] = free
	return e
}

func (e *scriptedEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	v, ok := e.byText[text]
	if !ok {
		v = make([]float32, dims)
		v[0] = 1
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

type mockGenerator struct {
	calls      int
	lastPrompt string
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, p string) (string, error) {
	m.calls++
	m.lastPrompt = p
	if m.generateFn != nil {
		return m.generateFn(ctx, p)
	}
	return "建議選擇 Free 方案試用", nil
}

type mockRetriever struct {
	retrieveFn func(ctx context.Context, collection, query string, k int) ([]result.Result, error)
}

func (m *mockRetriever) RetrieveScored(ctx context.Context, collection, query string, k int) ([]result.Result, error) {
	return m.retrieveFn(ctx, collection, query, k)
}

// pipeline wires the real indexer, store and retriever over the memory backend.
func pipeline(t *testing.T, seed bool) (*retrieval.Service, []domain.Document) {
	t.Helper()
	docs, err := index.LoadCorpusFile("../../../config/corpus.yaml")
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	emb := newScriptedEmbedder(docs)
	mem := memory.New()
	vs := vectorstore.New(mem, mem, mem)

	toIndex := docs
	if !seed {
		toIndex = nil
	}
	if _, err := index.New(emb, vs, dims, domcol.Cosine, zap.NewNop()).Index(context.Background(), collection, toIndex); err != nil {
		t.Fatalf("index: %v", err)
	}
	return retrieval.New(emb, vs, zap.NewNop()), docs
}

func TestAnswer_PricingDocumentRankedFirst(t *testing.T) {
	ret, docs := pipeline(t, true)
	gen := &mockGenerator{}
	svc := New(ret, gen, collection, zap.NewNop())

	tr, err := svc.Trace(context.Background(), budgetAsk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Hits) != DefaultTopK {
		t.Fatalf("expected %d hits, got %d", DefaultTopK, len(tr.Hits))
	}
	if tr.Hits[0].ID() != 1 {
		t.Errorf("expected pricing document first, got id %d", tr.Hits[0].ID())
	}
	for i := 1; i < len(tr.Hits); i++ {
		if tr.Hits[i].Score() > tr.Hits[i-1].Score() {
			t.Errorf("scores not ordered at %d: %v > %v", i, tr.Hits[i].Score(), tr.Hits[i-1].Score())
		}
	}
	if !strings.HasPrefix(tr.Context, docs[0].Text+"\n") {
		t.Errorf("context must start with the pricing document, got %q", tr.Context)
	}
	if !strings.Contains(tr.Prompt, "問題："+budgetAsk) {
		t.Errorf("prompt missing question:\n%s", tr.Prompt)
	}
	if gen.lastPrompt != tr.Prompt {
		t.Error("generator must receive the rendered prompt")
	}
	if tr.Answer == "" || tr.ID == "" {
		t.Errorf("expected answer and trace id, got %+v", tr)
	}
}

func TestAnswer_FreePlanQuestion(t *testing.T) {
	ret, docs := pipeline(t, true)
	svc := New(ret, &mockGenerator{}, collection, zap.NewNop())

	tr, err := svc.Trace(context.Background(), freeAsk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(tr.Hits))
	}
	if tr.Hits[0].ID() != 1 {
		t.Errorf("expected pricing document first, got id %d", tr.Hits[0].ID())
	}
	if got := strings.SplitN(tr.Context, "\n", 2)[0]; got != docs[0].Text {
		t.Errorf("first context line = %q, want the pricing document", got)
	}
}

func TestAnswer_EmptyCollection(t *testing.T) {
	ret, _ := pipeline(t, false)
	gen := &mockGenerator{}
	svc := New(ret, gen, collection, zap.NewNop())

	ans, err := svc.Answer(context.Background(), budgetAsk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Context != "" {
		t.Errorf("expected empty context, got %q", ans.Context)
	}
	if ans.Question != budgetAsk {
		t.Errorf("question = %q", ans.Question)
	}
	if !strings.Contains(gen.lastPrompt, "參考資料：\n\n") {
		t.Errorf("prompt must carry an empty context block:\n%s", gen.lastPrompt)
	}
}

func TestAnswer_GeneratorUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := openai.NewGenerator(&openai.GeneratorConfig{
		Config: openai.Config{APIKey: "ollama", BaseURL: srv.URL, Model: "llama3"},
	})
	gen := generation.New(client, "llama3", 5*time.Second, zap.NewNop())

	ret, _ := pipeline(t, true)
	svc := New(ret, gen, collection, zap.NewNop())

	_, err := svc.Answer(context.Background(), budgetAsk)
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one generation call, got %d", n)
	}
}

func TestAnswer_CustomTemplate(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(_ context.Context, _, _ string, _ int) ([]result.Result, error) {
		return []result.Result{
			result.New(1, 0.9, map[string]any{"page_content": "A"}),
			result.New(2, 0.5, map[string]any{"page_content": "B"}),
		}, nil
	}}
	gen := &mockGenerator{}
	tpl := prompt.MustParse("Q={question}|C={context}")
	svc := New(ret, gen, collection, zap.NewNop(), WithTemplate(tpl))

	if _, err := svc.Answer(context.Background(), "why"); err != nil {
		t.Fatal(err)
	}
	if gen.lastPrompt != "Q=why|C=A\nB" {
		t.Errorf("unexpected prompt %q", gen.lastPrompt)
	}
}

func TestAnswer_MissingTemplateVariable(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(_ context.Context, _, _ string, _ int) ([]result.Result, error) {
		return nil, nil
	}}
	gen := &mockGenerator{}
	svc := New(ret, gen, collection, zap.NewNop(), WithTemplate(prompt.MustParse("{context} {audience}")))

	_, err := svc.Answer(context.Background(), "q")
	var mv *domain.MissingVariableError
	if !errors.As(err, &mv) || mv.Name != "audience" {
		t.Fatalf("expected missing variable audience, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called after a render failure")
	}
}

func TestAnswer_RetrievalErrorAborts(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(_ context.Context, _, _ string, _ int) ([]result.Result, error) {
		return nil, domain.ErrModelUnavailable
	}}
	gen := &mockGenerator{}
	svc := New(ret, gen, collection, zap.NewNop())

	_, err := svc.Answer(context.Background(), "q")
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called after a retrieval failure")
	}
}

func TestRun_Overrides(t *testing.T) {
	var gotCollection string
	var gotK int
	ret := &mockRetriever{retrieveFn: func(_ context.Context, c, _ string, k int) ([]result.Result, error) {
		gotCollection, gotK = c, k
		return nil, nil
	}}
	svc := New(ret, &mockGenerator{}, collection, zap.NewNop(), WithTopK(5))

	if _, err := svc.Run(context.Background(), Request{Query: "q"}); err != nil {
		t.Fatal(err)
	}
	if gotCollection != collection || gotK != 5 {
		t.Errorf("defaults: collection=%q k=%d", gotCollection, gotK)
	}

	if _, err := svc.Run(context.Background(), Request{Collection: "faq", Query: "q", TopK: 1}); err != nil {
		t.Fatal(err)
	}
	if gotCollection != "faq" || gotK != 1 {
		t.Errorf("overrides: collection=%q k=%d", gotCollection, gotK)
	}
}

func TestTrace_DistinctIDs(t *testing.T) {
	ret := &mockRetriever{retrieveFn: func(_ context.Context, _, _ string, _ int) ([]result.Result, error) {
		return nil, nil
	}}
	svc := New(ret, &mockGenerator{}, collection, zap.NewNop())

	a, _ := svc.Trace(context.Background(), "q")
	b, _ := svc.Trace(context.Background(), "q")
	if a.ID == b.ID {
		t.Error("each run must get its own trace id")
	}
}
