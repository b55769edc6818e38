package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/prompt"
	"github.com/kailas-cloud/vecrag/internal/usecase/health"
)

// hashEmbedder spreads the bytes of text over a small vector.
type hashEmbedder struct {
	dims    int
	healthy error
}

func (e *hashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	v := make([]float32, e.dims)
	for i, b := range []byte(text) {
		v[i%e.dims] += float32(b)
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: len(text)}, nil
}

func (e *hashEmbedder) HealthCheck(context.Context) error { return e.healthy }

type echoGenerator struct {
	prompts []string
}

func (g *echoGenerator) Generate(_ context.Context, p string) (domain.GenerationResult, error) {
	g.prompts = append(g.prompts, p)
	return domain.GenerationResult{Text: "answer", PromptTokens: 10, CompletionTokens: 2}, nil
}

func TestNew_RequiresBackendAndEmbedder(t *testing.T) {
	if _, err := New(Options{Embedder: &hashEmbedder{dims: 4}}); err == nil {
		t.Error("expected error without backend")
	}
	if _, err := New(Options{Backend: MemoryBackend()}); err == nil {
		t.Error("expected error without embedder")
	}
}

func TestApp_SeedAndAnswer(t *testing.T) {
	gen := &echoGenerator{}
	a, err := New(Options{
		Backend:    MemoryBackend(),
		Embedder:   &hashEmbedder{dims: 8},
		Generator:  gen,
		Collection: "notes",
		Dimensions: 8,
		Template:   prompt.MustParse("{context}|{question}"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	if err := a.Probe(ctx); err != nil {
		t.Fatalf("probe: %v", err)
	}

	docs := []domain.Document{{ID: 1, Text: "alpha"}, {ID: 2, Text: "beta"}, {ID: 3, Text: "gamma"}, {ID: 4, Text: "delta"}}
	rep, err := a.Seed(ctx, docs)
	if err != nil || rep.Indexed != 4 || !rep.Created {
		t.Fatalf("seed: %+v, %v", rep, err)
	}
	rep, err = a.Seed(ctx, docs)
	if err != nil || rep.Created {
		t.Fatalf("reseed: %+v, %v", rep, err)
	}
	if n, _ := a.Store.Count(ctx, "notes"); n != 4 {
		t.Errorf("count after reseed = %d", n)
	}

	ans, err := a.RAG.Answer(ctx, "alpha")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if ans.Answer != "answer" {
		t.Errorf("answer = %q", ans.Answer)
	}
	if got := strings.Count(ans.Context, "\n") + 1; got != 3 {
		t.Errorf("expected 3 context lines, got %d: %q", got, ans.Context)
	}
	if !strings.HasPrefix(ans.Context, "alpha\n") {
		t.Errorf("self-retrieval: context = %q", ans.Context)
	}
	if len(gen.prompts) != 1 || !strings.HasSuffix(gen.prompts[0], "|alpha") {
		t.Errorf("unexpected prompts: %q", gen.prompts)
	}
}

func TestApp_ProbeDimensionMismatch(t *testing.T) {
	a, err := New(Options{Backend: MemoryBackend(), Embedder: &hashEmbedder{dims: 8}, Dimensions: 384})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Probe(context.Background()); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestApp_WithoutGenerator(t *testing.T) {
	a, err := New(Options{Backend: MemoryBackend(), Embedder: &hashEmbedder{dims: 4}, Dimensions: 4})
	if err != nil {
		t.Fatal(err)
	}
	if a.RAG != nil || a.Generation != nil {
		t.Error("pipeline must stay unset without a generator")
	}
	if _, ok := a.Health.Check(context.Background()).Checks[health.ComponentGeneration]; ok {
		t.Error("no generation check expected")
	}
}

func TestApp_HealthReportsEmbedder(t *testing.T) {
	a, err := New(Options{
		Backend:   MemoryBackend(),
		Embedder:  &hashEmbedder{dims: 4, healthy: errors.New("down")},
		Generator: &echoGenerator{},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := a.Health.Check(context.Background())
	if r.Status != health.Degraded || r.Checks[health.ComponentEmbedding] != health.CheckError {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestApp_Defaults(t *testing.T) {
	a, err := New(Options{Backend: MemoryBackend(), Embedder: &hashEmbedder{dims: 4}, QueryTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	vc := a.VectorConfig()
	if vc.Dimensions != 384 || vc.DistanceMetric != "cosine" || a.Collection() != "multilingual_notes" {
		t.Errorf("unexpected defaults: %+v collection=%s", vc, a.Collection())
	}
}

// recordingEmbedder remembers every text it was asked to embed.
type recordingEmbedder struct {
	hashEmbedder
	texts []string
}

func (e *recordingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	e.texts = append(e.texts, text)
	return e.hashEmbedder.Embed(ctx, text)
}

func TestApp_Instructions(t *testing.T) {
	emb := &recordingEmbedder{hashEmbedder: hashEmbedder{dims: 4}}
	a, err := New(Options{
		Backend:            MemoryBackend(),
		Embedder:           emb,
		Collection:         "notes",
		Dimensions:         4,
		QueryInstruction:   "query: ",
		PassageInstruction: "passage: ",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	if _, err := a.Seed(ctx, []domain.Document{{ID: 1, Text: "alpha"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := a.Retriever.Retrieve(ctx, "notes", "alpha?", 1); err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	want := []string{"passage: alpha", "query: alpha?"}
	if len(emb.texts) != len(want) {
		t.Fatalf("embedded %q, want %q", emb.texts, want)
	}
	for i := range want {
		if emb.texts[i] != want[i] {
			t.Errorf("text[%d] = %q, want %q", i, emb.texts[i], want[i])
		}
	}
}
