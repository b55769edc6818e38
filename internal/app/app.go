// Package app is the composition root shared by the HTTP server and the
// library client: it assembles the embedder decorator chain and every use case
// on top of one storage backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/prompt"
	"github.com/kailas-cloud/vecrag/internal/metrics"
	"github.com/kailas-cloud/vecrag/internal/repository/embcache"
	embeddinguc "github.com/kailas-cloud/vecrag/internal/usecase/embedding"
	"github.com/kailas-cloud/vecrag/internal/usecase/generation"
	"github.com/kailas-cloud/vecrag/internal/usecase/health"
	"github.com/kailas-cloud/vecrag/internal/usecase/index"
	"github.com/kailas-cloud/vecrag/internal/usecase/rag"
	"github.com/kailas-cloud/vecrag/internal/usecase/retrieval"
	"github.com/kailas-cloud/vecrag/internal/usecase/vectorstore"
)

// Options configure the pipeline. Zero values fall back to the defaults of the
// multilingual MiniLM / llama3 setup.
type Options struct {
	Backend   Backend
	Embedder  domain.Embedder
	Generator generation.Client

	EmbeddingModel  string
	GenerationModel string

	Collection string
	Dimensions int
	Metric     domcol.Metric
	TopK       int
	Template   *prompt.Template

	QueryTimeout      time.Duration
	GenerationTimeout time.Duration

	EmbeddingCache    bool
	EmbeddingCacheTTL time.Duration
	MaxBatchSize      int

	// Prepended to questions and to indexed documents respectively.
	QueryInstruction   string
	PassageInstruction string

	Logger *zap.Logger
}

// App holds the wired services.
type App struct {
	Store      *vectorstore.Service
	Embedder   domain.Embedder
	Indexer    *index.Service
	Retriever  *retrieval.Service
	Generation *generation.Service
	RAG        *rag.Service
	Health     *health.Service

	backend Backend
	opts    Options
}

// New wires every service. It performs no I/O.
func New(opts Options) (*App, error) {
	if opts.Backend.Collections == nil {
		return nil, errors.New("storage backend is required")
	}
	if opts.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	opts = withDefaults(opts)
	log := opts.Logger

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterRetrievalMetrics()

	emb := buildEmbedder(opts)

	store := vectorstore.New(opts.Backend.Collections, opts.Backend.Points, opts.Backend.Searcher).
		WithQueryTimeout(opts.QueryTimeout)
	retriever := retrieval.New(withInstruction(emb, opts.QueryInstruction), store, log.Named("retrieval"))
	indexer := index.New(withInstruction(emb, opts.PassageInstruction), store,
		opts.Dimensions, opts.Metric, log.Named("index"))

	a := &App{
		Store:     store,
		Embedder:  emb,
		Indexer:   indexer,
		Retriever: retriever,
		backend:   opts.Backend,
		opts:      opts,
	}

	healthOpts := []health.Option{}
	if hc, ok := emb.(domain.HealthChecker); ok {
		healthOpts = append(healthOpts, health.WithEmbedding(hc))
	}

	if opts.Generator != nil {
		a.Generation = generation.New(opts.Generator, opts.GenerationModel, opts.GenerationTimeout, log.Named("generation"))
		a.RAG = rag.New(retriever, a.Generation, opts.Collection, log.Named("rag"),
			rag.WithTopK(opts.TopK),
			rag.WithTemplate(opts.Template),
		)
		if hc, ok := opts.Generator.(domain.HealthChecker); ok {
			healthOpts = append(healthOpts, health.WithGeneration(hc))
		}
	}

	a.Health = health.New(opts.Backend.Pinger, log.Named("health"), healthOpts...)
	return a, nil
}

func withDefaults(o Options) Options {
	def := domain.DefaultVectorConfig()
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = def.Model
	}
	if o.GenerationModel == "" {
		o.GenerationModel = "llama3"
	}
	if o.Collection == "" {
		o.Collection = "multilingual_notes"
	}
	if o.Dimensions <= 0 {
		o.Dimensions = def.Dimensions
	}
	if o.Metric == "" {
		o.Metric = domcol.Metric(def.DistanceMetric)
	}
	if o.TopK <= 0 {
		o.TopK = rag.DefaultTopK
	}
	if o.Template == nil {
		o.Template = prompt.Default()
	}
	return o
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented.
func buildEmbedder(o Options) domain.Embedder {
	emb := o.Embedder
	if o.EmbeddingCache && o.Backend.Cache != nil {
		emb = embcache.New(emb, o.Backend.Cache, o.EmbeddingModel, o.EmbeddingCacheTTL,
			metrics.EmbeddingCacheTotal, o.Logger.Named("embcache"))
	}
	return embeddinguc.NewInstrumentedEmbedder(emb, o.EmbeddingModel, o.MaxBatchSize, o.Logger.Named("embedding"))
}

// withInstruction leaves emb untouched when there is no marker to prepend.
func withInstruction(emb domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return emb
	}
	return domain.NewInstructionEmbedder(emb, instruction)
}

// Collection returns the default collection name.
func (a *App) Collection() string { return a.opts.Collection }

// VectorConfig reports the defaults used for implicitly created collections.
func (a *App) VectorConfig() domain.VectorConfig {
	return domain.VectorConfig{
		Model:          a.opts.EmbeddingModel,
		Dimensions:     a.opts.Dimensions,
		DistanceMetric: string(a.opts.Metric),
		Algorithm:      "hnsw",
	}
}

// Probe checks the embedding model answers with the configured dimensionality.
func (a *App) Probe(ctx context.Context) error {
	if err := embeddinguc.Probe(ctx, a.Embedder, a.opts.Dimensions, a.opts.Logger); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

// Seed indexes docs into the default collection. Safe to repeat.
func (a *App) Seed(ctx context.Context, docs []domain.Document) (index.Report, error) {
	rep, err := a.Indexer.Index(ctx, a.opts.Collection, docs)
	if err != nil {
		return rep, fmt.Errorf("seed %s: %w", a.opts.Collection, err)
	}
	return rep, nil
}

// SeedFile loads a YAML corpus and indexes it into the default collection.
func (a *App) SeedFile(ctx context.Context, path string) (index.Report, error) {
	docs, err := index.LoadCorpusFile(path)
	if err != nil {
		return index.Report{}, err
	}
	return a.Seed(ctx, docs)
}

// Close releases the storage backend.
func (a *App) Close() {
	if a.backend.Close != nil {
		a.backend.Close()
	}
}
