package vecrag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/vecrag/internal/app"
	"github.com/kailas-cloud/vecrag/internal/db"
	dbRedis "github.com/kailas-cloud/vecrag/internal/db/redis"
	dbValkey "github.com/kailas-cloud/vecrag/internal/db/valkey"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/prompt"
	"github.com/kailas-cloud/vecrag/internal/repository/pgvector"
	openaiTransport "github.com/kailas-cloud/vecrag/internal/transport/openai"
	"github.com/kailas-cloud/vecrag/internal/usecase/index"
	"github.com/kailas-cloud/vecrag/internal/usecase/rag"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultProviderTimeout  = 60 * time.Second
)

// Client is the vecrag entry point.
type Client struct {
	app *app.App
	obs *observer
}

// New creates a Client and connects to the store. It does not call the
// embedding model; use Probe for that.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("vecrag: store required (use WithRedis, WithValkey, WithPgvector or WithMemory)")
	}
	embedder := cfg.embedder
	if embedder == nil && cfg.openaiEmbedder != nil {
		embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.openaiEmbedder.apiKey,
			BaseURL:    cfg.openaiEmbedder.baseURL,
			Model:      cfg.openaiEmbedder.model,
			HTTPClient: &http.Client{Timeout: defaultProviderTimeout},
		})
	}
	if embedder == nil {
		return nil, errors.New("vecrag: embedder required (use WithEmbedder or WithOpenAIEmbedder)")
	}

	var tpl *prompt.Template
	if cfg.template != "" {
		var err error
		if tpl, err = prompt.Parse(cfg.template); err != nil {
			return nil, fmt.Errorf("vecrag: template: %w", err)
		}
	}
	var metric domcol.Metric
	if cfg.metric != "" {
		var err error
		if metric, err = domcol.ParseMetric(cfg.metric); err != nil {
			return nil, fmt.Errorf("vecrag: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	backend, err := createBackend(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(app.Options{
		Backend:            backend,
		Embedder:           embedder,
		Generator:          generator(cfg),
		EmbeddingModel:     cfg.embeddingModel,
		GenerationModel:    generationModel(cfg),
		Collection:         cfg.collection,
		Dimensions:         cfg.dimensions,
		Metric:             metric,
		TopK:               cfg.topK,
		Template:           tpl,
		QueryTimeout:       cfg.queryTimeout,
		EmbeddingCache:     cfg.cache,
		EmbeddingCacheTTL:  cfg.cacheTTL,
		MaxBatchSize:       cfg.maxBatchSize,
		QueryInstruction:   cfg.queryPrefix,
		PassageInstruction: cfg.passagePrefix,
		Logger:             cfg.logger,
	})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("vecrag: %w", err)
	}
	return &Client{app: a, obs: obs}, nil
}

func generator(cfg *clientConfig) Generator {
	if cfg.generator != nil {
		return cfg.generator
	}
	if cfg.openaiGen == nil {
		return nil
	}
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:     cfg.openaiGen.apiKey,
			BaseURL:    cfg.openaiGen.baseURL,
			Model:      cfg.openaiGen.model,
			HTTPClient: &http.Client{Timeout: defaultProviderTimeout},
		},
	})
}

func generationModel(cfg *clientConfig) string {
	if cfg.openaiGen != nil {
		return cfg.openaiGen.model
	}
	return ""
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("vecrag: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("vecrag: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("vecrag: unknown driver %q", cfg.driver)
	}
}

func createBackend(ctx context.Context, cfg *clientConfig) (app.Backend, error) {
	hnsw := app.HNSW{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct}

	switch cfg.driver {
	case "memory":
		return app.MemoryBackend(), nil
	case "pgvector":
		ctx, cancel := context.WithTimeout(ctx, cfg.readinessTimeout)
		defer cancel()
		pg, err := pgvector.New(ctx, cfg.dsn)
		if err != nil {
			return app.Backend{}, fmt.Errorf("vecrag: connect pgvector: %w", err)
		}
		return app.PgvectorBackend(pg, hnsw), nil
	}

	store, err := createStore(cfg)
	if err != nil {
		return app.Backend{}, err
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return app.Backend{}, fmt.Errorf("vecrag: database not ready: %w", err)
	}
	return app.RedisBackend(cfg.driver, store, hnsw), nil
}

// Close releases all resources.
func (c *Client) Close() {
	c.app.Close()
}

// Collection returns the default collection name.
func (c *Client) Collection() string { return c.app.Collection() }

// Probe embeds a short text and checks the vector length matches the
// collection dimensionality.
func (c *Client) Probe(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("probe", start, err) }()
	return c.app.Probe(ctx)
}

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts ...string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() { c.obs.observe("embed", start, err) }()

	res, err := domain.EmbedBatch(ctx, c.app.Embedder, texts)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

// Health reports store and model availability.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.app.Health.Check(ctx)
}

// Index embeds docs and upserts them into the default collection, creating
// it on first use. Re-indexing the same ids overwrites.
func (c *Client) Index(ctx context.Context, docs []Document) (IndexReport, error) {
	return c.IndexInto(ctx, c.app.Collection(), docs)
}

// IndexInto is Index for an explicit collection.
func (c *Client) IndexInto(ctx context.Context, collection string, docs []Document) (rep IndexReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index", start, err) }()
	return c.app.Indexer.Index(ctx, collection, docs)
}

// IndexFile loads a YAML corpus (documents: [{id, text}]) into the default collection.
func (c *Client) IndexFile(ctx context.Context, path string) (IndexReport, error) {
	docs, err := index.LoadCorpusFile(path)
	if err != nil {
		return IndexReport{}, err
	}
	return c.Index(ctx, docs)
}

// Retrieve returns up to k documents closest to query, best first.
func (c *Client) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	return c.RetrieveFrom(ctx, c.app.Collection(), query, k)
}

// RetrieveFrom is Retrieve for an explicit collection.
func (c *Client) RetrieveFrom(ctx context.Context, collection, query string, k int) (hits []Hit, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	rs, err := c.app.Retriever.RetrieveScored(ctx, collection, query, k)
	if err != nil {
		return nil, err
	}
	return toHits(rs), nil
}

// Answer runs retrieve, augment and generate and returns the model's reply.
func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	tr, err := c.Trace(ctx, question)
	if err != nil {
		return "", err
	}
	return tr.Answer, nil
}

// Trace is Answer with every intermediate stage exposed. On error the
// returned Trace holds the stages that completed.
func (c *Client) Trace(ctx context.Context, question string) (tr Trace, err error) {
	if c.app.RAG == nil {
		return Trace{}, ErrNoGenerator
	}
	start := time.Now()
	defer func() { c.obs.observe("answer", start, err) }()

	t, err := c.app.RAG.Run(ctx, rag.Request{Query: question})
	return toTrace(t), err
}
