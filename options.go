package vecrag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type providerConfig struct {
	baseURL string
	apiKey  string
	model   string
}

type clientConfig struct {
	driver   string // "valkey", "redis", "pgvector" or "memory"
	addrs    []string
	password string
	dsn      string

	readinessTimeout time.Duration
	queryTimeout     time.Duration

	embedder       Embedder
	openaiEmbedder *providerConfig
	generator      Generator
	openaiGen      *providerConfig
	embeddingModel string

	collection      string
	dimensions      int
	metric          string
	topK            int
	template        string
	hnswM           int
	hnswEFConstruct int
	maxBatchSize    int
	cacheTTL        time.Duration
	cache           bool
	queryPrefix     string
	passagePrefix   string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores collections in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores collections in Redis Stack or Redis 8.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPgvector stores collections in PostgreSQL tables with the vector extension.
func WithPgvector(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "pgvector"
		c.dsn = dsn
	})
}

// WithMemory keeps collections in process. Data is lost on Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithReadinessTimeout bounds the wait for the store at startup. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithQueryTimeout bounds each store query. Zero leaves queries unbounded.
func WithQueryTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryTimeout = d
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAIEmbedder embeds through any OpenAI-compatible /embeddings endpoint.
func WithOpenAIEmbedder(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiEmbedder = &providerConfig{baseURL: baseURL, apiKey: apiKey, model: model}
		c.embeddingModel = model
	})
}

// WithEmbeddingModel names the model of a custom Embedder. Used for cache keys and metrics.
func WithEmbeddingModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
	})
}

// WithGenerator sets the chat model. Without one, Answer and Trace return ErrNoGenerator.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithOpenAIGenerator generates through any OpenAI-compatible /chat/completions endpoint
// (Ollama, vLLM, OpenAI).
func WithOpenAIGenerator(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiGen = &providerConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithCollection sets the default collection and its dimensionality.
// Defaults: "multilingual_notes", 384.
func WithCollection(name string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
		c.dimensions = dimensions
	})
}

// WithMetric sets the distance metric for new collections: cosine, dot or euclidean
// (aliases ip and l2 are accepted).
func WithMetric(metric string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metric = metric
	})
}

// WithTopK sets how many documents are passed to the chat model. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithTemplate replaces the prompt template. Placeholders are {context} and {question};
// write "{{" and "}}" for literal braces.
func WithTemplate(text string) Option {
	return optionFunc(func(c *clientConfig) {
		c.template = text
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithMaxBatchSize caps the number of texts per embedding request.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithInstructions prepends markers for asymmetric embedding models, for
// example WithInstructions("query: ", "passage: ") for the e5 family.
// Questions get query; indexed documents get passage.
func WithInstructions(query, passage string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryPrefix = query
		c.passagePrefix = passage
	})
}

// WithEmbeddingCache caches embeddings in Redis/Valkey. Ignored for other drivers.
// A zero ttl keeps entries forever.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = true
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
