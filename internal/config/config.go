package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPgvector = "pgvector"
	DriverMemory   = "memory"
)

// Config holds the vecrag service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Collection CollectionConfig `yaml:"collection"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	RAG        RAGConfig        `yaml:"rag"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, pgvector, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"` // pgvector only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	QueryTimeoutSec  int      `yaml:"query_timeout_sec"` // 0 = unbounded
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// CollectionConfig describes the collection the service answers from.
type CollectionConfig struct {
	Name       string `yaml:"name"`
	Dimensions int    `yaml:"dimensions"`
	Distance   string `yaml:"distance"`
	SeedFile   string `yaml:"seed_file"` // indexed at startup when set
}

// EmbeddingConfig holds the OpenAI-compatible embedding endpoint settings.
type EmbeddingConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	Dimensions        int    `yaml:"dimensions"`
	RequestDimensions bool   `yaml:"request_dimensions"` // send "dimensions" in the API request
	Cache             bool   `yaml:"cache"`
	CacheTTLHours     int    `yaml:"cache_ttl_hours"` // 0 = no expiry
	MaxBatchSize      int    `yaml:"max_batch_size"`
	TimeoutSec        int    `yaml:"timeout_sec"`

	// Markers for asymmetric models such as e5: "query: " / "passage: ".
	QueryInstruction   string `yaml:"query_instruction"`
	PassageInstruction string `yaml:"passage_instruction"`
}

// GenerationConfig holds the OpenAI-compatible chat endpoint settings.
type GenerationConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"` // 0 = unbounded
}

// RAGConfig holds pipeline settings.
type RAGConfig struct {
	TopK     int    `yaml:"top_k"`
	Template string `yaml:"template"` // empty = built-in zh-TW template
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values. The model defaults
// follow the paraphrase-multilingual-MiniLM-L12-v2 / llama3 setup.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "vecrag:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Collection.Name == "" {
		c.Collection.Name = "multilingual_notes"
	}
	if c.Collection.Distance == "" {
		c.Collection.Distance = "cosine"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:8081/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Collection.Dimensions <= 0 {
		c.Collection.Dimensions = c.Embedding.Dimensions
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "http://localhost:11434/v1"
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = "ollama"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama3"
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPgvector:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, pgvector, memory, got %q", c.Database.Driver)
	}

	if c.Database.QueryTimeoutSec < 0 {
		return fmt.Errorf("database.query_timeout_sec must not be negative")
	}
	switch strings.ToLower(c.Collection.Distance) {
	case "cosine", "dot", "euclidean":
	default:
		return fmt.Errorf("collection.distance must be cosine, dot or euclidean, got %q", c.Collection.Distance)
	}
	if c.Collection.Dimensions != c.Embedding.Dimensions {
		return fmt.Errorf("collection.dimensions (%d) must match embedding.dimensions (%d)",
			c.Collection.Dimensions, c.Embedding.Dimensions)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
	}
	if c.Generation.TimeoutSec < 0 {
		return fmt.Errorf("generation.timeout_sec must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
