package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/app"
	"github.com/kailas-cloud/vecrag/internal/config"
	"github.com/kailas-cloud/vecrag/internal/db"
	dbRedis "github.com/kailas-cloud/vecrag/internal/db/redis"
	dbValkey "github.com/kailas-cloud/vecrag/internal/db/valkey"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/prompt"
	logpkg "github.com/kailas-cloud/vecrag/internal/logger"
	"github.com/kailas-cloud/vecrag/internal/metrics"
	"github.com/kailas-cloud/vecrag/internal/repository/pgvector"
	chiTransport "github.com/kailas-cloud/vecrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/vecrag/internal/transport/openai"
	"github.com/kailas-cloud/vecrag/internal/version"
)

const usage = `usage: vecrag [command]

commands:
  serve          run the HTTP API (default)
  seed           index collection.seed_file into the configured collection
  ask QUESTION   answer one question and print every pipeline stage
  probe          check the embedding model and its dimensionality`

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	if err := run(cmd, args); err != nil {
		fmt.Fprintln(os.Stderr, "vecrag:", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return serve(ctx, cfg, env, logger)
	case "seed":
		return seed(ctx, cfg, logger)
	case "ask":
		if len(args) == 0 {
			return errors.New("ask needs a question")
		}
		return ask(ctx, cfg, strings.Join(args, " "), logger)
	case "probe":
		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Probe(ctx)
	case "version":
		fmt.Println("vecrag " + version.String())
		return nil
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func serve(ctx context.Context, cfg config.Config, env string, logger *zap.Logger) error {
	logger.Info("Starting vecrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("collection", cfg.Collection.Name),
	)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ready, err := startupProbe(ctx, a.Probe, logger)
	if err != nil {
		return err
	}
	if ready && cfg.Collection.SeedFile != "" {
		if _, err := a.SeedFile(ctx, cfg.Collection.SeedFile); err != nil {
			logger.Warn("Seeding failed", zap.String("file", cfg.Collection.SeedFile), zap.Error(err))
		}
	}

	metrics.RegisterHTTPMetrics()
	server := chiTransport.NewServer(a.Store, a.Indexer, a.Retriever, a.RAG, a.Health, a.VectorConfig(), logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(cfg.Auth.APIKeys, metrics.Middleware()),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func seed(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Collection.SeedFile == "" {
		return errors.New("collection.seed_file is not set")
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Probe(ctx); err != nil {
		return err
	}
	rep, err := a.SeedFile(ctx, cfg.Collection.SeedFile)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d documents into %s (created: %t)\n", rep.Indexed, rep.Collection, rep.Created)
	return nil
}

// ask mirrors the three printed stages of a traced run.
func ask(ctx context.Context, cfg config.Config, question string, logger *zap.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	tr, err := a.RAG.Trace(ctx, question)
	if err != nil {
		return err
	}

	rule := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n問題「%s」\n%s\n", rule, question, rule)
	fmt.Printf("\nRetrieval (%d)\n%s\n", len(tr.Hits), strings.Repeat("-", 60))
	for i, h := range tr.Hits {
		fmt.Printf("  %d. [%.4f] %s\n", i+1, h.Score(), truncate(h.Content(), 80))
	}
	fmt.Printf("\nAugmentation\n%s\n%s\n", strings.Repeat("-", 60), tr.Prompt)
	fmt.Printf("\nGeneration\n%s\n%s\n%s\n", strings.Repeat("-", 60), tr.Answer, rule)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// buildApp is the composition root: store driver, model transports and services.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	domain.KeyPrefix = cfg.Storage.KeyPrefix

	backend, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	embTimeout := time.Duration(cfg.Embedding.TimeoutSec) * time.Second
	requestDims := 0
	if cfg.Embedding.RequestDimensions {
		requestDims = cfg.Embedding.Dimensions
	}
	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: requestDims,
		HTTPClient: &http.Client{Timeout: embTimeout},
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
		},
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})

	var tpl *prompt.Template
	if cfg.RAG.Template != "" {
		if tpl, err = prompt.Parse(cfg.RAG.Template); err != nil {
			backend.Close()
			return nil, fmt.Errorf("rag.template: %w", err)
		}
	}

	metric, err := domcol.ParseMetric(cfg.Collection.Distance)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("collection.distance: %w", err)
	}

	a, err := app.New(app.Options{
		Backend:            backend,
		Embedder:           embedder,
		Generator:          generator,
		EmbeddingModel:     cfg.Embedding.Model,
		GenerationModel:    cfg.Generation.Model,
		Collection:         cfg.Collection.Name,
		Dimensions:         cfg.Collection.Dimensions,
		Metric:             metric,
		TopK:               cfg.RAG.TopK,
		Template:           tpl,
		QueryTimeout:       time.Duration(cfg.Database.QueryTimeoutSec) * time.Second,
		GenerationTimeout:  time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		EmbeddingCache:     cfg.Embedding.Cache,
		EmbeddingCacheTTL:  time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour,
		MaxBatchSize:       cfg.Embedding.MaxBatchSize,
		QueryInstruction:   cfg.Embedding.QueryInstruction,
		PassageInstruction: cfg.Embedding.PassageInstruction,
		Logger:             logger,
	})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("wire app: %w", err)
	}
	return a, nil
}

func buildBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (app.Backend, error) {
	hnsw := app.HNSW{M: cfg.Index.HNSWM, EFConstruct: cfg.Index.HNSWEFConstruct}
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	var store db.Store
	var err error
	switch cfg.Database.Driver {
	case config.DriverValkey:
		store, err = dbValkey.NewStore(dbRedis.Config{Addrs: cfg.Database.Addrs, Password: cfg.Database.Password})
	case config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Database.Addrs, Password: cfg.Database.Password})
	case config.DriverPgvector:
		pgCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		pg, err := pgvector.New(pgCtx, cfg.Database.DSN)
		if err != nil {
			return app.Backend{}, fmt.Errorf("connect pgvector: %w", err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
		return app.PgvectorBackend(pg, hnsw), nil
	case config.DriverMemory:
		logger.Warn("Using in-memory store: data is lost on restart")
		return app.MemoryBackend(), nil
	default:
		return app.Backend{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return app.Backend{}, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}

	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return app.Backend{}, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)
	return app.RedisBackend(cfg.Database.Driver, store, hnsw), nil
}

// startupProbe embeds the probe sentence once. An unreachable model is logged and
// serving continues: /health reports it and requests fail with 502. A model whose
// vectors do not match the configured dimensions is fatal.
func startupProbe(ctx context.Context, probe func(context.Context) error, logger *zap.Logger) (bool, error) {
	err := probe(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrDimensionMismatch):
		return false, fmt.Errorf("embedding model: %w", err)
	default:
		logger.Warn("Embedding model probe failed", zap.Error(err))
		return false, nil
	}
}
