package app

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/db"
	collectionrepo "github.com/kailas-cloud/vecrag/internal/repository/collection"
	"github.com/kailas-cloud/vecrag/internal/repository/memory"
	"github.com/kailas-cloud/vecrag/internal/repository/pgvector"
	pointrepo "github.com/kailas-cloud/vecrag/internal/repository/point"
	searchrepo "github.com/kailas-cloud/vecrag/internal/repository/search"
	"github.com/kailas-cloud/vecrag/internal/usecase/vectorstore"
)

// KVStore backs the embedding cache.
type KVStore = db.KVStore

// HNSW holds graph parameters shared by the Redis and pgvector backends.
type HNSW struct {
	M           int
	EFConstruct int
}

// Backend bundles the repositories of one vector store driver.
type Backend struct {
	Name        string
	Collections vectorstore.CollectionRepository
	Points      vectorstore.PointRepository
	Searcher    vectorstore.Searcher
	Pinger      interface{ Ping(ctx context.Context) error }
	// Cache is nil for drivers without a key-value side (pgvector, memory).
	Cache KVStore
	Close func()
}

// RedisBackend serves collections from Redis Stack / Redis 8 or Valkey through FT indexes.
func RedisBackend(name string, store db.Store, hnsw HNSW) Backend {
	return Backend{
		Name: name,
		Collections: collectionrepo.New(store).WithHNSW(collectionrepo.HNSWConfig{
			M:           hnsw.M,
			EFConstruct: hnsw.EFConstruct,
		}),
		Points:   pointrepo.New(store),
		Searcher: searchrepo.New(store),
		Pinger:   store,
		Cache:    store,
		Close:    store.Close,
	}
}

// PgvectorBackend serves collections from PostgreSQL tables with HNSW indexes.
func PgvectorBackend(store *pgvector.Store, hnsw HNSW) Backend {
	store = store.WithHNSW(pgvector.HNSWConfig{M: hnsw.M, EFConstruct: hnsw.EFConstruct})
	return Backend{
		Name:        "pgvector",
		Collections: store,
		Points:      store,
		Searcher:    store,
		Pinger:      store,
		Close:       store.Close,
	}
}

// MemoryBackend keeps everything in process.
func MemoryBackend() Backend {
	mem := memory.New()
	return Backend{
		Name:        "memory",
		Collections: mem,
		Points:      mem,
		Searcher:    mem,
		Pinger:      mem,
		Close:       func() {},
	}
}
