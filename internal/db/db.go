// Package db defines the storage contract shared by the Redis and Valkey
// drivers: hashes for collection metadata and points, plain keys for the
// embedding cache, and FT.* vector indexes.
package db

import (
	"context"
	"time"
)

// Store is everything one driver offers. Repositories declare the slice of it
// they use.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one hash write inside HSetMulti.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HSetMulti writes all items in one MULTI/EXEC transaction: all or nothing.
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Entry is one key-value pair for MSet.
type Entry struct {
	Key   string
	Value []byte
}

// KVStore provides plain string keys with optional expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet aligns results with keys; missing keys yield nil.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MSet(ctx context.Context, entries []Entry, ttl time.Duration) error
}

// IndexManager owns FT.CREATE / FT.DROPINDEX.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *VectorIndex) error
	// DropIndex removes the index; deleteDocs also removes every indexed key (DD).
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs FT.SEARCH queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
