// Package collection keeps collection metadata in a Redis hash next to the FT
// vector index that serves its points.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
)

type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.VectorIndex) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
}

// HNSWConfig tunes the graph of every index this repo creates.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

var defaultHNSW = HNSWConfig{M: 16, EFConstruct: 200}

type Repo struct {
	store store
	hnsw  HNSWConfig
}

func New(s store) *Repo {
	return &Repo{store: s, hnsw: defaultHNSW}
}

// WithHNSW overrides the non-zero parameters of cfg.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw.M = positiveOr(cfg.M, r.hnsw.M)
	r.hnsw.EFConstruct = positiveOr(cfg.EFConstruct, r.hnsw.EFConstruct)
	return r
}

// Create writes the metadata hash and then the index. A failed FT.CREATE
// deletes the hash again so that a retry starts clean. An index that already
// exists is left from an interrupted Create and is adopted.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	key := domain.CollectionMetaKey(col.Name())

	switch exists, err := r.store.Exists(ctx, key); {
	case err != nil:
		return fmt.Errorf("collection %s: exists: %w", col.Name(), err)
	case exists:
		return domain.ErrAlreadyExists
	}

	def, err := buildIndex(col, r.hnsw)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, key, collectionToHash(col)); err != nil {
		return fmt.Errorf("collection %s: write metadata: %w", col.Name(), err)
	}

	err = r.store.CreateIndex(ctx, def)
	if err == nil || errors.Is(err, db.ErrIndexExists) {
		return nil
	}
	return errors.Join(
		fmt.Errorf("collection %s: create index: %w", col.Name(), err),
		r.store.Del(ctx, key),
	)
}

func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	meta, err := r.meta(ctx, name)
	if err != nil {
		return domcol.Collection{}, err
	}
	return collectionFromHash(meta)
}

// Delete removes the metadata hash, then drops the index together with every
// point hash (FT.DROPINDEX DD). If the drop fails the hash is written back.
func (r *Repo) Delete(ctx context.Context, name string) error {
	meta, err := r.meta(ctx, name)
	if err != nil {
		return err
	}

	key := domain.CollectionMetaKey(name)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("collection %s: delete metadata: %w", name, err)
	}

	err = r.store.DropIndex(ctx, domain.IndexName(name), true)
	if err == nil || errors.Is(err, db.ErrIndexNotFound) {
		return nil
	}
	return errors.Join(
		fmt.Errorf("collection %s: drop index: %w", name, err),
		r.store.HSet(ctx, key, meta),
	)
}

// meta returns domain.ErrNotFound for an empty hash.
func (r *Repo) meta(ctx context.Context, name string) (map[string]string, error) {
	m, err := r.store.HGetAll(ctx, domain.CollectionMetaKey(name))
	if err != nil {
		return nil, fmt.Errorf("collection %s: read metadata: %w", name, err)
	}
	if len(m) == 0 {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
