package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// CreateIndex runs FT.CREATE for a collection's vector index.
func (s *Store) CreateIndex(ctx context.Context, def *db.VectorIndex) error {
	args, err := def.Args()
	if err != nil {
		return fmt.Errorf("index %s: %w", def.Name, err)
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index. deleteDocs appends DD so the point hashes go too.
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name)
	if deleteDocs {
		cmd = cmd.Args("DD")
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes the index with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// SearchModuleLoaded reports whether the server understands FT.* commands
// (Redis Stack, Redis 8, Valkey with valkey-search).
func (s *Store) SearchModuleLoaded(ctx context.Context) (bool, error) {
	cmd := s.b().Arbitrary("FT._LIST").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown command") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpListIndexes, Err: err}
	}
	return true, nil
}

// Redis says "Unknown index name"; valkey-search says "Index ... not found".
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "not found")
}
