package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrag/internal/db"
)

const scanBatch = 100

// HSet writes fields into the hash at key.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.do(ctx, s.hsetCmd(key, fields)).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HSetMulti queues every item between MULTI and EXEC and sends the block in
// one round trip, so either all hashes are written or none. On a cluster the
// keys must share a hash slot; point keys carry a {collection} tag for that.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items)+2)
	cmds = append(cmds, s.b().Multi().Build())
	for _, it := range items {
		cmds = append(cmds, s.hsetCmd(it.Key, it.Fields))
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	exec := results[len(results)-1]
	if err := exec.Error(); err != nil {
		// EXECABORT: a queued command was rejected before execution.
		return &db.Error{Op: db.OpExec, Err: err}
	}
	// results[1..n] are the QUEUED acks; the last one is EXEC itself.
	for i, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("%s: %w", queuedKey(items, i), err)}
		}
	}

	replies, err := exec.ToArray()
	if err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for i, reply := range replies {
		if err := reply.Error(); err != nil && i < len(items) {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	return nil
}

// HGetAll returns every field of the hash; a missing key gives an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return fields, nil
}

// Del removes key. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.do(ctx, s.b().Del().Key(key).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.do(ctx, s.b().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return n == 1, nil
}

// Scan walks the keyspace with SCAN MATCH until the cursor wraps to zero.
// The result may contain duplicates if keys are rehashed mid-walk.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		page, err := s.do(ctx, s.b().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, page.Elements...)
		if cursor = page.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}

func (s *Store) hsetCmd(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for f, v := range fields {
		cmd = cmd.FieldValue(f, v)
	}
	return cmd.Build()
}

// queuedKey names the item behind the i-th reply of a MULTI block.
func queuedKey(items []db.HashSetItem, i int) string {
	if i == 0 {
		return "MULTI"
	}
	if i <= len(items) {
		return "key " + items[i-1].Key
	}
	return "EXEC"
}
