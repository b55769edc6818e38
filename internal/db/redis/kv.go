package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// Get returns db.ErrKeyNotFound for a missing key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// MGet reads keys in one pipelined round trip. The result is aligned with
// keys; a missing key leaves a nil slot. Plain GETs are used instead of MGET
// so that keys may live in different cluster slots.
func (s *Store) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, k := range keys {
		cmds[i] = s.b().Get().Key(k).Build()
	}

	out := make([][]byte, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		data, err := res.AsBytes()
		if rueidis.IsRedisNil(err) {
			continue
		}
		if err != nil {
			return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = data
	}
	return out, nil
}

// Set stores value at key. A ttl <= 0 keeps the key without expiry;
// positive values are applied with second granularity, minimum one second.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.do(ctx, s.setCmd(key, value, ttl)).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// MSet writes all entries with the same ttl in one pipelined round trip.
// Writes are independent: a failure may leave earlier entries stored.
func (s *Store) MSet(ctx context.Context, entries []db.Entry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, len(entries))
	for i, e := range entries {
		cmds[i] = s.setCmd(e.Key, e.Value, ttl)
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpSet, Err: fmt.Errorf("key %s: %w", entries[i].Key, err)}
		}
	}
	return nil
}

func (s *Store) setCmd(key string, value []byte, ttl time.Duration) rueidis.Completed {
	set := s.b().Set().Key(key).Value(rueidis.BinaryString(value))
	if ttl > 0 {
		return set.Ex(max(ttl, time.Second)).Build()
	}
	return set.Build()
}
