// Package valkey adapts the Redis driver to valkey-search, which only serves
// KNN queries: no SORTBY and no bare "*" FT.SEARCH.
package valkey

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store reuses the Redis driver for hashes, KV and index lifecycle and
// overrides the search commands valkey-search rejects.
type Store struct {
	*redis.Store
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg redis.Config) (*Store, error) {
	opt, err := cfg.ClientOption()
	if err != nil {
		return nil, err
	}
	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	return FromClient(client), nil
}

// FromClient wraps an already configured rueidis client.
func FromClient(c rueidis.Client) *Store {
	return &Store{Store: redis.FromClient(c)}
}

// SearchKNN runs the query unordered and sorts hits by score, best first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := q.Args(false)
	if err != nil {
		return nil, err
	}
	raw, err := s.FTSearch(ctx, args...)
	if err != nil {
		return nil, err
	}
	res, err := redis.ParseKNNReply(raw, q.Distance)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(res.Entries, func(a, b int) bool { return res.Entries[a].Score > res.Entries[b].Score })
	return res, nil
}

// SearchCount counts keys under the index prefix with SCAN for query="*"
// because valkey-search does not support bare FT.SEARCH without KNN.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if query != "*" {
		return s.Store.SearchCount(ctx, index, query)
	}
	keys, err := s.Scan(ctx, indexToKeyPattern(index))
	if err != nil {
		return 0, fmt.Errorf("scan for count: %w", err)
	}
	return len(keys), nil
}

// indexToKeyPattern converts an index name to a SCAN pattern.
// "vecrag:notes:idx" -> "vecrag:{notes}:*"
func indexToKeyPattern(index string) string {
	base := strings.TrimSuffix(index, ":idx")
	i := strings.LastIndexByte(base, ':')
	if i < 0 {
		return "{" + base + "}:*"
	}
	return base[:i+1] + "{" + base[i+1:] + "}:*"
}
