package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// SearchKNN runs the query with server-side ordering by distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := q.Args(true)
	if err != nil {
		return nil, err
	}
	raw, err := s.FTSearch(ctx, args...)
	if err != nil {
		return nil, err
	}
	return ParseKNNReply(raw, q.Distance)
}

// SearchCount runs the query with LIMIT 0 0 and returns the reported total.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	raw, err := s.FTSearch(ctx, index, query, "LIMIT", "0", "0")
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("total: %w", err)}
	}
	return int(total), nil
}

// FTSearch sends FT.SEARCH with args and returns the raw reply array.
func (s *Store) FTSearch(ctx context.Context, args ...string) ([]rueidis.RedisMessage, error) {
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return raw, nil
}

// ParseKNNReply decodes [total, key1, [field, value, ...], key2, ...] and
// converts db.ScoreField into SearchEntry.Score. Hits keep reply order.
func ParseKNNReply(raw []rueidis.RedisMessage, distance db.DistanceMetric) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("total: %w", err)}
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key, Fields: fieldMap(pairs)}
		if d, ok := entry.Fields[db.ScoreField]; ok {
			delete(entry.Fields, db.ScoreField)
			if dist, err := strconv.ParseFloat(d, 64); err == nil {
				entry.Score = db.ScoreFromDistance(distance, dist)
			}
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// fieldMap skips pairs whose name or value is not a string.
func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, errN := pairs[j].ToString()
		value, errV := pairs[j+1].ToString()
		if errN == nil && errV == nil {
			m[name] = value
		}
	}
	return m
}
