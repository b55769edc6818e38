// Package pgvector stores collections in PostgreSQL tables with the pgvector extension.
package pgvector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	dompoint "github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/repository/point"
)

const (
	metaTable   = "vecrag_collections"
	pointsTable = "vecrag_points_"

	// Postgres truncates identifiers beyond NAMEDATALEN-1 bytes.
	maxIdentifier = 63
)

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Store implements the collection, point and search repositories on Postgres.
type Store struct {
	pool pool
	hnsw HNSWConfig
}

// New connects to Postgres, ensures the vector extension and the metadata table.
func New(ctx context.Context, dsn string) (*Store, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: p, hnsw: HNSWConfig{M: 16, EFConstruct: 64}}
	if err := s.migrate(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// WithHNSW configures HNSW index parameters for collections created afterwards.
func (s *Store) WithHNSW(cfg HNSWConfig) *Store {
	if cfg.M > 0 {
		s.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		s.hnsw.EFConstruct = cfg.EFConstruct
	}
	return s
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS ` + metaTable + ` (
			name TEXT PRIMARY KEY,
			dimensions INT NOT NULL,
			metric TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Create inserts the metadata row and creates the points table with its HNSW index
// in one transaction.
func (s *Store) Create(ctx context.Context, col domcol.Collection) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO `+metaTable+` (name, dimensions, metric, created_at)
			VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING`,
			col.Name(), col.Dimensions(), string(col.Metric()), col.CreatedAt())
		if err != nil {
			return fmt.Errorf("insert collection %s: %w", col.Name(), err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadyExists
		}

		for _, stmt := range createTableSQL(col, s.hnsw) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create points table %s: %w", col.Name(), err)
			}
		}
		return nil
	})
}

// Get returns a collection by name.
func (s *Store) Get(ctx context.Context, name string) (domcol.Collection, error) {
	var (
		dims      int
		metric    string
		createdAt int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT dimensions, metric, created_at FROM `+metaTable+` WHERE name = $1`, name,
	).Scan(&dims, &metric, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domcol.Collection{}, domain.ErrNotFound
		}
		return domcol.Collection{}, fmt.Errorf("select collection %s: %w", name, err)
	}
	return domcol.Reconstruct(name, dims, domcol.Metric(metric), createdAt), nil
}

// Delete drops the points table and the metadata row.
func (s *Store) Delete(ctx context.Context, name string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM `+metaTable+` WHERE name = $1`, name)
		if err != nil {
			return fmt.Errorf("delete collection %s: %w", name, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+tableName(name)); err != nil {
			return fmt.Errorf("drop points table %s: %w", name, err)
		}
		return nil
	})
}

// Upsert writes the batch inside a transaction; a failed row rolls back the whole batch.
func (s *Store) Upsert(ctx context.Context, collectionName string, points []dompoint.Point) error {
	if len(points) == 0 {
		return nil
	}

	sql := upsertSQL(collectionName)
	batch := &pgx.Batch{}
	for _, p := range points {
		id, err := pgID(p.ID())
		if err != nil {
			return err
		}
		payload, err := point.EncodePayload(p.Payload())
		if err != nil {
			return fmt.Errorf("point %d: %w", p.ID(), err)
		}
		batch.Queue(sql, id, FormatVector(p.Vector()), payload)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert %d points into %s: %w", len(points), collectionName, err)
		}
		return nil
	})
}

// Count returns the number of points in a collection.
func (s *Store) Count(ctx context.Context, collectionName string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+tableName(collectionName)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collectionName, err)
	}
	return n, nil
}

// GetPoint reads one point back, vector included.
func (s *Store) GetPoint(ctx context.Context, collectionName string, id uint64) (dompoint.Point, error) {
	pid, err := pgID(id)
	if err != nil {
		return dompoint.Point{}, err
	}

	var vector, payload string
	if err := s.pool.QueryRow(ctx, getPointSQL(collectionName), pid).Scan(&vector, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dompoint.Point{}, domain.ErrNotFound
		}
		return dompoint.Point{}, fmt.Errorf("select point %d from %s: %w", id, collectionName, err)
	}

	vec, err := ParseVector(vector)
	if err != nil {
		return dompoint.Point{}, fmt.Errorf("point %d: %w", id, err)
	}
	m, err := point.DecodePayload(payload)
	if err != nil {
		return dompoint.Point{}, fmt.Errorf("point %d: %w", id, err)
	}
	return dompoint.Reconstruct(id, vec, m), nil
}

// SearchKNN orders points by the collection's distance operator and returns
// higher-is-better scores. Ties are broken by ascending ID.
func (s *Store) SearchKNN(
	ctx context.Context, col domcol.Collection, vector []float32, topK int,
) ([]result.Result, error) {
	rows, err := s.pool.Query(ctx, searchSQL(col), FormatVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", col.Name(), err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (result.Result, error) {
		var (
			id      int64
			payload []byte
			score   float64
		)
		if err := row.Scan(&id, &payload, &score); err != nil {
			return result.Result{}, err
		}
		m, err := point.DecodePayload(string(payload))
		if err != nil {
			return result.Result{}, fmt.Errorf("point %d: %w", id, err)
		}
		return result.New(uint64(id), score, m), nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan knn %s: %w", col.Name(), err)
	}
	return results, nil
}

// --- SQL builders ---

func tableName(collection string) string {
	return pgx.Identifier{relationName(collection, "")}.Sanitize()
}

// relationName derives a per-collection identifier. Names that would exceed the
// identifier limit are shortened and suffixed with a digest of the full name,
// so distinct collections never collide after truncation.
func relationName(collection, suffix string) string {
	name := pointsTable + collection + suffix
	if len(name) <= maxIdentifier {
		return name
	}
	sum := sha256.Sum256([]byte(collection))
	digest := hex.EncodeToString(sum[:6])
	keep := maxIdentifier - len(pointsTable) - len(suffix) - len(digest) - 1
	return pointsTable + collection[:keep] + "_" + digest + suffix
}

func createTableSQL(col domcol.Collection, hnsw HNSWConfig) []string {
	table := tableName(col.Name())
	index := pgx.Identifier{relationName(col.Name(), "_hnsw")}.Sanitize()
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
			id BIGINT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'
		)`, table, col.Dimensions()),
		fmt.Sprintf(`CREATE INDEX %s ON %s USING hnsw (embedding %s) WITH (m = %d, ef_construction = %d)`,
			index, table, opClass(col.Metric()), hnsw.M, hnsw.EFConstruct),
	}
}

func upsertSQL(collection string) string {
	return `INSERT INTO ` + tableName(collection) + ` (id, embedding, payload)
		VALUES ($1, $2::vector, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload`
}

func getPointSQL(collection string) string {
	return `SELECT embedding::text, payload::text FROM ` + tableName(collection) + ` WHERE id = $1`
}

func searchSQL(col domcol.Collection) string {
	op := distanceOp(col.Metric())
	return fmt.Sprintf(`SELECT id, payload, %s AS score
		FROM %s
		ORDER BY embedding %s $1::vector, id
		LIMIT $2`, scoreExpr(col.Metric()), tableName(col.Name()), op)
}

func opClass(m domcol.Metric) string {
	switch m {
	case domcol.Dot:
		return "vector_ip_ops"
	case domcol.Euclidean:
		return "vector_l2_ops"
	default:
		return "vector_cosine_ops"
	}
}

func distanceOp(m domcol.Metric) string {
	switch m {
	case domcol.Dot:
		return "<#>"
	case domcol.Euclidean:
		return "<->"
	default:
		return "<=>"
	}
}

// scoreExpr converts the operator's distance into a higher-is-better score.
// <#> yields the negated inner product.
func scoreExpr(m domcol.Metric) string {
	switch m {
	case domcol.Dot:
		return "(embedding <#> $1::vector) * -1"
	case domcol.Euclidean:
		return "1 / (1 + (embedding <-> $1::vector))"
	default:
		return "1 - (embedding <=> $1::vector)"
	}
}

func pgID(id uint64) (int64, error) {
	if id > 1<<63-1 {
		return 0, fmt.Errorf("point id %d exceeds BIGINT range: %w", id, domain.ErrInvalidArgument)
	}
	return int64(id), nil
}

// FormatVector renders a vector in pgvector's text format: "[0.1,0.2,0.3]".
func FormatVector(v []float32) string {
	var sb strings.Builder
	sb.Grow(len(v) * 10)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseVector parses pgvector's text format back into a vector.
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
