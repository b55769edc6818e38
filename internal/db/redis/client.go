package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// readyPollInterval is the gap between pings in WaitForReady.
const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters for a Redis-protocol store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Standalone skips cluster topology discovery.
	Standalone bool
	// ClientName is sent with CLIENT SETNAME. Default: "vecrag".
	ClientName string
}

// ClientOption translates the config into rueidis options. Shared by the
// Redis and Valkey drivers.
func (cfg Config) ClientOption() (rueidis.ClientOption, error) {
	if len(cfg.Addrs) == 0 {
		return rueidis.ClientOption{}, errors.New("addrs is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = "vecrag"
	}
	return rueidis.ClientOption{
		InitAddress:       cfg.Addrs,
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ClientName:        name,
		ForceSingleClient: cfg.Standalone,
		DisableCache:      true,
		// FT.SEARCH replies are parsed in their RESP2 array shape.
		AlwaysRESP2: true,
	}, nil
}

// Store implements db.Store via rueidis for Redis 8+ and Redis Stack.
type Store struct {
	client rueidis.Client
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	opt, err := cfg.ClientOption()
	if err != nil {
		return nil, err
	}
	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return FromClient(client), nil
}

// FromClient wraps an already configured rueidis client.
func FromClient(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the server answers, then checks that the
// search module is loaded. A server without FT.* fails at once instead of
// timing out.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("timeout waiting for database: %w", errors.Join(ctx.Err(), lastErr))
			}
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}

		if lastErr = s.Ping(ctx); lastErr != nil {
			continue
		}
		loaded, err := s.SearchModuleLoaded(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			return db.ErrSearchModuleMissing
		}
		return nil
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server error reply containing substr, case-insensitively.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
