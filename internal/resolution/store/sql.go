package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"devicelink/internal/resolution"
	"devicelink/pkg/platform/sentinel"
	"devicelink/pkg/requestcontext"
)

// Dialect selects placeholder syntax for the shared SQL cache.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS resolution_cache (
	cache_key  TEXT PRIMARY KEY,
	outcome    TEXT NOT NULL,
	stored_at  BIGINT NOT NULL
)`

const (
	selectOutcome = `SELECT outcome FROM resolution_cache WHERE cache_key = ? AND stored_at > ?`
	upsertOutcome = `INSERT INTO resolution_cache (cache_key, outcome, stored_at) VALUES (?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET outcome = excluded.outcome, stored_at = excluded.stored_at`
	deleteExpired = `DELETE FROM resolution_cache WHERE stored_at <= ?`
)

// SQLCache persists outcomes in a single table. The same statements serve
// SQLite (local CLI runs) and PostgreSQL (shared deployments).
type SQLCache struct {
	db       *sql.DB
	dialect  Dialect
	cacheTTL time.Duration
}

// OpenSQLite opens (creating if needed) a SQLite cache file and its table.
func OpenSQLite(ctx context.Context, path string, cacheTTL time.Duration) (*SQLCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newMigrated(ctx, db, DialectSQLite, cacheTTL)
}

// OpenPostgres connects to PostgreSQL and ensures the cache table exists.
func OpenPostgres(ctx context.Context, dsn string, cacheTTL time.Duration) (*SQLCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres cache: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres cache: %w: %w", sentinel.ErrUnavailable, err)
	}
	return newMigrated(ctx, db, DialectPostgres, cacheTTL)
}

func newMigrated(ctx context.Context, db *sql.DB, dialect Dialect, cacheTTL time.Duration) (*SQLCache, error) {
	c := NewSQLCache(db, dialect, cacheTTL)
	if err := c.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLCache wraps an existing connection. Call Migrate before first use.
func NewSQLCache(db *sql.DB, dialect Dialect, cacheTTL time.Duration) *SQLCache {
	return &SQLCache{db: db, dialect: dialect, cacheTTL: cacheTTL}
}

func (c *SQLCache) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create resolution_cache table: %w", err)
	}
	return nil
}

func (c *SQLCache) Get(ctx context.Context, key resolution.Key) (resolution.Outcome, error) {
	cutoff := requestcontext.Now(ctx).Add(-c.cacheTTL).UnixNano()
	var raw string
	err := c.db.QueryRowContext(ctx, c.rebind(selectOutcome), key.String(), cutoff).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resolution.Outcome{}, sentinel.ErrNotFound
		}
		return resolution.Outcome{}, fmt.Errorf("find cached outcome: %w", err)
	}
	var out resolution.Outcome
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return resolution.Outcome{}, fmt.Errorf("decode cached outcome: %w", err)
	}
	return out, nil
}

func (c *SQLCache) Put(ctx context.Context, key resolution.Key, outcome resolution.Outcome) error {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	storedAt := requestcontext.Now(ctx).UnixNano()
	if _, err := c.db.ExecContext(ctx, c.rebind(upsertOutcome), key.String(), string(raw), storedAt); err != nil {
		return fmt.Errorf("save cached outcome: %w", err)
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (c *SQLCache) Purge(ctx context.Context) (int64, error) {
	cutoff := requestcontext.Now(ctx).Add(-c.cacheTTL).UnixNano()
	res, err := c.db.ExecContext(ctx, c.rebind(deleteExpired), cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge resolution cache: %w", err)
	}
	return res.RowsAffected()
}

func (c *SQLCache) Close() error {
	return c.db.Close()
}

// rebind rewrites ? placeholders as $1..$n for PostgreSQL.
func (c *SQLCache) rebind(query string) string {
	if c.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
