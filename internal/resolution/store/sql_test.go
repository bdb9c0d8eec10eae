package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"devicelink/internal/resolution"
	"devicelink/pkg/platform/sentinel"
	"devicelink/pkg/requestcontext"
)

type SQLiteCacheSuite struct {
	suite.Suite
	cache *SQLCache
	base  time.Time
}

func TestSQLiteCacheSuite(t *testing.T) {
	suite.Run(t, new(SQLiteCacheSuite))
}

func (s *SQLiteCacheSuite) SetupTest() {
	path := filepath.Join(s.T().TempDir(), "cache.db")
	cache, err := OpenSQLite(context.Background(), path, time.Hour)
	s.Require().NoError(err)
	s.cache = cache
	s.base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *SQLiteCacheSuite) TearDownTest() {
	s.Require().NoError(s.cache.Close())
}

func (s *SQLiteCacheSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.base.Add(offset))
}

func (s *SQLiteCacheSuite) TestRoundTrip() {
	s.Require().NoError(s.cache.Put(s.at(0), testKey, testOutcome))

	got, err := s.cache.Get(s.at(time.Minute), testKey)
	s.Require().NoError(err)
	s.Equal(testOutcome, got)
}

func (s *SQLiteCacheSuite) TestMiss() {
	_, err := s.cache.Get(s.at(0), testKey)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SQLiteCacheSuite) TestUpsertReplaces() {
	s.Require().NoError(s.cache.Put(s.at(0), testKey, resolution.Outcome{Kind: resolution.KindNotFound}))
	s.Require().NoError(s.cache.Put(s.at(time.Second), testKey, testOutcome))

	got, err := s.cache.Get(s.at(2*time.Second), testKey)
	s.Require().NoError(err)
	s.Equal(resolution.KindFound, got.Kind)
}

func (s *SQLiteCacheSuite) TestExpiryAndPurge() {
	s.Require().NoError(s.cache.Put(s.at(0), testKey, testOutcome))

	_, err := s.cache.Get(s.at(time.Hour), testKey)
	s.ErrorIs(err, sentinel.ErrNotFound)

	removed, err := s.cache.Purge(s.at(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), removed)
}

func (s *SQLiteCacheSuite) TestMigrateIsIdempotent() {
	s.NoError(s.cache.Migrate(context.Background()))
}

func TestRebind(t *testing.T) {
	pg := NewSQLCache(nil, DialectPostgres, time.Hour)
	lite := NewSQLCache(nil, DialectSQLite, time.Hour)

	query := "SELECT a FROM t WHERE x = ? AND y > ?"
	if got := pg.rebind(query); got != "SELECT a FROM t WHERE x = $1 AND y > $2" {
		t.Fatalf("postgres rebind: %q", got)
	}
	if got := lite.rebind(query); got != query {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}
