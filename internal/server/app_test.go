package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/diagnexus/internal/server/config"
	"github.com/dmitrijs2005/diagnexus/internal/server/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	return c
}

func TestOpenDB_AppliesPoolLimits(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var gotDriver, gotDSN string
	old := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}
	t.Cleanup(func() { sqlOpen = old })

	c := testConfig()
	c.DBMaxOpenConns = 7

	got, err := openDB(c)
	require.NoError(t, err)
	assert.Same(t, db, got)
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, c.DatabaseDSN, gotDSN)
	assert.Equal(t, 7, got.Stats().MaxOpenConnections)
}

func TestOpenDB_Error(t *testing.T) {
	old := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("unknown driver") }
	t.Cleanup(func() { sqlOpen = old })

	_, err := openDB(testConfig())
	assert.Error(t, err)
}

func TestNewIdempotencyStore_Memory(t *testing.T) {
	c := testConfig()
	c.RedisAddr = ""

	store, rc, err := newIdempotencyStore(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.IsType(t, &idempotency.MemoryStore{}, store)
}

func TestNewIdempotencyStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := testConfig()
	c.RedisAddr = mr.Addr()
	c.IdempotencyTTL = time.Minute

	store, rc, err := newIdempotencyStore(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, rc)
	t.Cleanup(func() { _ = rc.Close() })
	assert.IsType(t, &idempotency.RedisStore{}, store)

	ctx := context.Background()
	require.NoError(t, store.Remember(ctx, "k", 42))
	id, reserved, err := store.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, int64(42), id)
	assert.True(t, mr.Exists("k"))
}

func TestNewIdempotencyStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := testConfig()
	c.RedisAddr = addr

	_, _, err := newIdempotencyStore(context.Background(), c)
	assert.Error(t, err)
}
