// Package dbtest connects repository tests to a real PostgreSQL instance.
// Tests are skipped unless DB_HOST_TEST is set.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config returns the connection settings for the test database.
func Config() (config.PostgresConfig, bool) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		return config.PostgresConfig{}, false
	}
	return config.PostgresConfig{
		Host:            host,
		Port:            envOr("DB_PORT_TEST", "5432"),
		User:            envOr("DB_USER_TEST", "postgres"),
		Password:        envOr("DB_PASSWORD_TEST", "123456"),
		DBName:          envOr("DB_NAME_TEST", "storefront_test"),
		SSLMode:         envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}, true
}

// Open migrates the test database and returns a pool closed at test cleanup.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	cfg, ok := Config()
	if !ok {
		t.Skip("DB_HOST_TEST not set, skipping PostgreSQL integration test")
	}

	require.NoError(t, db.Migrate(cfg), "failed to migrate test database")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := db.New(ctx, cfg)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(pg.Close)

	Truncate(t, pg.Pool)
	return pg.Pool
}

// Truncate empties every storefront table.
func Truncate(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE order_lines, orders, products, categories, customers, users RESTART IDENTITY CASCADE")
	require.NoError(tb, err, "failed to truncate tables")
}
