package testing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/dlsync/internal/db"
	"github.com/vvka-141/dlsync/internal/testinfra"
)

// ConnEnvVar names a connection string that replaces the test container.
const ConnEnvVar = "DLSYNC_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		target, err := testinfra.StartTarget(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = target.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: DLSYNC_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(ConnEnvVar); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", ConnEnvVar, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// ForceApprover approves every request.
type ForceApprover struct {
	Requests []string
}

func (a *ForceApprover) RequestApproval(_ context.Context, _ string, summary string) (bool, error) {
	a.Requests = append(a.Requests, summary)
	return true, nil
}

// CreateTestDB creates a fresh database and drops it when the test ends.
// It returns a connection string pointing at the new database.
func CreateTestDB(t *testing.T, connString, dbName string) string {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}
	t.Cleanup(func() { CleanupTestDB(t, connString, dbName) })

	return targetConnString(t, connString, dbName)
}

// CleanupTestDB drops the test database. Safe to call more than once.
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`, dbName)
	if err != nil {
		t.Logf("Warning: Failed to terminate connections to %s: %v", dbName, err)
	}

	if _, err := pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}

// GetTestPool opens a pool on dbName that closes when the test completes.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), targetConnString(t, connString, dbName))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func targetConnString(t *testing.T, connString, dbName string) string {
	t.Helper()

	config, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	config.Database = dbName
	return db.BuildConnectionString(config)
}

var dbCounter atomic.Int64

// UniqueDBName returns a database name unlikely to collide between tests and runs.
func UniqueDBName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, os.Getpid(), dbCounter.Add(1))
}
