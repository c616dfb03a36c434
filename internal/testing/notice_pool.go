package testing

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolWithNoticeCapture is a pool whose connections report notices to Capture.
type PoolWithNoticeCapture struct {
	*pgxpool.Pool
	Capture *NoticeCapture
}

// GetTestPoolWithNoticeCapture opens a pool on dbName with notice capture enabled.
// The pool is closed when the test completes.
func GetTestPoolWithNoticeCapture(t *testing.T, connString, dbName string) *PoolWithNoticeCapture {
	t.Helper()

	capture := NewNoticeCapture()
	poolConfig, err := pgxpool.ParseConfig(targetConnString(t, connString, dbName))
	if err != nil {
		t.Fatalf("Failed to parse pool config: %v", err)
	}
	poolConfig.ConnConfig.OnNotice = capture.Handler()

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &PoolWithNoticeCapture{Pool: pool, Capture: capture}
}
