package retry

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_IsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"connection failure 08006", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections 53300", &pgconn.PgError{Code: "53300"}, true},
		{"admin shutdown 57P01", &pgconn.PgError{Code: "57P01"}, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"syntax error", &pgconn.PgError{Code: "42601", Message: "connection refused in a string"}, false},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"wrapped pg error", fmt.Errorf("apply: %w", &pgconn.PgError{Code: "08001"}), true},
		{"refused socket", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"reset socket", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"permission denied socket", &net.OpError{Op: "dial", Err: syscall.EACCES}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"message pattern", errors.New("read tcp: i/o timeout"), true},
		{"unrelated", errors.New("permission denied for schema dlsync"), false},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, c.IsTransient(tt.err))
		})
	}
}
