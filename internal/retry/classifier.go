package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// transientClasses are SQLSTATE classes where the server may accept the same
// request later: connection exceptions, insufficient resources and operator
// intervention.
var transientClasses = []string{"08", "53", "57"}

// transientCodes are individual SQLSTATEs outside those classes.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"database is locked",
}

// Classifier recognizes transient PostgreSQL, sqlite and network errors.
type Classifier struct{}

var _ dlsync.ErrorClassifier = Classifier{}

// NewClassifier creates a Classifier.
func NewClassifier() Classifier {
	return Classifier{}
}

// IsTransient reports whether retrying err may succeed.
func (Classifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientCode(pgErr.Code)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.Temporary() || dnsErr.Timeout()) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ENETUNREACH, syscall.EHOSTUNREACH} {
			if errors.Is(opErr.Err, errno) {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isTransientCode(code string) bool {
	if transientCodes[code] {
		return true
	}
	for _, class := range transientClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	return false
}
