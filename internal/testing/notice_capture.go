package testing

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var appliedPattern = regexp.MustCompile(`^\[APPLIED\](\S+)$`)

// AppliedNotice returns a statement that reports name through a NOTICE when it runs.
// Appending it to a script lets integration tests observe execution order.
func AppliedNotice(name string) string {
	return fmt.Sprintf("DO $$ BEGIN RAISE NOTICE '[APPLIED]%s'; END $$;", name)
}

// NoticeCapture collects PostgreSQL NOTICE messages. Safe for concurrent use.
type NoticeCapture struct {
	mu      sync.Mutex
	applied []string
	raw     []string
}

func NewNoticeCapture() *NoticeCapture {
	return &NoticeCapture{}
}

// Handler returns a function suitable for pgx's OnNotice callback.
func (nc *NoticeCapture) Handler() func(*pgconn.PgConn, *pgconn.Notice) {
	return func(_ *pgconn.PgConn, n *pgconn.Notice) {
		if n == nil {
			return
		}

		nc.mu.Lock()
		defer nc.mu.Unlock()

		nc.raw = append(nc.raw, n.Message)
		if m := appliedPattern.FindStringSubmatch(n.Message); m != nil {
			nc.applied = append(nc.applied, m[1])
		}
	}
}

// Applied returns the names reported by AppliedNotice statements, in arrival order.
func (nc *NoticeCapture) Applied() []string {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	return append([]string(nil), nc.applied...)
}

// RawNotices returns every NOTICE message received.
func (nc *NoticeCapture) RawNotices() []string {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	return append([]string(nil), nc.raw...)
}

func (nc *NoticeCapture) Reset() {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	nc.applied = nil
	nc.raw = nil
}
