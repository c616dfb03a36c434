package testing

import (
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNoticeCapture_RecordsAppliedNames(t *testing.T) {
	nc := NewNoticeCapture()
	handler := nc.Handler()

	for _, msg := range []string{
		"[APPLIED]TABLES/DB.MAIN.ORDERS:0",
		"relation \"orders\" already exists, skipping",
		"[APPLIED]VIEWS/DB.MAIN.ORDERS_V",
		"[APPLIED] spaced",
	} {
		handler(nil, &pgconn.Notice{Message: msg})
	}
	handler(nil, nil)

	assert.Equal(t, []string{"TABLES/DB.MAIN.ORDERS:0", "VIEWS/DB.MAIN.ORDERS_V"}, nc.Applied())
	assert.Len(t, nc.RawNotices(), 4)
}

func TestNoticeCapture_Reset(t *testing.T) {
	nc := NewNoticeCapture()
	nc.Handler()(nil, &pgconn.Notice{Message: "[APPLIED]X"})

	nc.Reset()

	assert.Empty(t, nc.Applied())
	assert.Empty(t, nc.RawNotices())
}

func TestNoticeCapture_ConcurrentHandlers(t *testing.T) {
	nc := NewNoticeCapture()
	handler := nc.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler(nil, &pgconn.Notice{Message: "[APPLIED]X"})
		}()
	}
	wg.Wait()

	assert.Len(t, nc.Applied(), 20)
}

func TestAppliedNotice(t *testing.T) {
	assert.Equal(t, "DO $$ BEGIN RAISE NOTICE '[APPLIED]V1'; END $$;", AppliedNotice("V1"))
}
