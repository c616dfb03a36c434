package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/dlsync/internal/history"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func TestRenderer_PlanPlain(t *testing.T) {
	var out bytes.Buffer
	table := dlsync.NewMigrationScript("DB", "MAIN", dlsync.ObjectTables, "ORDERS", dlsync.Migration{Version: 3, Author: "ana"})
	view := dlsync.NewStateScript("DB", "MAIN", dlsync.ObjectViews, "ORDERS_V", "")

	NewRenderer(&out, false).Plan("ANALYTICS", []*dlsync.Script{table, view})

	assert.Equal(t, "Deployment plan for ANALYTICS (2 scripts)\n"+
		"  1. TABLES/DB.MAIN.ORDERS:3  migration v3 by ana\n"+
		"  2. VIEWS/DB.MAIN.ORDERS_V  state\n", out.String())
}

func TestRenderer_EmptyPlan(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out, false).Plan("ANALYTICS", nil)

	assert.Contains(t, out.String(), "Nothing to deploy")
}

func TestRenderer_PlanColorKeepsIDs(t *testing.T) {
	var out bytes.Buffer
	view := dlsync.NewStateScript("DB", "MAIN", dlsync.ObjectViews, "ORDERS_V", "")

	NewRenderer(&out, true).Plan("ANALYTICS", []*dlsync.Script{view})

	assert.Contains(t, out.String(), "VIEWS/DB.MAIN.ORDERS_V")
}

func TestRenderer_Lineage(t *testing.T) {
	var out bytes.Buffer

	NewRenderer(&out, false).Lineage([]history.LineageEdge{
		{DependentID: "DB.MAIN.V", DependentType: dlsync.ObjectViews, DependsOnID: "DB.MAIN.T", DependsOnType: dlsync.ObjectTables},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"Lineage (1 edges)", "  DB.MAIN.V → DB.MAIN.T"}, lines)
}

func TestRenderer_Syncs(t *testing.T) {
	var out bytes.Buffer
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	NewRenderer(&out, false).Syncs([]history.SyncRecord{
		{ChangeType: dlsync.ChangeDeploy, Status: dlsync.StatusSuccess, Message: "Successfully completed DEPLOY", ChangeCount: 4, StartedAt: started},
		{ChangeType: dlsync.ChangeVerify, Status: dlsync.StatusError, Message: "1 scripts failed to verify.", StartedAt: started},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Recent runs (2)", lines[0])
	assert.Contains(t, lines[1], "2026-03-01T12:00:00Z")
	assert.Contains(t, lines[1], "✓ SUCCESS  4 changes")
	assert.Contains(t, lines[2], "✗ ERROR")
	assert.Contains(t, lines[2], "1 scripts failed to verify.")
}
