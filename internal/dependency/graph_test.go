package dependency

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/dlsync/internal/logging"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func view(name, content string) *dlsync.Script {
	return dlsync.NewStateScript("DB", "SCH", dlsync.ObjectViews, name, content)
}

func table(name string, version int64, content string) *dlsync.Script {
	return dlsync.NewMigrationScript("DB", "SCH", dlsync.ObjectTables, name, dlsync.Migration{Version: version, Content: content})
}

func ids(scripts []*dlsync.Script) []string {
	out := make([]string, len(scripts))
	for i, s := range scripts {
		out[i] = s.ID()
	}
	return out
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestTopologicalSort_RespectsReferences(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	g.AddNodes([]*dlsync.Script{
		view("A", "create view db.sch.a as select * from sch.b join c"),
		view("B", "create view db.sch.b as select * from db.sch.c"),
		view("C", "create view db.sch.c as select 1"),
	})

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"VIEWS/DB.SCH.C", "VIEWS/DB.SCH.B", "VIEWS/DB.SCH.A"}, ids(order))
}

func TestTopologicalSort_DeterministicRegardlessOfInsertionOrder(t *testing.T) {
	scripts := []*dlsync.Script{
		view("Z", "create view z as select * from m"),
		view("M", "create view m as select 1"),
		view("A", "create view a as select 1"),
		view("K", "create view k as select * from a"),
	}
	reversed := []*dlsync.Script{scripts[3], scripts[2], scripts[1], scripts[0]}

	first := NewGraph(logging.NewNullLogger())
	first.AddNodes(scripts)
	second := NewGraph(logging.NewNullLogger())
	second.AddNodes(reversed)

	a, err := first.TopologicalSort()
	require.NoError(t, err)
	b, err := second.TopologicalSort()
	require.NoError(t, err)

	assert.Equal(t, ids(a), ids(b))
	assert.Equal(t, []string{"VIEWS/DB.SCH.A", "VIEWS/DB.SCH.K", "VIEWS/DB.SCH.M", "VIEWS/DB.SCH.Z"}, ids(a))

	again, err := first.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, ids(a), ids(again))
}

func TestTopologicalSort_ValidLinearization(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	g.AddNodes([]*dlsync.Script{
		table("ORDERS", 0, "create table db.sch.orders (id int)"),
		table("ORDERS", 1, "alter table db.sch.orders add customer_id int"),
		table("CUSTOMERS", 0, "create table db.sch.customers (id int)"),
		view("ORDER_SUMMARY", "create view order_summary as select * from orders o join customers c on o.customer_id = c.id"),
		view("REPORT", "create view report as select * from sch.order_summary"),
	})

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	got := ids(order)

	for _, e := range g.Edges() {
		assert.Less(t, indexOf(got, e.DependsOn.ID()), indexOf(got, e.Dependent.ID()), "%s must precede %s", e.DependsOn.ID(), e.Dependent.ID())
	}
	assert.Less(t, indexOf(got, "TABLES/DB.SCH.ORDERS:0"), indexOf(got, "TABLES/DB.SCH.ORDERS:1"))
	assert.Less(t, indexOf(got, "TABLES/DB.SCH.ORDERS:1"), indexOf(got, "VIEWS/DB.SCH.ORDER_SUMMARY"))
}

func TestTopologicalSort_LaterVersionReferencingDependent(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	g.AddNodes([]*dlsync.Script{
		table("A", 0, "create table db.sch.a (id int primary key)"),
		table("B", 0, "create table db.sch.b (id int primary key, a_id int references db.sch.a(id))"),
		table("A", 1, "alter table db.sch.a add b_id int references db.sch.b(id)"),
	})

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"TABLES/DB.SCH.A:0", "TABLES/DB.SCH.B:0", "TABLES/DB.SCH.A:1"}, ids(order))

	var fromB []string
	for _, e := range g.Edges() {
		if e.Dependent.ID() == "TABLES/DB.SCH.B:0" {
			fromB = append(fromB, e.DependsOn.ID())
		}
	}
	assert.Equal(t, []string{"TABLES/DB.SCH.A:0"}, fromB)
}

func TestTopologicalSort_FirstVersionsReferencingEachOtherCycle(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	g.AddNodes([]*dlsync.Script{
		table("A", 0, "create table db.sch.a (b_id int references db.sch.b(id))"),
		table("B", 0, "create table db.sch.b (a_id int references db.sch.a(id))"),
	})

	_, err := g.TopologicalSort()
	assert.ErrorIs(t, err, dlsync.ErrDependencyCycle)
}

func TestTopologicalSort_QualifierResolution(t *testing.T) {
	other := dlsync.NewStateScript("DB", "OTHER", dlsync.ObjectViews, "T", "create view db.other.t as select 1")
	local := view("T", "create view db.sch.t as select 1")
	foreign := dlsync.NewStateScript("DB2", "SCH", dlsync.ObjectViews, "T", "create view db2.sch.t as select 1")

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"bare name resolves to same schema", "select * from t", []string{local.ID()}},
		{"schema qualified", "select * from other.t", []string{other.ID()}},
		{"fully qualified other database", "select * from db2.sch.t", []string{foreign.ID()}},
		{"unknown schema", "select * from nowhere.t", nil},
		{"reference in comment ignored", "select 1 -- from t", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(logging.NewNullLogger())
			user := view("USER_VIEW", tt.content)
			g.AddNodes([]*dlsync.Script{other, local, foreign, user})

			var got []string
			for _, e := range g.Edges() {
				if e.Dependent == user {
					got = append(got, e.DependsOn.ID())
				}
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTopologicalSort_CycleError(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	g.AddNodes([]*dlsync.Script{
		view("A", "create view a as select * from b"),
		view("B", "create view b as select * from c"),
		view("C", "create view c as select * from a"),
		view("D", "create view d as select 1"),
		view("E", "create view e as select * from a"),
	})

	order, err := g.TopologicalSort()
	assert.Nil(t, order)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dlsync.ErrDependencyCycle))

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"VIEWS/DB.SCH.A", "VIEWS/DB.SCH.B", "VIEWS/DB.SCH.C", "VIEWS/DB.SCH.A"}, cycleErr.Cycle)
	assert.Contains(t, err.Error(), "VIEWS/DB.SCH.A → VIEWS/DB.SCH.B")
}

func TestAddNodes_IdempotentPerID(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	first := view("A", "create view a as select 1")
	g.AddNodes([]*dlsync.Script{first})
	g.AddNodes([]*dlsync.Script{view("A", "create view a as select 2")})

	assert.Equal(t, 1, g.Len())
	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Same(t, first, order[0])
}

func TestAddObjectDependency_OverridesInferred(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	a := view("A", "create view a as select * from b")
	b := view("B", "create view b as select 1")
	c := view("C", "create view c as select 1")
	g.AddNodes([]*dlsync.Script{a, b, c})
	g.AddObjectDependency("db.sch.a", "DB.SCH.B", EdgeOverride)
	g.AddObjectDependency("DB.SCH.C", "DB.SCH.A", EdgeManual)
	g.AddObjectDependency("DB.SCH.C", "DB.SCH.MISSING", EdgeManual)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, a, edges[0].Dependent)
	assert.Equal(t, b, edges[0].DependsOn)
	assert.Equal(t, EdgeOverride, edges[0].Source)
	assert.Equal(t, c, edges[1].Dependent)
	assert.Equal(t, EdgeManual, edges[1].Source)

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"VIEWS/DB.SCH.B", "VIEWS/DB.SCH.A", "VIEWS/DB.SCH.C"}, ids(order))
}

func TestDependencies_OnePerObjectPair(t *testing.T) {
	g := NewGraph(logging.NewNullLogger())
	g.AddNodes([]*dlsync.Script{
		table("T", 0, "create table db.sch.t (id int)"),
		table("T", 1, "alter table db.sch.t add c int"),
		view("V", "create view v as select * from t"),
	})
	g.AddDependency(dlsync.ScriptDependency{
		Dependent: view("V", ""),
		DependsOn: table("T", 0, ""),
	}, EdgeManual)

	deps := g.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "VIEWS/DB.SCH.V", deps[0].Dependent.ObjectID())
	assert.Equal(t, "TABLES/DB.SCH.T", deps[0].DependsOn.ObjectID())
}

func TestNewGraph_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() { NewGraph(nil) })
}
