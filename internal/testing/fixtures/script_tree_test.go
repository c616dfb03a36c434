package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeBuilder_Layout(t *testing.T) {
	fsys := NewTreeBuilder().
		Schema("DB", "MAIN", func(s *SchemaBuilder) {
			s.State("VIEWS", "V1", "create view v1 as select 1;")
			s.Migration("TABLES", "T1", "---version:0\ncreate table t1 (id int);")
		}).
		Config("scriptExclusion: []\n").
		Params("prod", "DB=PROD", "ENV=prod").
		Lineage("DB.MAIN.V1 -> DB.MAIN.T1").
		Build()

	paths, err := Paths(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DB/MAIN/TABLES/T1.SQL",
		"DB/MAIN/VIEWS/V1.SQL",
		"config.yaml",
		"lineage_config.txt",
		"parameter-prod.properties",
	}, paths)

	data, err := fsys.ReadFile("parameter-prod.properties")
	require.NoError(t, err)
	assert.Equal(t, "DB=PROD\nENV=prod\n", string(data))
}

func TestOrdersProject(t *testing.T) {
	paths, err := Paths(OrdersProject())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"${DB}/MAIN/FUNCTIONS/ORDER_TOTAL.SQL",
		"${DB}/MAIN/TABLES/ORDERS.SQL",
		"${DB}/MAIN/VIEWS/ORDERS_V.SQL",
		"parameter-dev.properties",
	}, paths)
}

func TestEmptyProject(t *testing.T) {
	paths, err := Paths(EmptyProject())
	require.NoError(t, err)
	assert.Empty(t, paths)
}
