package source

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dlsync/internal/logging"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func TestReadManualDependencies(t *testing.T) {
	tree := sampleTree()
	tree[dlsync.LineageFileName] = &fstest.MapFile{Data: []byte(
		"# downstream reports\n" +
			"\n" +
			"${DB}.MAIN.ORDERS_V -> ${DB}.MAIN.ADD_ONE\n" +
			"${db}.main.add_one->${DB}.MAIN.ORDERS\n")}

	src := NewFS(tree, logging.NewNullLogger())
	scripts, err := src.ListScripts(context.Background())
	require.NoError(t, err)

	deps, err := src.ReadManualDependencies(context.Background(), scripts)
	require.NoError(t, err)
	require.Len(t, deps, 2)

	assert.Equal(t, "VIEWS/${DB}.MAIN.ORDERS_V", deps[0].Dependent.ID())
	assert.Equal(t, "FUNCTIONS/${DB}.MAIN.ADD_ONE", deps[0].DependsOn.ID())
	assert.Equal(t, "FUNCTIONS/${DB}.MAIN.ADD_ONE", deps[1].Dependent.ID())
	assert.Equal(t, "TABLES/${DB}.MAIN.ORDERS", deps[1].DependsOn.ObjectID())
}

func TestReadManualDependencies_MissingFile(t *testing.T) {
	deps, err := NewFS(sampleTree(), logging.NewNullLogger()).ReadManualDependencies(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestReadManualDependencies_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"missing arrow", "${DB}.MAIN.ORDERS_V ${DB}.MAIN.ORDERS\n", "invalid lineage entry"},
		{"unknown object", "# header\n${DB}.MAIN.ORDERS_V -> ${DB}.MAIN.NOPE\n", "unknown object ${DB}.MAIN.NOPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := sampleTree()
			tree[dlsync.LineageFileName] = &fstest.MapFile{Data: []byte(tt.content)}
			src := NewFS(tree, logging.NewNullLogger())
			scripts, err := src.ListScripts(context.Background())
			require.NoError(t, err)

			_, err = src.ReadManualDependencies(context.Background(), scripts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, dlsync.ErrParse))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
