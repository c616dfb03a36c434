package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dlsync/internal/db"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestResolveConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		env      map[string]string
		host     string
		port     int
		database string
		user     string
	}{
		{
			name:     "connection flag",
			settings: Settings{Connection: "postgresql://deployer@db.internal:5433/analytics"},
			host:     "db.internal", port: 5433, database: "analytics", user: "deployer",
		},
		{
			name:     "database overrides connection string",
			settings: Settings{Connection: "postgresql://deployer@db.internal/postgres", Database: "analytics"},
			host:     "db.internal", port: 5432, database: "analytics", user: "deployer",
		},
		{
			name:     "DATABASE_URL",
			env:      map[string]string{"DATABASE_URL": "postgres://ci@pg:6432/warehouse"},
			host:     "pg", port: 6432, database: "warehouse", user: "ci",
		},
		{
			name:     "flag beats DATABASE_URL",
			settings: Settings{Connection: "host=primary dbname=analytics user=deployer"},
			env:      map[string]string{"DATABASE_URL": "postgres://ci@pg:6432/warehouse"},
			host:     "primary", port: 5432, database: "analytics", user: "deployer",
		},
		{
			name:     "granular flags",
			settings: Settings{Host: "db1", Port: 5444, Database: "analytics", User: "deployer"},
			host:     "db1", port: 5444, database: "analytics", user: "deployer",
		},
		{
			name:     "libpq environment",
			env:      map[string]string{"PGHOST": "envhost", "PGPORT": "6543", "PGDATABASE": "envdb", "PGUSER": "envuser"},
			host:     "envhost", port: 6543, database: "envdb", user: "envuser",
		},
		{
			name:     "flags beat libpq environment",
			settings: Settings{Host: "flaghost", Database: "flagdb"},
			env:      map[string]string{"PGHOST": "envhost", "PGDATABASE": "envdb", "PGUSER": "envuser"},
			host:     "flaghost", port: 5432, database: "flagdb", user: "envuser",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.env
			if env == nil {
				env = map[string]string{}
			}
			env["PGPASSFILE"] = filepath.Join(t.TempDir(), "none")

			connStr, err := resolveConnectionString(&tt.settings, envMap(env))
			require.NoError(t, err)

			cfg, err := db.ParseConnectionString(connStr)
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Host)
			assert.Equal(t, tt.port, cfg.Port)
			assert.Equal(t, tt.database, cfg.Database)
			assert.Equal(t, tt.user, cfg.Username)
			assert.Equal(t, "dlsync", cfg.AppName)
		})
	}
}

func TestResolveConnectionString_PasswordSources(t *testing.T) {
	dir := t.TempDir()
	pgpass := filepath.Join(dir, "pgpass")
	require.NoError(t, os.WriteFile(pgpass, []byte("db1:5432:analytics:deployer:from-pgpass\n"), 0600))

	s := &Settings{Host: "db1", Database: "analytics", User: "deployer"}

	connStr, err := resolveConnectionString(s, envMap(map[string]string{"PGPASSFILE": pgpass}))
	require.NoError(t, err)
	cfg, err := db.ParseConnectionString(connStr)
	require.NoError(t, err)
	assert.Equal(t, "from-pgpass", cfg.Password)

	connStr, err = resolveConnectionString(s, envMap(map[string]string{"PGPASSFILE": pgpass, "PGPASSWORD": "from-env"}))
	require.NoError(t, err)
	cfg, err = db.ParseConnectionString(connStr)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Password)
}

func TestResolveConnectionString_Errors(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		env      map[string]string
	}{
		{"nothing", Settings{}, nil},
		{"bad PGPORT", Settings{Database: "db"}, map[string]string{"PGPORT": "abc"}},
		{"bad connection string", Settings{Connection: "not a connection string"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveConnectionString(&tt.settings, envMap(tt.env))
			require.Error(t, err)
			assert.True(t, errors.Is(err, dlsync.ErrInvalidConfig), "got %v", err)
		})
	}
}
