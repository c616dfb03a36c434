package cli

import (
	"fmt"
	"strconv"

	"github.com/vvka-141/dlsync/internal/db"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// resolveConnectionString builds the target connection string.
//
// A connection string from --connection, $DLSYNC_CONNECTION or $DATABASE_URL
// wins; --database still overrides its database. Otherwise the string is built
// from the granular settings with the libpq PG* variables as fallbacks. A
// missing password is looked up in .pgpass.
func resolveConnectionString(s *Settings, getenv func(string) string) (string, error) {
	connStr := s.Connection
	if connStr == "" {
		connStr = getenv("DATABASE_URL")
	}

	var cfg *dlsync.ConnectionConfig
	if connStr != "" {
		parsed, err := db.ParseConnectionString(connStr)
		if err != nil {
			return "", err
		}
		cfg = parsed
		if s.Database != "" {
			cfg.Database = s.Database
		}
	} else {
		granular, err := granularConfig(s, getenv)
		if err != nil {
			return "", err
		}
		cfg = granular
	}

	if cfg.Password == "" {
		if pw, ok := lookupPgpass(pgpassPath(getenv), cfg); ok {
			cfg.Password = pw
		}
	}
	if cfg.AppName == "" {
		cfg.AppName = "dlsync"
	}
	return db.BuildConnectionString(cfg), nil
}

func granularConfig(s *Settings, getenv func(string) string) (*dlsync.ConnectionConfig, error) {
	cfg := &dlsync.ConnectionConfig{
		Host:             firstNonEmpty(s.Host, getenv("PGHOST"), "localhost"),
		Database:         firstNonEmpty(s.Database, getenv("PGDATABASE")),
		Username:         firstNonEmpty(s.User, getenv("PGUSER")),
		Password:         firstNonEmpty(s.Password, getenv("PGPASSWORD")),
		SSLMode:          firstNonEmpty(s.SSLMode, getenv("PGSSLMODE")),
		Port:             s.Port,
		AdditionalParams: make(map[string]string),
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
		if p := getenv("PGPORT"); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil || port <= 0 || port > 65535 {
				return nil, fmt.Errorf("%w: invalid PGPORT %q", dlsync.ErrInvalidConfig, p)
			}
			cfg.Port = port
		}
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf(`%w: no target database

Provide one of:
  --connection postgresql://user@host/analytics
  --database analytics (or $PGDATABASE)
  $DLSYNC_CONNECTION or $DATABASE_URL`, dlsync.ErrInvalidConfig)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
