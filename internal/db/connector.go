package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/dlsync/internal/retry"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Pool settings. Scripts run one at a time, so a small pool is enough.
const (
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// Connector opens pgx pools to the target database, retrying transient failures.
type Connector struct {
	connString string
	config     *dlsync.ConnectionConfig
	logger     dlsync.Logger
	executor   *retry.Executor
}

var _ dlsync.Connector = (*Connector)(nil)

// NewConnector validates connString and creates a Connector.
// Panics if logger is nil.
func NewConnector(connString string, logger dlsync.Logger) (*Connector, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}
	config, err := ParseConnectionString(connString)
	if err != nil {
		return nil, err
	}
	return &Connector{
		connString: connString,
		config:     config,
		logger:     logger,
		executor:   retry.NewDefaultExecutor(logger),
	}, nil
}

// Config returns the parsed connection settings.
func (c *Connector) Config() *dlsync.ConnectionConfig {
	return c.config
}

// Connect opens a pool and pings it.
func (c *Connector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(c.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", dlsync.ErrInvalidConfig)
	}
	c.configurePool(poolConfig)

	var pool *pgxpool.Pool
	err = c.executor.Execute(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, wrapConnectionError(err, c.config)
	}

	c.logger.Verbose("Connected to %s", DescribeTarget(c.config))
	return pool, nil
}

func (c *Connector) configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		c.logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}
}

// wrapConnectionError adds a likely cause to a connection failure. The result
// matches both dlsync.ErrConnectionFailed and the original error.
func wrapConnectionError(err error, config *dlsync.ConnectionConfig) error {
	msg := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	var hint string
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused"):
		hint = fmt.Sprintf("connection refused to %s (is PostgreSQL running? check: pg_isready -h %s -p %d)", addr, config.Host, config.Port)
	case strings.Contains(msg, "no such host"):
		hint = fmt.Sprintf("cannot resolve host %q", config.Host)
	case strings.Contains(msg, "password authentication failed"):
		hint = fmt.Sprintf("password authentication failed for user %q on database %q", config.Username, config.Database)
	case strings.Contains(msg, "does not exist"):
		hint = fmt.Sprintf("database %q does not exist", config.Database)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		hint = fmt.Sprintf("connection to %s timed out", addr)
	case strings.Contains(msg, "ssl") || strings.Contains(msg, "tls"):
		hint = "SSL/TLS negotiation failed (check sslmode)"
	default:
		hint = fmt.Sprintf("cannot connect to %s", DescribeTarget(config))
	}
	return fmt.Errorf("%w: %s: %w", dlsync.ErrConnectionFailed, hint, err)
}
