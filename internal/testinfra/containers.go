package testinfra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ImageEnv overrides the PostgreSQL image used for integration targets.
const ImageEnv = "DLSYNC_TEST_IMAGE"

const (
	defaultImage  = "postgres:17-alpine"
	adminUser     = "postgres"
	adminPassword = "postgres"
	adminDatabase = "postgres"
	readyTimeout  = 60 * time.Second
)

// Target is a throwaway PostgreSQL server that integration tests deploy into.
type Target struct {
	container  *postgres.PostgresContainer
	ConnString string
}

// StartTarget runs a PostgreSQL container and returns once it accepts connections.
// ConnString points at the admin database; tests create their own databases on it.
func StartTarget(ctx context.Context) (*Target, error) {
	image := os.Getenv(ImageEnv)
	if image == "" {
		image = defaultImage
	}

	ctr, err := postgres.Run(ctx,
		image,
		postgres.WithUsername(adminUser),
		postgres.WithPassword(adminPassword),
		postgres.WithDatabase(adminDatabase),
		testcontainers.WithWaitStrategy(
			// initdb restarts the server once before it is usable.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(readyTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start target %s: %w", image, err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("target connection string: %w", err)
	}

	return &Target{container: ctr, ConnString: connStr}, nil
}

// Stop terminates the container.
func (t *Target) Stop(ctx context.Context) error {
	if t == nil || t.container == nil {
		return nil
	}
	return t.container.Terminate(ctx)
}
