package helper

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "database"
	testUsername = "user"
	testPassword = "password"
)

// MustStartPostgresContainer starts a throwaway PostgreSQL container.
// It returns the terminate function and the mapped host port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return pgContainer.Terminate, "", fmt.Errorf("failed to get container port: %w", err)
	}

	return pgContainer.Terminate, port.Port(), nil
}

// SetTestDatabaseConfigEnvs points the CINEGRAPH_DB_* variables at a test container
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("CINEGRAPH_DB_HOST", "localhost")
	t.Setenv("CINEGRAPH_DB_PORT", port)
	t.Setenv("CINEGRAPH_DB_DATABASE", testDatabase)
	t.Setenv("CINEGRAPH_DB_USERNAME", testUsername)
	t.Setenv("CINEGRAPH_DB_PASSWORD", testPassword)
	t.Setenv("CINEGRAPH_DB_SCHEMA", "public")
	t.Setenv("CINEGRAPH_DB_SSLMODE", "disable")
}

// NewTestDatabase opens a database with a debug logger for tests
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test_db", config, NewLogger(slog.LevelDebug))
}
