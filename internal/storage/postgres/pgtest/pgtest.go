// Package pgtest runs repository tests against a disposable Postgres container.
package pgtest

import (
	"context"
	"flag"
	"log"
	"testing"

	"github.com/christmas-fire/nexus-collab/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mama165/sdk-go/logs"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Main starts a container, applies the schema, points *pool at it and runs the tests.
// With -short or without a Docker daemon *pool stays nil and tests are expected to skip.
func Main(m *testing.M, pool **pgxpool.Pool) int {
	flag.Parse()
	if testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("nexus"),
		tcpostgres.WithUsername("nexus"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start postgres container, skipping: %v", err)
		return m.Run()
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	}()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("failed to get connection string: %v", err)
		return 1
	}

	p, err := postgres.NewStorage(ctx, connStr, logs.GetLoggerFromString("ERROR"))
	if err != nil {
		log.Printf("failed to connect: %v", err)
		return 1
	}
	defer p.Close()

	if err := postgres.Migrate(ctx, p); err != nil {
		log.Printf("failed to migrate: %v", err)
		return 1
	}

	*pool = p
	return m.Run()
}

// Reset skips the test when no database is available and empties every table otherwise.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if pool == nil {
		t.Skip("postgres unavailable")
	}
	_, err := pool.Exec(context.Background(), "TRUNCATE messages, tasks, projects, users RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
