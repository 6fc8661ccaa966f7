// Package itest starts throwaway backing services with testcontainers. Tests
// using it run only when PHONEAUTH_INTEGRATION=1 and a Docker daemon is
// reachable.
package itest

import (
	"context"
	"net"
	"os"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phoneauth/internal/pkg/migrate"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	EnvIntegration = "PHONEAUTH_INTEGRATION"

	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"
)

func skipUnlessEnabled(t *testing.T, what string) {
	t.Helper()

	if os.Getenv(EnvIntegration) != "1" || testing.Short() {
		t.Skipf("set %s=1 to run %s integration tests", EnvIntegration, what)
	}
}

// Postgres returns a pool on a fresh, migrated database.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	skipUnlessEnabled(t, "postgres")

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("phoneauth"),
		tcpostgres.WithUsername("phoneauth"),
		tcpostgres.WithPassword("phoneauth"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	if err := migrate.Run(dsn, migrate.DirectionUp); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// Redis returns a client on a fresh Redis server.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	skipUnlessEnabled(t, "redis")

	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, redisImage)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, nat.Port("6379/tcp"))
	if err != nil {
		t.Fatalf("redis mapped port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	return client
}
