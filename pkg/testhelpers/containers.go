package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/songplay-warehouse/pkg/database"
)

// PostgresImage stands in for the warehouse in integration tests.
const PostgresImage = "postgres:16-alpine"

const (
	testUser     = "dwh"
	testPassword = "test_password"
)

// TestDB holds a shared PostgreSQL container.
type TestDB struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error

	databaseSeq atomic.Int64
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// The server logs readiness once for the init run and once for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &TestDB{
		Container: container,
		Host:      host,
		Port:      port.Port(),
	}, nil
}

// ConnStr returns a connection string for the named database.
func (db *TestDB) ConnStr(name string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, testPassword, db.Host, db.Port, name)
}

// NewSession creates an empty database for the calling test and opens a
// session on it. The session is closed when the test ends.
func NewSession(t *testing.T) *database.Session {
	t.Helper()

	testDB := GetTestDB(t)
	ctx := context.Background()

	name := fmt.Sprintf("warehouse_%d", databaseSeq.Add(1))

	admin, err := pgx.Connect(ctx, testDB.ConnStr("postgres"))
	if err != nil {
		t.Fatalf("failed to connect to admin database: %v", err)
	}
	defer admin.Close(ctx)

	if _, err := admin.Exec(ctx, "CREATE DATABASE "+name); err != nil {
		t.Fatalf("failed to create database %s: %v", name, err)
	}

	session, err := database.Open(ctx, testDB.ConnStr(name), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close(context.Background())
	})

	return session
}
