// Package integration runs the finance stack against a real PostgreSQL
// started with testcontainers. Tests skip in -short mode.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/migration"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence"
	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	sharedContainer   *tcpostgres.PostgresContainer
	sharedContainerMu sync.Mutex
	sharedConfig      config.DatabaseConfig
)

// TestDB is a connection to a migrated PostgreSQL database
type TestDB struct {
	DB     *gorm.DB
	Config config.DatabaseConfig
	t      *testing.T
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

func startPostgres(ctx context.Context, dbName string) (*tcpostgres.PostgresContainer, config.DatabaseConfig, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("dealer123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, config.DatabaseConfig{}, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, config.DatabaseConfig{}, err
	}
	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, config.DatabaseConfig{}, err
	}
	return container, config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "dealer123",
		DBName:       dbName,
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}, nil
}

// NewTestDB starts a private container, so the test may change the schema
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipIfShort(t)

	ctx := context.Background()
	container, cfg, err := startPostgres(ctx, "dealer_test")
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	tdb := &TestDB{DB: connect(t, cfg), Config: cfg, t: t}
	tdb.Migrate()
	return tdb
}

// NewSharedTestDB returns a connection to a container shared by the package.
// Tables are truncated before the test runs.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipIfShort(t)

	sharedContainerMu.Lock()
	if sharedContainer == nil {
		container, cfg, err := startPostgres(context.Background(), "dealer_shared_test")
		if err != nil {
			sharedContainerMu.Unlock()
			require.NoError(t, err, "Failed to start shared PostgreSQL container")
		}
		sharedContainer, sharedConfig = container, cfg

		first := &TestDB{DB: connect(t, cfg), Config: cfg, t: t}
		first.Migrate()
	}
	cfg := sharedConfig
	sharedContainerMu.Unlock()

	tdb := &TestDB{DB: connect(t, cfg), Config: cfg, t: t}
	tdb.CleanTables()
	return tdb
}

// CleanupSharedContainer terminates the shared container; call it from TestMain
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedConfig = config.DatabaseConfig{}
	}
}

func connect(t *testing.T, cfg config.DatabaseConfig) *gorm.DB {
	t.Helper()

	var log gormlogger.Interface
	if os.Getenv("TEST_DB_DEBUG") != "" {
		log = gormlogger.Default.LogMode(gormlogger.Info)
	}
	db, err := persistence.NewDatabase(&cfg, log)
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// Migrate applies the embedded migrations
func (tdb *TestDB) Migrate() {
	tdb.t.Helper()
	m := tdb.Migrator()
	defer func() { _ = m.Close() }()
	require.NoError(tdb.t, m.Up(), "Failed to run migrations")
}

// Migrator opens a migrator on its own connection; closing it closes that connection
func (tdb *TestDB) Migrator() *migration.Migrator {
	tdb.t.Helper()
	sqlDB, err := sql.Open("postgres", tdb.Config.DSN())
	require.NoError(tdb.t, err, "Failed to open migration connection")
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(tdb.t, err, "Failed to create migrator")
	return m
}

// CleanTables truncates every table but the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %q CASCADE", table)).Error; err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}
