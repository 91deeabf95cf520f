//go:build integration
// +build integration

package test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/coregx/bookstore"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseSetup encapsulates database connection and cleanup.
type DatabaseSetup struct {
	SQL       *sql.DB
	Container testcontainers.Container
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.SQL != nil {
		ds.SQL.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// Open builds a bookstore over the test database with cfg.
func (ds *DatabaseSetup) Open(t *testing.T, cfg *bookstore.Config, opts ...bookstore.Option) *bookstore.DB {
	db, err := bookstore.WrapDB(ds.SQL, cfg, opts...)
	require.NoError(t, err)
	return db
}

// SetupPostgreSQLTestDB creates a PostgreSQL test database with the bookstore schema.
// Uses testcontainers if available, falls back to env DSN.
func SetupPostgreSQLTestDB(t *testing.T) *DatabaseSetup {
	ctx := context.Background()

	// Check for manual DSN first (allows testing without Docker)
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		sqlDB, err := sql.Open("postgres", dsn)
		require.NoError(t, err)
		ds := &DatabaseSetup{SQL: sqlDB}
		CreateSchema(t, sqlDB)
		return ds
	}

	pgContainer, err := postgres.Run(
		ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("bookstore"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for PostgreSQL integration tests: " + err.Error())
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	ds := &DatabaseSetup{SQL: sqlDB, Container: pgContainer}
	CreateSchema(t, sqlDB)
	return ds
}

// CreateSchema drops and recreates the entity tables.
func CreateSchema(t *testing.T, db *sql.DB) {
	ctx := context.Background()
	statements := []string{
		`DROP TABLE IF EXISTS Paragraph, Chapter, Story, Configuration, Identity`,
		`CREATE TABLE Story (
			Id TEXT PRIMARY KEY,
			Name TEXT,
			Description TEXT,
			ImageUrl TEXT,
			SortNumber INTEGER,
			PublishDate TIMESTAMP,
			ApplicationIncluded TEXT DEFAULT '*',
			ApplicationExcluded TEXT,
			CreatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UpdatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE Chapter (
			Id TEXT PRIMARY KEY,
			StoryId TEXT REFERENCES Story(Id) ON DELETE CASCADE,
			Name TEXT,
			Description TEXT,
			SortNumber INTEGER,
			PublishDate TIMESTAMP,
			ApplicationIncluded TEXT DEFAULT '*',
			ApplicationExcluded TEXT,
			CreatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UpdatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE Paragraph (
			Id TEXT PRIMARY KEY,
			ChapterId TEXT REFERENCES Chapter(Id) ON DELETE CASCADE,
			Name TEXT,
			Content TEXT,
			SortNumber INTEGER,
			PublishDate TIMESTAMP,
			ApplicationIncluded TEXT DEFAULT '*',
			ApplicationExcluded TEXT,
			CreatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UpdatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE Configuration (
			Id TEXT PRIMARY KEY,
			Name TEXT,
			Value TEXT,
			PublishDate TIMESTAMP,
			ApplicationIncluded TEXT DEFAULT '*',
			ApplicationExcluded TEXT
		)`,
		`CREATE TABLE Identity (
			Id TEXT PRIMARY KEY,
			Email TEXT,
			Name TEXT,
			Provider TEXT,
			ProviderId TEXT,
			CreatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

// MemoryConfig returns a configuration with the in-process cache for tenant app1.
func MemoryConfig() *bookstore.Config {
	cfg := bookstore.DefaultConfig()
	cfg.Cache.Backend = "memory"
	cfg.Cache.ApplicationKey = "app1"
	return &cfg
}
