package repository

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
)

// SetupTestDB creates an in-memory SQLite database with the schema applied
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := GetDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := RunMigrations(db, zerolog.Nop()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}
