//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"interviewprep/internal/config"
	"interviewprep/internal/database"
	"interviewprep/internal/models"
	"interviewprep/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a migrated, empty database for each integration test
func SharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	cfg := config.Defaults().Database
	cfg.URL = databaseURL
	cfg.AutoMigrate = true

	db, err := database.NewManager(observability.NewNopLogger()).InitDB(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	CleanupTestDatabase(db, t)
	return db
}

// CleanupTestDatabase removes every row; questions and sessions cascade from users
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	t.Helper()
	_, err := db.Exec("TRUNCATE TABLE questions, sessions, users CASCADE")
	require.NoError(t, err)
}

func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	users := NewUserServiceWithLogger(db, observability.NewNopLogger())
	user, err := users.CreateUser(context.Background(), &models.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return user
}
