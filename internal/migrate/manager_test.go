package migrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	m, err := NewManager(db)
	require.NoError(t, err)
	return m
}

func TestEmbeddedMigrations(t *testing.T) {
	all, err := Available()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, int64(1), all[0].Version)
	assert.Equal(t, "00001_create_users", all[0].Name)

	body, err := migrations.ReadFile("sql/00001_create_users.sql")
	require.NoError(t, err)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "users_username_key", "users_email_key", "hashed_password"} {
		assert.True(t, strings.Contains(string(body), want), want)
	}
}

func TestUpUsesEmbeddedDir(t *testing.T) {
	m := newManager(t)
	orig := gooseUp
	defer func() { gooseUp = orig }()

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, m.Up(context.Background()))
	assert.Equal(t, "sql", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	assert.ErrorContains(t, m.Up(context.Background()), "boom")
}

func TestDownWrapsError(t *testing.T) {
	m := newManager(t)
	orig := gooseDown
	defer func() { gooseDown = orig }()

	gooseDown = func(context.Context, *sql.DB, string) error { return errors.New("no migrations") }
	assert.ErrorContains(t, m.Down(context.Background()), "migrate down")
}

func TestStatus(t *testing.T) {
	m := newManager(t)
	orig := gooseVersion
	defer func() { gooseVersion = orig }()

	gooseVersion = func(context.Context, *sql.DB) (int64, error) { return 0, nil }
	status, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pending 00001_create_users"}, status)

	gooseVersion = func(context.Context, *sql.DB) (int64, error) { return 1, nil }
	status, err = m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"applied 00001_create_users"}, status)
}
