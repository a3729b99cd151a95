// Package migrate applies the embedded schema migrations with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

const migrationsDir = "sql"

// Seams for tests.
var (
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	}
	gooseDown = func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	}
	gooseVersion = func(ctx context.Context, db *sql.DB) (int64, error) {
		return goose.GetDBVersionContext(ctx, db)
	}
)

// Manager runs migrations against one database.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) (*Manager, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	return &Manager{db: db}, nil
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	if err := gooseUp(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := gooseDown(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status lists every embedded migration prefixed with "applied" or "pending".
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	current, err := gooseVersion(ctx, m.db)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	all, err := Available()
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(all))
	for _, mig := range all {
		state := "pending"
		if mig.Version <= current {
			state = "applied"
		}
		res = append(res, fmt.Sprintf("%s %s", state, mig.Name))
	}
	return res, nil
}

// Migration is an embedded schema change.
type Migration struct {
	Version int64
	Name    string
}

// Available returns the embedded migrations ordered by version.
func Available() ([]Migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, err
	}
	var res []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		version, err := goose.NumericComponent(e.Name())
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		res = append(res, Migration{Version: version, Name: strings.TrimSuffix(e.Name(), ".sql")})
	}
	return res, nil
}
