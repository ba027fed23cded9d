// Package store handles SQLite persistence of projects and the workspace.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/verte-zerg/tabwise/internal/codec"
	"github.com/verte-zerg/tabwise/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrProjectNotFound is returned when no project has the requested name.
var ErrProjectNotFound = errors.New("project not found")

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for projects and workspace state.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			name TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			description TEXT NOT NULL,
			dataset_count INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			modified_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS workspace (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_modified_at ON projects(modified_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type projectRow struct {
	Name         string `db:"name"`
	ID           string `db:"id"`
	Description  string `db:"description"`
	DatasetCount int    `db:"dataset_count"`
	CreatedAt    string `db:"created_at"`
	ModifiedAt   string `db:"modified_at"`
	Payload      []byte `db:"payload"`
}

func (r projectRow) info() (model.ProjectInfo, error) {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return model.ProjectInfo{}, err
	}
	modified, err := time.Parse(time.RFC3339Nano, r.ModifiedAt)
	if err != nil {
		return model.ProjectInfo{}, err
	}
	return model.ProjectInfo{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		DatasetCount: r.DatasetCount,
		CreatedAt:    created,
		ModifiedAt:   modified,
	}, nil
}

// PutProject inserts or replaces a project by name. An existing row keeps
// its original created_at.
func (s *Store) PutProject(ctx context.Context, p model.Project) (err error) {
	payload, err := codec.EncodeProject(p)
	if err != nil {
		return fmt.Errorf("encode project %q: %w", p.Name, err)
	}
	row := projectRow{
		Name:         p.Name,
		ID:           p.ID,
		Description:  p.Description,
		DatasetCount: len(p.Datasets),
		CreatedAt:    p.CreatedAt.UTC().Format(timeLayout),
		ModifiedAt:   p.ModifiedAt.UTC().Format(timeLayout),
		Payload:      payload,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO projects (name, id, description, dataset_count, created_at, modified_at, payload)
		 VALUES (:name, :id, :description, :dataset_count, :created_at, :modified_at, :payload)
		 ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			description = excluded.description,
			dataset_count = excluded.dataset_count,
			modified_at = excluded.modified_at,
			payload = excluded.payload`, row)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetProject loads and decodes a project. A payload that fails to decode
// is reported as codec.ErrCorrupt.
func (s *Store) GetProject(ctx context.Context, name string) (model.Project, error) {
	var row projectRow
	err := s.db.GetContext(ctx, &row,
		`SELECT name, id, description, dataset_count, created_at, modified_at, payload
		 FROM projects WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("%w: %q", ErrProjectNotFound, name)
	}
	if err != nil {
		return model.Project{}, err
	}
	p, err := codec.DecodeProject(row.Payload)
	if err != nil {
		return model.Project{}, fmt.Errorf("project %q: %w", name, err)
	}
	info, err := row.info()
	if err != nil {
		return model.Project{}, fmt.Errorf("project %q: %w", name, err)
	}
	p.Name = row.Name
	p.CreatedAt = info.CreatedAt
	return p, nil
}

// ListProjects returns every stored project, most recently modified first.
func (s *Store) ListProjects(ctx context.Context) ([]model.ProjectInfo, error) {
	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, id, description, dataset_count, created_at, modified_at
		 FROM projects
		 ORDER BY modified_at DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	infos := make([]model.ProjectInfo, 0, len(rows))
	for _, row := range rows {
		info, err := row.info()
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", row.Name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ProjectExists reports whether a project with the name is stored.
func (s *Store) ProjectExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM projects WHERE name = ?`, name); err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteProject removes a project by name.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrProjectNotFound, name)
	}
	return nil
}

// PutState stores an opaque workspace payload under key.
func (s *Store) PutState(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspace (key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload, time.Now().UTC().Format(timeLayout))
	return err
}

// GetState loads the workspace payload stored under key. The boolean is
// false when nothing has been stored yet.
func (s *Store) GetState(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM workspace WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// ClearState removes the workspace payload stored under key.
func (s *Store) ClearState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workspace WHERE key = ?`, key)
	return err
}
