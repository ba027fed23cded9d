// Package session owns the working set of named tables and every
// operation that reads or mutates it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tabwise/internal/codec"
	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/normalize"
	"github.com/verte-zerg/tabwise/internal/quality"
	"github.com/verte-zerg/tabwise/internal/store"
)

var (
	// ErrNoSuchTable is returned when a table name is not in the working set.
	ErrNoSuchTable = errors.New("no such table")
	// ErrNoBackupAvailable is returned by Restore when no snapshot exists.
	ErrNoBackupAvailable = errors.New("no backup available")
	// ErrNameCollision is returned when a table or project name is taken.
	ErrNameCollision = errors.New("name already in use")
	// ErrStaleAnalysis is returned when the analyzed table changed since analysis.
	ErrStaleAnalysis = errors.New("analysis is stale")
	// ErrNoAnalysis is returned when the column was never analyzed.
	ErrNoAnalysis = errors.New("column has not been analyzed")
	// ErrProjectNotFound is returned when a project name is unknown to the store.
	ErrProjectNotFound = store.ErrProjectNotFound
	// ErrProjectCorrupt is returned when a stored project cannot be decoded.
	ErrProjectCorrupt = errors.New("project is corrupt")
	// ErrNoActiveProject is returned by SaveProject without an active project.
	ErrNoActiveProject = errors.New("no active project")
	// ErrNoStore is returned by project operations on a session without a store.
	ErrNoStore = errors.New("no project store configured")
)

// ProjectStore persists projects by name.
type ProjectStore interface {
	PutProject(ctx context.Context, p model.Project) error
	GetProject(ctx context.Context, name string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.ProjectInfo, error)
	DeleteProject(ctx context.Context, name string) error
	ProjectExists(ctx context.Context, name string) (bool, error)
}

// Options configures a Session.
type Options struct {
	AutoSave bool
	Quality  quality.Options
}

// activeProject is the project the working set is bound to.
type activeProject struct {
	id          string
	name        string
	description string
	createdAt   time.Time
}

// Session is the explicit working context: named tables, one backup slot per
// table, the active project and the last analysis. It is not safe for
// concurrent use.
type Session struct {
	order   []string
	tables  map[string]*model.Table
	gens    map[string]uint64
	backups map[string]*model.Table

	project  *activeProject
	autoSave bool
	analysis *analysis
	nextGen  uint64

	quality quality.Options
	store   ProjectStore
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an empty session. A nil logger disables logging; a nil store
// makes project operations fail with ErrNoStore.
func New(st ProjectStore, logger *zap.Logger, opts Options) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Quality.IQRMultiplier <= 0 || opts.Quality.AbbrevMaxLen <= 0 {
		def := quality.DefaultOptions()
		if opts.Quality.IQRMultiplier <= 0 {
			opts.Quality.IQRMultiplier = def.IQRMultiplier
		}
		if opts.Quality.AbbrevMaxLen <= 0 {
			opts.Quality.AbbrevMaxLen = def.AbbrevMaxLen
		}
	}
	return &Session{
		tables:   map[string]*model.Table{},
		gens:     map[string]uint64{},
		backups:  map[string]*model.Table{},
		autoSave: opts.AutoSave,
		quality:  opts.Quality,
		store:    st,
		logger:   logger,
		now:      time.Now,
	}
}

// Names lists the working set in insertion order.
func (s *Session) Names() []string {
	return append([]string(nil), s.order...)
}

// Table returns a copy of the named table.
func (s *Session) Table(name string) (*model.Table, error) {
	t, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (s *Session) get(name string) (*model.Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchTable, name)
	}
	return t, nil
}

// set stores t under name and invalidates any analysis of it.
func (s *Session) set(name string, t *model.Table) {
	if _, ok := s.tables[name]; !ok {
		s.order = append(s.order, name)
	}
	s.tables[name] = t
	s.nextGen++
	s.gens[name] = s.nextGen
}

// AddTable normalizes t and adds it under name. A table already stored under
// the name is backed up and replaced.
func (s *Session) AddTable(ctx context.Context, name string, t *model.Table) (Outcome, error) {
	if name == "" {
		return Outcome{}, fmt.Errorf("table name is required")
	}
	norm := normalize.Normalize(t)
	if _, exists := s.tables[name]; exists {
		s.logger.Info("replacing table", zap.String("table", name))
		return s.replace(ctx, name, norm, norm.Len())
	}
	s.set(name, norm)
	s.logger.Debug("table added",
		zap.String("table", name),
		zap.Int("rows", norm.Len()),
		zap.Int("columns", norm.Width()))
	return Outcome{Table: name, Affected: norm.Len(), Save: s.autoSaveHook(ctx)}, nil
}

// RenameTable moves a table, its backup and its analysis to a new name.
func (s *Session) RenameTable(ctx context.Context, from, to string) (Outcome, error) {
	t, err := s.get(from)
	if err != nil {
		return Outcome{}, err
	}
	if to == "" {
		return Outcome{}, fmt.Errorf("table name is required")
	}
	if from == to {
		return Outcome{Table: to}, nil
	}
	if _, taken := s.tables[to]; taken {
		return Outcome{}, fmt.Errorf("%w: table %q", ErrNameCollision, to)
	}
	for i, name := range s.order {
		if name == from {
			s.order[i] = to
		}
	}
	s.tables[to] = t
	s.gens[to] = s.gens[from]
	delete(s.tables, from)
	delete(s.gens, from)
	if b, ok := s.backups[from]; ok {
		s.backups[to] = b
		delete(s.backups, from)
	}
	if s.analysis != nil && s.analysis.table == from {
		s.analysis.table = to
	}
	return Outcome{Table: to, Save: s.autoSaveHook(ctx)}, nil
}

// DeleteTable removes a table and its backup from the working set.
func (s *Session) DeleteTable(ctx context.Context, name string) (Outcome, error) {
	if _, err := s.get(name); err != nil {
		return Outcome{}, err
	}
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.tables, name)
	delete(s.gens, name)
	delete(s.backups, name)
	if s.analysis != nil && s.analysis.table == name {
		s.analysis = nil
	}
	return Outcome{Table: name, Save: s.autoSaveHook(ctx)}, nil
}

// Backup snapshots the named table into its single backup slot.
func (s *Session) Backup(name string) error {
	t, err := s.get(name)
	if err != nil {
		return err
	}
	s.backups[name] = t.Clone()
	return nil
}

// HasBackup reports whether Restore would succeed for name.
func (s *Session) HasBackup(name string) bool {
	_, ok := s.backups[name]
	return ok
}

// Restore replaces the named table with a copy of its snapshot. The snapshot
// is kept, so restoring twice yields the same table.
func (s *Session) Restore(ctx context.Context, name string) (Outcome, error) {
	b, ok := s.backups[name]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrNoBackupAvailable, name)
	}
	s.set(name, b.Clone())
	s.logger.Info("table restored from backup", zap.String("table", name))
	return Outcome{Table: name, Affected: b.Len(), Save: s.autoSaveHook(ctx)}, nil
}

// replace backs up the current table, then installs t.
func (s *Session) replace(ctx context.Context, name string, t *model.Table, affected int) (Outcome, error) {
	if err := s.Backup(name); err != nil {
		return Outcome{}, err
	}
	s.set(name, t)
	return Outcome{Table: name, Affected: affected, Save: s.autoSaveHook(ctx)}, nil
}

// State snapshots the whole session for persistence between runs.
func (s *Session) State() codec.State {
	st := codec.State{AutoSave: s.autoSave}
	for _, name := range s.order {
		st.Tables = append(st.Tables, model.NamedTable{Name: name, Table: s.tables[name].Clone()})
		if b, ok := s.backups[name]; ok {
			st.Backups = append(st.Backups, model.NamedTable{Name: name, Table: b.Clone()})
		}
	}
	if s.project != nil {
		st.ActiveProject = s.project.name
	}
	return st
}

// Export encodes State.
func (s *Session) Export() ([]byte, error) {
	return codec.EncodeState(s.State())
}

// Import replaces the session content with a payload produced by Export.
// The active project is re-bound from the store when it still exists.
func (s *Session) Import(ctx context.Context, data []byte) error {
	st, err := codec.DecodeState(data)
	if err != nil {
		return err
	}
	s.order = nil
	s.tables = map[string]*model.Table{}
	s.gens = map[string]uint64{}
	s.backups = map[string]*model.Table{}
	s.analysis = nil
	s.project = nil
	s.autoSave = st.AutoSave
	for _, nt := range st.Tables {
		s.set(nt.Name, nt.Table)
	}
	for _, nt := range st.Backups {
		if _, ok := s.tables[nt.Name]; ok {
			s.backups[nt.Name] = nt.Table
		}
	}
	if st.ActiveProject == "" || s.store == nil {
		return nil
	}
	p, err := s.store.GetProject(ctx, st.ActiveProject)
	if err != nil {
		s.logger.Warn("active project could not be re-bound",
			zap.String("project", st.ActiveProject), zap.Error(err))
		return nil
	}
	s.project = &activeProject{id: p.ID, name: p.Name, description: p.Description, createdAt: p.CreatedAt}
	return nil
}
