package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/tabwise/internal/codec"
	"github.com/verte-zerg/tabwise/internal/model"
)

// SaveStatus is the outcome of the auto-save hook run after a mutation.
type SaveStatus uint8

const (
	// NoActiveProject means nothing was saved because no project is bound.
	NoActiveProject SaveStatus = iota
	// ManualSaveNeeded means a project is bound but auto-save is off.
	ManualSaveNeeded
	// AutoSaved means the project was written.
	AutoSaved
	// AutoSaveFailed means the write failed; the working set is unaffected.
	AutoSaveFailed
)

func (s SaveStatus) String() string {
	switch s {
	case ManualSaveNeeded:
		return "manual save needed"
	case AutoSaved:
		return "auto-saved"
	case AutoSaveFailed:
		return "auto-save failed"
	default:
		return "no active project"
	}
}

// SaveReport carries the hook status, the project involved and any error.
type SaveReport struct {
	Status  SaveStatus
	Project string
	Err     error
}

// Outcome describes a completed mutation.
type Outcome struct {
	Table    string
	Affected int
	Save     SaveReport
}

func (s *Session) autoSaveHook(ctx context.Context) SaveReport {
	if s.project == nil {
		return SaveReport{Status: NoActiveProject}
	}
	report := SaveReport{Project: s.project.name}
	if !s.autoSave {
		report.Status = ManualSaveNeeded
		return report
	}
	if err := s.saveActive(ctx); err != nil {
		s.logger.Warn("auto-save failed", zap.String("project", s.project.name), zap.Error(err))
		report.Status = AutoSaveFailed
		report.Err = err
		return report
	}
	report.Status = AutoSaved
	return report
}

// ActiveProject returns the bound project name, or "" when none is bound.
func (s *Session) ActiveProject() string {
	if s.project == nil {
		return ""
	}
	return s.project.name
}

// AutoSave reports whether mutations save the active project.
func (s *Session) AutoSave() bool {
	return s.autoSave
}

// SetAutoSave toggles saving the active project after every mutation.
func (s *Session) SetAutoSave(enabled bool) {
	s.autoSave = enabled
}

func (s *Session) requireStore() error {
	if s.store == nil {
		return ErrNoStore
	}
	return nil
}

func (s *Session) snapshot() []model.NamedTable {
	out := make([]model.NamedTable, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, model.NamedTable{Name: name, Table: s.tables[name].Clone()})
	}
	return out
}

func (s *Session) saveActive(ctx context.Context) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	p := model.Project{
		ID:          s.project.id,
		Name:        s.project.name,
		Description: s.project.description,
		Datasets:    s.snapshot(),
		CreatedAt:   s.project.createdAt,
		ModifiedAt:  s.now().UTC(),
	}
	return s.store.PutProject(ctx, p)
}

// CreateProject stores the current working set as a new project and binds
// the session to it.
func (s *Session) CreateProject(ctx context.Context, name, description string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("project name is required")
	}
	exists, err := s.store.ProjectExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: project %q", ErrNameCollision, name)
	}
	now := s.now().UTC()
	p := model.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Datasets:    s.snapshot(),
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	if err := s.store.PutProject(ctx, p); err != nil {
		return err
	}
	s.project = &activeProject{id: p.ID, name: name, description: description, createdAt: now}
	s.logger.Info("project created", zap.String("project", name), zap.String("id", p.ID))
	return nil
}

// SaveProject writes the working set into the active project.
func (s *Session) SaveProject(ctx context.Context) error {
	if s.project == nil {
		return ErrNoActiveProject
	}
	if err := s.saveActive(ctx); err != nil {
		return err
	}
	s.logger.Info("project saved", zap.String("project", s.project.name), zap.Int("datasets", len(s.order)))
	return nil
}

// LoadProject replaces the working set with the project's datasets and binds
// the session to it. Backups and analysis are discarded. On error the
// session is left untouched.
func (s *Session) LoadProject(ctx context.Context, name string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	p, err := s.store.GetProject(ctx, name)
	if err != nil {
		if errors.Is(err, codec.ErrCorrupt) {
			return fmt.Errorf("%w: %w", ErrProjectCorrupt, err)
		}
		return err
	}

	s.order = nil
	s.tables = map[string]*model.Table{}
	s.gens = map[string]uint64{}
	s.backups = map[string]*model.Table{}
	s.analysis = nil
	for _, ds := range p.Datasets {
		s.set(ds.Name, ds.Table)
	}
	s.project = &activeProject{id: p.ID, name: p.Name, description: p.Description, createdAt: p.CreatedAt}
	s.logger.Info("project loaded", zap.String("project", name), zap.Int("datasets", len(p.Datasets)))
	return nil
}

// DeleteProject removes a stored project. Deleting the active project
// unbinds the session but keeps the working set.
func (s *Session) DeleteProject(ctx context.Context, name string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, name); err != nil {
		return err
	}
	if s.project != nil && s.project.name == name {
		s.project = nil
	}
	return nil
}

// CloseProject unbinds the active project without touching the working set.
func (s *Session) CloseProject() {
	s.project = nil
}

// ListProjects lists stored projects, most recently modified first.
func (s *Session) ListProjects(ctx context.Context) ([]model.ProjectInfo, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.ListProjects(ctx)
}
