// Package store persists projects as JSON files under a base directory.
// Layout is baseDir/projects/<project-id>/project.json with a captures/
// subdirectory for image files. Each project is written as a whole document;
// there is no partial update.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/model"
)

// ChangeKind classifies a store change event.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ProjectStore reads and writes projects on disk. It is safe for concurrent
// use; writes to the same project are serialized per project id.
type ProjectStore struct {
	baseDir string
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	changeMu  sync.Mutex
	listeners []func(kind ChangeKind, projectID string)
}

// New creates a ProjectStore rooted at baseDir. The projects directory is
// created with restricted permissions if it does not exist.
func New(baseDir string, logger *slog.Logger) (*ProjectStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	projectsDir := filepath.Join(baseDir, "projects")
	if err := os.MkdirAll(projectsDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}
	_ = os.Chmod(projectsDir, 0o700)

	return &ProjectStore{
		baseDir: baseDir,
		logger:  logger,
		locks:   map[string]*sync.Mutex{},
	}, nil
}

// OnChange registers a callback invoked after every persisted change.
// Callbacks run synchronously on the mutating goroutine.
func (s *ProjectStore) OnChange(fn func(kind ChangeKind, projectID string)) {
	s.changeMu.Lock()
	defer s.changeMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *ProjectStore) notify(kind ChangeKind, projectID string) {
	s.changeMu.Lock()
	listeners := s.listeners
	s.changeMu.Unlock()
	for _, fn := range listeners {
		fn(kind, projectID)
	}
}

// lockFor returns the mutex serializing writes to one project.
func (s *ProjectStore) lockFor(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	return l
}

// ProjectDir returns the on-disk directory for a project id.
func (s *ProjectStore) ProjectDir(projectID string) string {
	return filepath.Join(s.baseDir, "projects", projectID)
}

// CapturesDir returns the directory capture images are saved under.
func (s *ProjectStore) CapturesDir(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "captures")
}

func (s *ProjectStore) projectFile(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "project.json")
}

// CreateProject creates and persists a new project. Name is required.
func (s *ProjectStore) CreateProject(name, description string) (*model.Project, error) {
	if name == "" {
		return nil, errors.NewInvalidRequest("project name is required")
	}

	now := time.Now()
	p := &model.Project{
		ID:          model.NewID(),
		Name:        name,
		Description: description,
		Created:     now,
		Modified:    now,
		Sessions:    []*model.CaptureSession{},
	}
	p.SavePath = s.CapturesDir(p.ID)

	if err := os.MkdirAll(p.SavePath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := s.save(p); err != nil {
		return nil, err
	}

	s.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	s.notify(ChangeCreated, p.ID)
	return p, nil
}

// LoadProject reads one project by id.
func (s *ProjectStore) LoadProject(projectID string) (*model.Project, error) {
	data, err := os.ReadFile(s.projectFile(projectID))
	if err != nil {
		return nil, errors.NewNotFound("project", projectID)
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.NewNotFound("project", projectID)
	}
	return &p, nil
}

// FindProject resolves a project by id or, failing that, by exact name.
func (s *ProjectStore) FindProject(idOrName string) (*model.Project, error) {
	if p, err := s.LoadProject(idOrName); err == nil {
		return p, nil
	}
	all, err := s.GetAllProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.Name == idOrName {
			return p, nil
		}
	}
	return nil, errors.NewNotFound("project", idOrName)
}

// GetAllProjects loads every readable project, sorted by Modified descending.
// Unreadable or corrupted project files are logged and skipped so one bad
// file never hides the rest.
func (s *ProjectStore) GetAllProjects() ([]*model.Project, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "projects"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	var projects []*model.Project
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := s.LoadProject(e.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable project", "project_id", e.Name(), "error", err)
			continue
		}
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Modified.After(projects[j].Modified)
	})
	return projects, nil
}

// SaveProject persists the full project document, refreshing Modified.
func (s *ProjectStore) SaveProject(p *model.Project) error {
	l := s.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()
	return s.saveLocked(p)
}

// Mutate runs fn under the project's write lock without persisting. Graph
// edits made outside the store (status flips, renames) must go through it
// so they never interleave with a concurrent save's marshal.
func (s *ProjectStore) Mutate(projectID string, fn func()) {
	l := s.lockFor(projectID)
	l.Lock()
	defer l.Unlock()
	fn()
}

// saveLocked persists the project. The caller holds the project's lock.
func (s *ProjectStore) saveLocked(p *model.Project) error {
	p.Modified = time.Now()
	if err := s.save(p); err != nil {
		return err
	}
	s.notify(ChangeUpdated, p.ID)
	return nil
}

// save writes project.json via a temp file and rename, so a crash mid-write
// cannot leave a truncated document behind.
func (s *ProjectStore) save(p *model.Project) error {
	dir := s.ProjectDir(p.ID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".project-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	_ = os.Chmod(tmpPath, 0o600)
	if err := os.Rename(tmpPath, s.projectFile(p.ID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace project file: %w", err)
	}
	return nil
}

// DeleteProject removes the project directory, captures included.
func (s *ProjectStore) DeleteProject(projectID string) error {
	if _, err := s.LoadProject(projectID); err != nil {
		return err
	}
	l := s.lockFor(projectID)
	l.Lock()
	defer l.Unlock()

	if err := os.RemoveAll(s.ProjectDir(projectID)); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.logger.Info("project deleted", "project_id", projectID)
	s.notify(ChangeDeleted, projectID)
	return nil
}

// CreateSession appends a new session to the project and persists it.
func (s *ProjectStore) CreateSession(p *model.Project, name string) (*model.CaptureSession, error) {
	l := s.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()

	if name == "" {
		name = fmt.Sprintf("Session %d", len(p.Sessions)+1)
	}
	session := &model.CaptureSession{
		ID:       model.NewID(),
		Name:     name,
		Created:  time.Now(),
		Captures: []*model.ScreenCapture{},
	}
	p.Sessions = append(p.Sessions, session)
	if err := s.saveLocked(p); err != nil {
		return nil, err
	}
	return session, nil
}

// AddCapture records a new capture in the session with the next sequence
// number and persists the project. The image file must already exist at
// filePath.
func (s *ProjectStore) AddCapture(p *model.Project, session *model.CaptureSession, filePath string) (*model.ScreenCapture, error) {
	l := s.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()

	// Sequence numbers are never reused, so deletions leave gaps.
	seq := 0
	for _, existing := range session.Captures {
		if existing.SequenceNumber > seq {
			seq = existing.SequenceNumber
		}
	}
	c := &model.ScreenCapture{
		ID:             model.NewID(),
		SequenceNumber: seq + 1,
		FileName:       filepath.Base(filePath),
		FilePath:       filePath,
		Timestamp:      time.Now(),
		Status:         model.StatusCaptured,
	}
	session.Captures = append(session.Captures, c)
	if err := s.saveLocked(p); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCaptureOCR attaches a recognition result to the capture and persists
// the project. If the capture was removed from the session while recognition
// ran, the update is dropped without error.
func (s *ProjectStore) UpdateCaptureOCR(p *model.Project, session *model.CaptureSession, capture *model.ScreenCapture, result *model.OCRResult) error {
	l := s.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()

	if !session.HasCapture(capture.ID) {
		s.logger.Debug("dropping ocr result for removed capture", "capture_id", capture.ID)
		return nil
	}
	capture.SetResult(result)
	return s.saveLocked(p)
}

// RemoveCapture deletes the capture from its session and removes the image
// file best-effort, then persists the project.
func (s *ProjectStore) RemoveCapture(p *model.Project, session *model.CaptureSession, captureID string) error {
	l := s.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()

	idx := -1
	for i, c := range session.Captures {
		if c.ID == captureID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewNotFound("capture", captureID)
	}

	c := session.Captures[idx]
	session.Captures = append(session.Captures[:idx], session.Captures[idx+1:]...)
	if c.FilePath != "" {
		if err := os.Remove(c.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove capture file", "path", c.FilePath, "error", err)
		}
	}
	return s.saveLocked(p)
}
