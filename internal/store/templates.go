package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/model"
)

// Built-in template ids are fixed so references survive across machines.
const (
	BuiltInDocumentID = "00000000000000000000000001"
	BuiltInInvoiceID  = "00000000000000000000000002"
	BuiltInMeetingID  = "00000000000000000000000003"
)

// TemplateStore manages metadata templates. Built-ins live only in memory
// and are immutable; user templates are persisted one JSON file each under
// baseDir/templates.
type TemplateStore struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	user map[string]*model.MetadataTemplate
}

// NewTemplateStore creates a TemplateStore rooted at baseDir and loads any
// persisted user templates. Unreadable template files are logged and skipped.
func NewTemplateStore(baseDir string, logger *slog.Logger) (*TemplateStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	dir := filepath.Join(baseDir, "templates")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create templates directory: %w", err)
	}

	ts := &TemplateStore{
		dir:    dir,
		logger: logger,
		user:   map[string]*model.MetadataTemplate{},
	}
	if err := ts.loadAll(); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TemplateStore) loadAll() error {
	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(ts.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			ts.logger.Warn("skipping unreadable template", "path", path, "error", err)
			continue
		}
		var t model.MetadataTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			ts.logger.Warn("skipping corrupted template", "path", path, "error", err)
			continue
		}
		t.BuiltIn = false
		ts.user[t.ID] = &t
	}
	return nil
}

// builtIns returns fresh copies of the built-in templates so callers cannot
// mutate the canonical definitions.
func builtIns() []*model.MetadataTemplate {
	return []*model.MetadataTemplate{
		{
			ID:          BuiltInDocumentID,
			Name:        "Document Scan",
			Description: "Basic fields for scanned documents",
			BuiltIn:     true,
			Fields: []model.MetadataField{
				{ID: "doc_title", Name: "title", Label: "Title", Type: model.FieldText, Required: true, DisplayOrder: 0},
				{ID: "doc_date", Name: "date", Label: "Document Date", Type: model.FieldDate, DisplayOrder: 1},
				{ID: "doc_category", Name: "category", Label: "Category", Type: model.FieldDropdown, Options: []string{"Personal", "Work", "Financial", "Legal", "Other"}, DisplayOrder: 2},
				{ID: "doc_notes", Name: "notes", Label: "Notes", Type: model.FieldMultiline, DisplayOrder: 3},
			},
		},
		{
			ID:          BuiltInInvoiceID,
			Name:        "Invoice",
			Description: "Invoice capture fields",
			BuiltIn:     true,
			Fields: []model.MetadataField{
				{ID: "inv_number", Name: "invoice_number", Label: "Invoice Number", Type: model.FieldText, Required: true, DisplayOrder: 0},
				{ID: "inv_vendor", Name: "vendor", Label: "Vendor", Type: model.FieldText, Required: true, DisplayOrder: 1},
				{ID: "inv_amount", Name: "amount", Label: "Amount", Type: model.FieldCurrency, Required: true, DisplayOrder: 2},
				{ID: "inv_due", Name: "due_date", Label: "Due Date", Type: model.FieldDate, DisplayOrder: 3},
				{ID: "inv_paid", Name: "paid", Label: "Paid", Type: model.FieldCheckbox, DefaultValue: "false", DisplayOrder: 4},
			},
		},
		{
			ID:          BuiltInMeetingID,
			Name:        "Meeting Notes",
			Description: "Fields for captured meeting content",
			BuiltIn:     true,
			Fields: []model.MetadataField{
				{ID: "mtg_title", Name: "meeting_title", Label: "Meeting Title", Type: model.FieldText, Required: true, DisplayOrder: 0},
				{ID: "mtg_date", Name: "meeting_date", Label: "Date", Type: model.FieldDate, Required: true, DisplayOrder: 1},
				{ID: "mtg_attendees", Name: "attendees", Label: "Attendees", Type: model.FieldMultiline, DisplayOrder: 2},
				{ID: "mtg_action", Name: "action_items", Label: "Action Items", Type: model.FieldMultiline, DisplayOrder: 3},
			},
		},
	}
}

// All returns built-in templates followed by user templates sorted by name.
func (ts *TemplateStore) All() []*model.MetadataTemplate {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	out := builtIns()
	var users []*model.MetadataTemplate
	for _, t := range ts.user {
		users = append(users, t)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return append(out, users...)
}

// Get returns the template with the given id.
func (ts *TemplateStore) Get(id string) (*model.MetadataTemplate, error) {
	for _, t := range builtIns() {
		if t.ID == id {
			return t, nil
		}
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.user[id]; ok {
		return t, nil
	}
	return nil, errors.NewNotFound("template", id)
}

// Create validates and persists a new user template.
func (ts *TemplateStore) Create(t *model.MetadataTemplate) error {
	if problems := t.Validate(); len(problems) > 0 {
		return errors.NewInvalidRequest(strings.Join(problems, "; "))
	}
	if t.ID == "" {
		t.ID = model.NewID()
	}
	t.BuiltIn = false
	now := time.Now()
	t.Created = now
	t.Modified = now

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.saveLocked(t); err != nil {
		return err
	}
	ts.user[t.ID] = t
	ts.logger.Info("template created", "template_id", t.ID, "name", t.Name)
	return nil
}

// Update replaces an existing user template. Built-ins cannot be updated.
func (ts *TemplateStore) Update(t *model.MetadataTemplate) error {
	if isBuiltInID(t.ID) {
		return errors.NewBuiltIn(t.Name)
	}
	if problems := t.Validate(); len(problems) > 0 {
		return errors.NewInvalidRequest(strings.Join(problems, "; "))
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.user[t.ID]; !ok {
		return errors.NewNotFound("template", t.ID)
	}
	t.BuiltIn = false
	t.Modified = time.Now()
	if err := ts.saveLocked(t); err != nil {
		return err
	}
	ts.user[t.ID] = t
	return nil
}

// Delete removes a user template. Built-ins cannot be deleted.
func (ts *TemplateStore) Delete(id string) error {
	if isBuiltInID(id) {
		t, _ := ts.Get(id)
		name := id
		if t != nil {
			name = t.Name
		}
		return errors.NewBuiltIn(name)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.user[id]; !ok {
		return errors.NewNotFound("template", id)
	}
	if err := os.Remove(ts.templateFile(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	delete(ts.user, id)
	return nil
}

// Duplicate clones any template (built-in or user) into a new editable user
// template. This is the supported way to customize a built-in.
func (ts *TemplateStore) Duplicate(id string) (*model.MetadataTemplate, error) {
	src, err := ts.Get(id)
	if err != nil {
		return nil, err
	}
	clone := src.Clone()
	if err := ts.Create(clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// Export writes a template as indented JSON to path.
func (ts *TemplateStore) Export(id, path string) error {
	t, err := ts.Get(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Import reads a template JSON file and stores it as a new user template
// with a fresh id, so imports never collide with existing templates.
func (ts *TemplateStore) Import(path string) (*model.MetadataTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	var t model.MetadataTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid template file: %v", err))
	}
	t.ID = model.NewID()
	t.BuiltIn = false
	t.UsageCount = 0
	if err := ts.Create(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordUsage bumps a user template's usage counter. Built-in usage is not
// tracked since built-ins are never persisted.
func (ts *TemplateStore) RecordUsage(id string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.user[id]
	if !ok {
		return
	}
	t.UsageCount++
	if err := ts.saveLocked(t); err != nil {
		ts.logger.Warn("failed to persist template usage", "template_id", id, "error", err)
	}
}

func (ts *TemplateStore) templateFile(id string) string {
	return filepath.Join(ts.dir, id+".json")
}

func (ts *TemplateStore) saveLocked(t *model.MetadataTemplate) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	return os.WriteFile(ts.templateFile(t.ID), data, 0o600)
}

func isBuiltInID(id string) bool {
	return id == BuiltInDocumentID || id == BuiltInInvoiceID || id == BuiltInMeetingID
}

// ApplyTemplate snapshots the template identity and values onto a capture.
// Values for unknown fields are rejected; missing required fields fail
// validation. The snapshot keeps exports stable even if the template is
// later edited or deleted.
func ApplyTemplate(capture *model.ScreenCapture, t *model.MetadataTemplate, values map[string]string) error {
	if problems := ValidateMetadata(t, values); len(problems) > 0 {
		return errors.NewInvalidRequest(strings.Join(problems, "; "))
	}
	snapshot := make(map[string]string, len(values))
	for k, v := range values {
		snapshot[k] = v
	}
	capture.TemplateMetadata = &model.CaptureMetadata{
		TemplateID:   t.ID,
		TemplateName: t.Name,
		Values:       snapshot,
		AppliedAt:    time.Now(),
	}
	return nil
}

// ValidateMetadata checks values against a template's field definitions and
// returns one message per problem.
func ValidateMetadata(t *model.MetadataTemplate, values map[string]string) []string {
	var problems []string

	known := map[string]bool{}
	for _, f := range t.Fields {
		known[f.Name] = true
		if f.Required && strings.TrimSpace(values[f.Name]) == "" {
			problems = append(problems, fmt.Sprintf("field %q is required", f.Name))
		}
	}
	for name := range values {
		if !known[name] {
			problems = append(problems, fmt.Sprintf("unknown field %q", name))
		}
	}
	return problems
}
