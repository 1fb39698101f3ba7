package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/model"
)

func newTestStore(t *testing.T) *ProjectStore {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestCreateProject(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("Invoices", "scanned invoices")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if len(p.ID) != 26 {
		t.Errorf("ID length = %d, want 26 (ULID)", len(p.ID))
	}
	if p.Name != "Invoices" {
		t.Errorf("Name = %q, want %q", p.Name, "Invoices")
	}
	if _, err := os.Stat(filepath.Join(s.ProjectDir(p.ID), "project.json")); err != nil {
		t.Errorf("project.json not written: %v", err)
	}
	if _, err := os.Stat(s.CapturesDir(p.ID)); err != nil {
		t.Errorf("captures dir not created: %v", err)
	}
}

func TestCreateProject_RequiresName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateProject("", "")
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestLoadProject_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("Round Trip", "desc")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	session, err := s.CreateSession(p, "Session A")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := s.AddCapture(p, session, filepath.Join(s.CapturesDir(p.ID), "a.png")); err != nil {
		t.Fatalf("AddCapture failed: %v", err)
	}

	loaded, err := s.LoadProject(p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if loaded.Name != "Round Trip" || loaded.Description != "desc" {
		t.Errorf("loaded = %q/%q, want Round Trip/desc", loaded.Name, loaded.Description)
	}
	if len(loaded.Sessions) != 1 || len(loaded.Sessions[0].Captures) != 1 {
		t.Fatalf("loaded graph = %d sessions, want 1 with 1 capture", len(loaded.Sessions))
	}
	if loaded.Sessions[0].Captures[0].Status != model.StatusCaptured {
		t.Errorf("capture status = %q, want %q", loaded.Sessions[0].Captures[0].Status, model.StatusCaptured)
	}
}

func TestLoadProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadProject("missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestGetAllProjects_SortedAndSkipsCorrupted(t *testing.T) {
	s := newTestStore(t)

	older, err := s.CreateProject("older", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	newer, err := s.CreateProject("newer", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	// Corrupt a third project's file on disk.
	corrupt, err := s.CreateProject("corrupt", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	path := filepath.Join(s.ProjectDir(corrupt.ID), "project.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("corrupt write failed: %v", err)
	}

	all, err := s.GetAllProjects()
	if err != nil {
		t.Fatalf("GetAllProjects failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d projects, want 2 (corrupted skipped)", len(all))
	}
	if all[0].ID != newer.ID || all[1].ID != older.ID {
		t.Errorf("order = [%s %s], want newest first", all[0].Name, all[1].Name)
	}
}

func TestSaveProject_RefreshesModified(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("mod", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	before := p.Modified
	time.Sleep(10 * time.Millisecond)
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	if !p.Modified.After(before) {
		t.Error("Modified not refreshed on save")
	}
}

func TestSaveProject_NoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("clean", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	entries, err := os.ReadDir(s.ProjectDir(p.ID))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "project.json" && e.Name() != "captures" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestDeleteProject(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("doomed", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := os.Stat(s.ProjectDir(p.ID)); !os.IsNotExist(err) {
		t.Error("project directory still exists after delete")
	}
	if err := s.DeleteProject(p.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete err = %v, want NOT_FOUND", err)
	}
}

func TestFindProject_ByName(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("named", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	byID, err := s.FindProject(p.ID)
	if err != nil || byID.ID != p.ID {
		t.Errorf("FindProject by id = %v, %v", byID, err)
	}
	byName, err := s.FindProject("named")
	if err != nil || byName.ID != p.ID {
		t.Errorf("FindProject by name = %v, %v", byName, err)
	}
	if _, err := s.FindProject("nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestAddCapture_SequenceNumbers(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("seq", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	session, err := s.CreateSession(p, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		c, err := s.AddCapture(p, session, "img.png")
		if err != nil {
			t.Fatalf("AddCapture failed: %v", err)
		}
		if c.SequenceNumber != i {
			t.Errorf("SequenceNumber = %d, want %d", c.SequenceNumber, i)
		}
	}
}

func TestAddCapture_SequenceNotReusedAfterDelete(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("seq-gap", "")
	session, _ := s.CreateSession(p, "")

	var second *model.ScreenCapture
	for i := 1; i <= 3; i++ {
		c, err := s.AddCapture(p, session, "img.png")
		if err != nil {
			t.Fatalf("AddCapture failed: %v", err)
		}
		if i == 2 {
			second = c
		}
	}
	if err := s.RemoveCapture(p, session, second.ID); err != nil {
		t.Fatalf("RemoveCapture failed: %v", err)
	}

	c, err := s.AddCapture(p, session, "img.png")
	if err != nil {
		t.Fatalf("AddCapture failed: %v", err)
	}
	if c.SequenceNumber != 4 {
		t.Errorf("SequenceNumber after delete = %d, want 4 (gaps stay, no reuse)", c.SequenceNumber)
	}
}

func TestConcurrentAddCaptureAndSave(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("concurrent", "")
	session, err := s.CreateSession(p, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// One goroutine grows the session while another keeps saving the same
	// project, as the continuous-capture runner and the OCR worker do. The
	// race detector flags any graph mutation outside the project lock.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			if _, err := s.AddCapture(p, session, "img.png"); err != nil {
				t.Errorf("AddCapture failed: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 25; i++ {
		if err := s.SaveProject(p); err != nil {
			t.Fatalf("SaveProject failed: %v", err)
		}
	}
	<-done

	loaded, err := s.LoadProject(p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if len(loaded.Sessions[0].Captures) != 25 {
		t.Errorf("persisted %d captures, want 25", len(loaded.Sessions[0].Captures))
	}
}

func TestUpdateCaptureOCR(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("ocr", "")
	session, _ := s.CreateSession(p, "")
	c, err := s.AddCapture(p, session, "img.png")
	if err != nil {
		t.Fatalf("AddCapture failed: %v", err)
	}

	result := &model.OCRResult{Text: "hello", Confidence: 0.92, EngineName: "tesseract"}
	if err := s.UpdateCaptureOCR(p, session, c, result); err != nil {
		t.Fatalf("UpdateCaptureOCR failed: %v", err)
	}
	if c.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusCompleted)
	}

	loaded, err := s.LoadProject(p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	got := loaded.Sessions[0].Captures[0]
	if got.OCRResult == nil || got.OCRResult.Text != "hello" {
		t.Errorf("persisted OCR result = %+v, want text hello", got.OCRResult)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("persisted status = %q, want completed", got.Status)
	}
}

func TestUpdateCaptureOCR_DroppedForRemovedCapture(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("race", "")
	session, _ := s.CreateSession(p, "")
	c, err := s.AddCapture(p, session, "img.png")
	if err != nil {
		t.Fatalf("AddCapture failed: %v", err)
	}

	if err := s.RemoveCapture(p, session, c.ID); err != nil {
		t.Fatalf("RemoveCapture failed: %v", err)
	}

	// The stale update must be silently dropped.
	result := &model.OCRResult{Text: "late"}
	if err := s.UpdateCaptureOCR(p, session, c, result); err != nil {
		t.Fatalf("UpdateCaptureOCR failed: %v", err)
	}
	loaded, err := s.LoadProject(p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if len(loaded.Sessions[0].Captures) != 0 {
		t.Errorf("capture reappeared after stale update")
	}
}

func TestRemoveCapture_DeletesImageFile(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("rm", "")
	session, _ := s.CreateSession(p, "")

	imgPath := filepath.Join(s.CapturesDir(p.ID), "shot.png")
	if err := os.WriteFile(imgPath, []byte("fake png"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	c, err := s.AddCapture(p, session, imgPath)
	if err != nil {
		t.Fatalf("AddCapture failed: %v", err)
	}

	if err := s.RemoveCapture(p, session, c.ID); err != nil {
		t.Fatalf("RemoveCapture failed: %v", err)
	}
	if _, err := os.Stat(imgPath); !os.IsNotExist(err) {
		t.Error("image file still exists after RemoveCapture")
	}
	if err := s.RemoveCapture(p, session, c.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second remove err = %v, want NOT_FOUND", err)
	}
}

func TestOnChange(t *testing.T) {
	s := newTestStore(t)

	var events []ChangeKind
	s.OnChange(func(kind ChangeKind, projectID string) {
		events = append(events, kind)
	})

	p, err := s.CreateProject("events", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	want := []ChangeKind{ChangeCreated, ChangeUpdated, ChangeDeleted}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestProjectJSON_StableShape(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject("shape", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.ProjectDir(p.ID), "project.json"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("project.json is not valid JSON: %v", err)
	}
	for _, key := range []string{"id", "name", "created", "modified", "sessions"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("project.json missing key %q", key)
		}
	}
}
