// Package model defines the project/session/capture object graph shared by
// the store, the OCR pipeline, and the exporters.
package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// CaptureStatus tracks a capture through the OCR pipeline.
// Transitions are Captured → Processing → {Completed, Failed}; a capture may
// be re-queued from any non-Processing state, which resets it to Processing.
type CaptureStatus string

const (
	StatusCaptured   CaptureStatus = "captured"
	StatusProcessing CaptureStatus = "processing"
	StatusCompleted  CaptureStatus = "completed"
	StatusFailed     CaptureStatus = "failed"
)

// Project is the top-level persisted unit. Id is immutable after creation;
// Modified is refreshed on every persisted mutation.
type Project struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Created        time.Time         `json:"created"`
	Modified       time.Time         `json:"modified"`
	ActiveTemplate string            `json:"active_template,omitempty"`
	SavePath       string            `json:"save_path"`
	Sessions       []*CaptureSession `json:"sessions"`
}

// TotalCaptures counts captures across all sessions.
func (p *Project) TotalCaptures() int {
	n := 0
	for _, s := range p.Sessions {
		n += len(s.Captures)
	}
	return n
}

// FindSession returns the session with the given id or name, or nil.
func (p *Project) FindSession(idOrName string) *CaptureSession {
	for _, s := range p.Sessions {
		if s.ID == idOrName || s.Name == idOrName {
			return s
		}
	}
	return nil
}

// CaptureSession groups related captures within a project. A session is owned
// by exactly one project.
type CaptureSession struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Created  time.Time        `json:"created"`
	Notes    string           `json:"notes,omitempty"`
	Captures []*ScreenCapture `json:"captures"`
}

// HasCapture reports whether the capture is still a member of this session.
// The worker uses this to drop completion updates for captures deleted while
// their item was in flight.
func (s *CaptureSession) HasCapture(id string) bool {
	for _, c := range s.Captures {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ScreenCapture is one saved screenshot plus its derived OCR state.
// SequenceNumber is assigned at insertion and never renumbered, so gaps are
// expected after deletions.
type ScreenCapture struct {
	ID               string            `json:"id"`
	SequenceNumber   int               `json:"sequence_number"`
	FileName         string            `json:"file_name"`
	FilePath         string            `json:"file_path"`
	Timestamp        time.Time         `json:"timestamp"`
	Status           CaptureStatus     `json:"status"`
	OCRResult        *OCRResult        `json:"ocr_result,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	TemplateMetadata *CaptureMetadata  `json:"template_metadata,omitempty"`
	ThumbnailPath    string            `json:"thumbnail_path,omitempty"`
}

// SetResult attaches an OCR result and flips the status to Completed in one
// step, so a concurrent reader never observes Completed without a result.
func (c *ScreenCapture) SetResult(r *OCRResult) {
	c.OCRResult = r
	c.Status = StatusCompleted
}

// OCRResult holds everything a recognition pass produced. It is immutable
// once attached to a capture; re-processing replaces it wholesale.
type OCRResult struct {
	Text         string        `json:"text"`
	Confidence   float64       `json:"confidence"`
	EngineName   string        `json:"engine_name"`
	Duration     time.Duration `json:"duration_ns"`
	Lines        []OCRLine     `json:"lines,omitempty"`
	FallbackUsed bool          `json:"fallback_used,omitempty"`
}

// OCRLine is a single recognized line with its layout.
type OCRLine struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	LineNumber  int         `json:"line_number"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Words       []OCRWord   `json:"words,omitempty"`
}

// OCRWord is a single recognized word with its bounding box.
type OCRWord struct {
	Text        string      `json:"text"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// BoundingBox is a pixel rectangle in image coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the rightmost edge.
func (b BoundingBox) Right() int { return b.X + b.Width }

// Bottom returns the bottommost edge.
func (b BoundingBox) Bottom() int { return b.Y + b.Height }

// CaptureMetadata is an applied template instance: a snapshot of the template
// identity plus the entered values. Reapplying replaces it wholesale.
type CaptureMetadata struct {
	TemplateID   string            `json:"template_id"`
	TemplateName string            `json:"template_name"`
	Values       map[string]string `json:"values"`
	AppliedAt    time.Time         `json:"applied_at"`
}

// LockedRegion is a fixed screen rectangle reused by continuous capture mode.
// It exists only while continuous mode is active.
type LockedRegion struct {
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	LockedAt     time.Time `json:"locked_at"`
	CaptureCount int       `json:"capture_count"`
}

// Valid reports whether the region has positive dimensions.
func (r *LockedRegion) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// NewID generates a new ULID for project/session/capture/template identity.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
