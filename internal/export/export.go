// Package export serializes projects to interchange formats. Exporters
// share the Options knobs; each format decides which knobs apply.
package export

import (
	"time"

	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/ocr"
)

// Options controls what an export includes. It is recorded verbatim in the
// JSON export envelope.
type Options struct {
	// IncludeOCR emits recognized text and confidence per capture.
	IncludeOCR bool `json:"include_ocr"`
	// IncludeBoundingBoxes emits line geometry plus layout analysis.
	// JSON only; CSV ignores it.
	IncludeBoundingBoxes bool `json:"include_bounding_boxes"`
	// IncludeMetadata emits template metadata (and legacy key/value
	// metadata where present).
	IncludeMetadata bool `json:"include_metadata"`
	// IncludeThumbnails embeds thumbnail images as base64. JSON only.
	IncludeThumbnails bool `json:"include_thumbnails"`
	// Compress gzips the output. JSON only.
	Compress bool `json:"compress"`
	// OCRTextFormat selects how multi-line OCR text is flattened.
	OCRTextFormat ocr.DisplayMode `json:"ocr_text_format"`
}

// DefaultOptions includes OCR text and metadata but no geometry, thumbnails,
// or compression.
func DefaultOptions() Options {
	return Options{
		IncludeOCR:      true,
		IncludeMetadata: true,
		OCRTextFormat:   ocr.ModeContinuous,
	}
}

// Result reports what an export produced.
type Result struct {
	Success          bool          `json:"success"`
	Path             string        `json:"path,omitempty"`
	CapturesExported int           `json:"captures_exported"`
	FileSizeBytes    int64         `json:"file_size_bytes,omitempty"`
	Duration         time.Duration `json:"duration_ns,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
}

// Exporter writes one project (optionally restricted to one session) to a
// file at path.
type Exporter interface {
	Export(p *model.Project, session *model.CaptureSession, path string, opts Options) (*Result, error)
	FileExtension() string
}

// sessionsToExport narrows the export to one session when given, otherwise
// all sessions.
func sessionsToExport(p *model.Project, session *model.CaptureSession) []*model.CaptureSession {
	if session != nil {
		return []*model.CaptureSession{session}
	}
	return p.Sessions
}

// incompleteWarning returns a warning when any exported capture has not
// completed OCR, or "" when all are done.
func incompleteWarning(sessions []*model.CaptureSession) string {
	for _, s := range sessions {
		for _, c := range s.Captures {
			if c.Status != model.StatusCompleted {
				return "export contains captures without completed OCR results"
			}
		}
	}
	return ""
}
