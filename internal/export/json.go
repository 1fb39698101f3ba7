package export

import (
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/layout"
	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/ocr"
)

// JSONExporter writes the full project graph as an indented JSON document.
// With Compress it gzips the stream and the file gets a .json.gz extension.
type JSONExporter struct {
	// AppVersion is stamped into the export envelope.
	AppVersion string
}

// FileExtension implements Exporter.
func (e *JSONExporter) FileExtension() string { return "json" }

type jsonEnvelope struct {
	ExportInfo jsonExportInfo `json:"export_info"`
	Project    jsonProject    `json:"project"`
}

type jsonExportInfo struct {
	ExportedAt time.Time `json:"exported_at"`
	AppVersion string    `json:"app_version"`
	Format     string    `json:"format"`
	Options    Options   `json:"options"`
}

type jsonProject struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Created     time.Time     `json:"created"`
	Modified    time.Time     `json:"modified"`
	Sessions    []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Created  time.Time     `json:"created"`
	Notes    string        `json:"notes,omitempty"`
	Captures []jsonCapture `json:"captures"`
}

type jsonCapture struct {
	ID               string                 `json:"id"`
	SequenceNumber   int                    `json:"sequence_number"`
	FileName         string                 `json:"file_name"`
	FilePath         string                 `json:"file_path"`
	Timestamp        time.Time              `json:"timestamp"`
	Status           model.CaptureStatus    `json:"status"`
	OCR              *jsonOCR               `json:"ocr,omitempty"`
	Layout           *layout.Analysis       `json:"layout,omitempty"`
	TemplateMetadata *model.CaptureMetadata `json:"template_metadata,omitempty"`
	Metadata         map[string]string      `json:"metadata,omitempty"`
	ThumbnailBase64  string                 `json:"thumbnail_base64,omitempty"`
}

type jsonOCR struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	EngineName string          `json:"engine_name"`
	Lines      []model.OCRLine `json:"lines,omitempty"`
}

// Export implements Exporter.
func (e *JSONExporter) Export(p *model.Project, session *model.CaptureSession, path string, opts Options) (*Result, error) {
	start := time.Now()
	sessions := sessionsToExport(p, session)
	result := &Result{}
	if w := incompleteWarning(sessions); w != "" {
		result.Warnings = append(result.Warnings, w)
	}

	env := jsonEnvelope{
		ExportInfo: jsonExportInfo{
			ExportedAt: time.Now().UTC(),
			AppVersion: e.AppVersion,
			Format:     "json",
			Options:    opts,
		},
		Project: jsonProject{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Created:     p.Created,
			Modified:    p.Modified,
		},
	}

	for _, s := range sessions {
		js := jsonSession{ID: s.ID, Name: s.Name, Created: s.Created, Notes: s.Notes, Captures: []jsonCapture{}}
		for _, c := range s.Captures {
			jc := jsonCapture{
				ID:             c.ID,
				SequenceNumber: c.SequenceNumber,
				FileName:       c.FileName,
				FilePath:       c.FilePath,
				Timestamp:      c.Timestamp,
				Status:         c.Status,
			}
			if opts.IncludeOCR && c.OCRResult != nil {
				jc.OCR = &jsonOCR{
					Text:       ocr.FormatText(c.OCRResult, opts.OCRTextFormat),
					Confidence: c.OCRResult.Confidence,
					EngineName: c.OCRResult.EngineName,
				}
				if opts.IncludeBoundingBoxes {
					jc.OCR.Lines = c.OCRResult.Lines
					a := layout.Analyze(c.OCRResult)
					jc.Layout = &a
				}
			}
			if opts.IncludeMetadata {
				jc.TemplateMetadata = c.TemplateMetadata
				jc.Metadata = c.Metadata
			}
			if opts.IncludeThumbnails && c.ThumbnailPath != "" {
				// Unreadable thumbnails are silently skipped.
				if data, err := os.ReadFile(c.ThumbnailPath); err == nil {
					jc.ThumbnailBase64 = base64.StdEncoding.EncodeToString(data)
				}
			}
			js.Captures = append(js.Captures, jc)
			result.CapturesExported++
		}
		env.Project.Sessions = append(env.Project.Sessions, js)
	}

	outPath := path
	if opts.Compress {
		// Replace whatever extension was requested, so out.dat becomes
		// out.json.gz rather than out.dat.json.gz.
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".json.gz"
	}

	f, err := os.Create(outPath)
	if err != nil {
		return failedResult(result, err), errors.NewExportFailed(err)
	}
	defer f.Close()

	if opts.Compress {
		gz := gzip.NewWriter(f)
		enc := json.NewEncoder(gz)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			gz.Close()
			return failedResult(result, err), errors.NewExportFailed(err)
		}
		if err := gz.Close(); err != nil {
			return failedResult(result, err), errors.NewExportFailed(err)
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return failedResult(result, err), errors.NewExportFailed(err)
		}
	}

	if info, err := os.Stat(outPath); err == nil {
		result.FileSizeBytes = info.Size()
	}
	result.Success = true
	result.Path = outPath
	result.Duration = time.Since(start)
	return result, nil
}

func failedResult(r *Result, err error) *Result {
	r.Success = false
	r.ErrorMessage = err.Error()
	return r
}
