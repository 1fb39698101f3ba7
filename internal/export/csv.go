package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/ocr"
)

// CSVExporter writes one row per capture. Template field columns are the
// union of field names across all exported captures, sorted alphabetically,
// so every row has the same width.
type CSVExporter struct{}

// FileExtension implements Exporter.
func (e *CSVExporter) FileExtension() string { return "csv" }

// Export implements Exporter. IncludeBoundingBoxes, IncludeThumbnails and
// Compress are ignored; CSV is flat text.
func (e *CSVExporter) Export(p *model.Project, session *model.CaptureSession, path string, opts Options) (*Result, error) {
	start := time.Now()
	sessions := sessionsToExport(p, session)
	result := &Result{}
	if w := incompleteWarning(sessions); w != "" {
		result.Warnings = append(result.Warnings, w)
	}

	fieldCols := e.fieldColumns(sessions, opts)

	header := []string{"Project", "Session", "Sequence", "FileName", "FilePath", "Timestamp", "Status"}
	if opts.IncludeOCR {
		header = append(header, "OCR_Text", "OCR_Confidence", "OCR_EngineName", "OCR_WordCount", "OCR_LineCount")
	}
	if opts.IncludeMetadata {
		header = append(header, "Template_Name")
		for _, name := range fieldCols {
			header = append(header, "Field_"+name)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return failedResult(result, err), errors.NewExportFailed(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return failedResult(result, err), errors.NewExportFailed(err)
	}

	for _, s := range sessions {
		for _, c := range s.Captures {
			row := []string{
				p.Name,
				s.Name,
				fmt.Sprintf("%d", c.SequenceNumber),
				c.FileName,
				c.FilePath,
				c.Timestamp.Format(time.RFC3339),
				string(c.Status),
			}
			if opts.IncludeOCR {
				row = append(row, e.ocrColumns(c, opts)...)
			}
			if opts.IncludeMetadata {
				row = append(row, e.metadataColumns(c, fieldCols)...)
			}
			if err := w.Write(row); err != nil {
				return failedResult(result, err), errors.NewExportFailed(err)
			}
			result.CapturesExported++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return failedResult(result, err), errors.NewExportFailed(err)
	}

	if info, err := os.Stat(path); err == nil {
		result.FileSizeBytes = info.Size()
	}
	result.Success = true
	result.Path = path
	result.Duration = time.Since(start)
	return result, nil
}

// fieldColumns collects the union of template field names (and legacy
// metadata keys for captures without a template) across the export.
func (e *CSVExporter) fieldColumns(sessions []*model.CaptureSession, opts Options) []string {
	if !opts.IncludeMetadata {
		return nil
	}
	set := map[string]bool{}
	for _, s := range sessions {
		for _, c := range s.Captures {
			if c.TemplateMetadata != nil {
				for name := range c.TemplateMetadata.Values {
					set[name] = true
				}
			} else {
				for name := range c.Metadata {
					set[name] = true
				}
			}
		}
	}
	cols := make([]string, 0, len(set))
	for name := range set {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

func (e *CSVExporter) ocrColumns(c *model.ScreenCapture, opts Options) []string {
	if c.OCRResult == nil {
		return []string{"", "", "", "", ""}
	}
	r := c.OCRResult
	return []string{
		ocr.FormatText(r, opts.OCRTextFormat),
		fmt.Sprintf("%.4f", r.Confidence),
		r.EngineName,
		fmt.Sprintf("%d", len(strings.Fields(r.Text))),
		fmt.Sprintf("%d", len(r.Lines)),
	}
}

func (e *CSVExporter) metadataColumns(c *model.ScreenCapture, fieldCols []string) []string {
	row := make([]string, 0, len(fieldCols)+1)
	var values map[string]string
	templateName := ""
	if c.TemplateMetadata != nil {
		templateName = c.TemplateMetadata.TemplateName
		values = c.TemplateMetadata.Values
	} else {
		values = c.Metadata
	}
	row = append(row, templateName)
	for _, name := range fieldCols {
		row = append(row, values[name])
	}
	return row
}
