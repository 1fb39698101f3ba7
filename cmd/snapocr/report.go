package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/ocr"
)

// imageExtensions are the file types batch OCR picks up.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tiff": true, ".tif": true,
}

// batchReport summarizes one batch OCR run over a directory.
type batchReport struct {
	Directory string      `json:"directory" yaml:"directory"`
	StartedAt time.Time   `json:"started_at" yaml:"started_at"`
	Duration  string      `json:"duration" yaml:"duration"`
	Processed int         `json:"processed" yaml:"processed"`
	Failed    int         `json:"failed" yaml:"failed"`
	Items     []batchItem `json:"items" yaml:"items"`
}

type batchItem struct {
	File       string  `json:"file" yaml:"file"`
	Text       string  `json:"text,omitempty" yaml:"text,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Words      int     `json:"words" yaml:"words"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// runBatch recognizes every image file directly under dir, in name order.
// Per-file failures are recorded in the report and do not abort the run.
func runBatch(ctx context.Context, engine ocr.Engine, dir string) (*batchReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot read directory: %v", err))
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, errors.NewInvalidRequest("no image files found")
	}

	report := &batchReport{
		Directory: dir,
		StartedAt: time.Now(),
	}
	start := time.Now()
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := batchItem{File: name}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			item.Error = err.Error()
			report.Failed++
			report.Items = append(report.Items, item)
			continue
		}
		result, err := engine.Recognize(ctx, data)
		if err != nil {
			item.Error = err.Error()
			report.Failed++
		} else {
			item.Text = result.Text
			item.Confidence = result.Confidence
			item.Words = len(strings.Fields(result.Text))
			report.Processed++
		}
		report.Items = append(report.Items, item)
	}
	report.Duration = time.Since(start).Round(time.Millisecond).String()
	return report, nil
}

// reportExtension maps a report format to its file extension.
func reportExtension(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return "yaml"
	case "markdown", "md":
		return "md"
	case "csv":
		return "csv"
	case "text", "txt":
		return "txt"
	default:
		return "json"
	}
}

// writeReport renders the report in the requested format.
func writeReport(report *batchReport, path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewExportFailed(err)
	}
	defer f.Close()

	switch strings.ToLower(format) {
	case "json", "":
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml", "yml":
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(report)
	case "markdown", "md":
		return writeMarkdownReport(f, report)
	case "csv":
		return writeCSVReport(f, report)
	case "text", "txt":
		return writeTextReport(f, report)
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unsupported report format: %s", format))
	}
}

func writeMarkdownReport(f *os.File, report *batchReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# OCR Batch Report\n\n")
	fmt.Fprintf(&b, "- Directory: `%s`\n", report.Directory)
	fmt.Fprintf(&b, "- Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", report.Duration)
	fmt.Fprintf(&b, "- Processed: %d, Failed: %d\n\n", report.Processed, report.Failed)
	fmt.Fprintf(&b, "| File | Confidence | Words | Error |\n")
	fmt.Fprintf(&b, "|------|-----------:|------:|-------|\n")
	for _, item := range report.Items {
		fmt.Fprintf(&b, "| %s | %.2f | %d | %s |\n", item.File, item.Confidence, item.Words, item.Error)
	}
	_, err := f.WriteString(b.String())
	return err
}

func writeCSVReport(f *os.File, report *batchReport) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"File", "Confidence", "Words", "Text", "Error"}); err != nil {
		return err
	}
	for _, item := range report.Items {
		row := []string{
			item.File,
			fmt.Sprintf("%.4f", item.Confidence),
			fmt.Sprintf("%d", item.Words),
			item.Text,
			item.Error,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeTextReport(f *os.File, report *batchReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "OCR batch report for %s\n", report.Directory)
	fmt.Fprintf(&b, "Processed %d, failed %d in %s\n\n", report.Processed, report.Failed, report.Duration)
	for _, item := range report.Items {
		if item.Error != "" {
			fmt.Fprintf(&b, "%s: FAILED (%s)\n", item.File, item.Error)
			continue
		}
		fmt.Fprintf(&b, "%s: %d words, confidence %.2f\n", item.File, item.Words, item.Confidence)
	}
	_, err := f.WriteString(b.String())
	return err
}
