// Package analytics computes summary statistics over projects and sessions.
// Everything is derived on demand from the capture graph; nothing here is
// persisted.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/snapocr/snapocr/internal/model"
)

// Confidence bucket boundaries. A completed capture is High at or above
// 0.9, Low below 0.7, Medium in between.
const (
	highConfidence = 0.9
	lowConfidence  = 0.7
)

// ConfidenceDistribution buckets completed captures by OCR confidence.
type ConfidenceDistribution struct {
	High      int     `json:"high"`
	Medium    int     `json:"medium"`
	Low       int     `json:"low"`
	HighPct   float64 `json:"high_pct"`
	MediumPct float64 `json:"medium_pct"`
	LowPct    float64 `json:"low_pct"`
	Average   float64 `json:"average"`
}

// Data is the computed analytics for a project or session.
type Data struct {
	TotalCaptures int                         `json:"total_captures"`
	StatusCounts  map[model.CaptureStatus]int `json:"status_counts"`
	Confidence    ConfidenceDistribution      `json:"confidence"`
	TotalWords    int                         `json:"total_words"`
	TotalLines    int                         `json:"total_lines"`
	EngineUsage   map[string]int              `json:"engine_usage,omitempty"`
	Earliest      time.Time                   `json:"earliest,omitempty"`
	Latest        time.Time                   `json:"latest,omitempty"`
	SuccessRate   float64                     `json:"success_rate"`
}

// CalculateProject computes analytics across every session in the project.
func CalculateProject(p *model.Project) *Data {
	var captures []*model.ScreenCapture
	for _, s := range p.Sessions {
		captures = append(captures, s.Captures...)
	}
	return calculate(captures)
}

// CalculateSession computes analytics for one session.
func CalculateSession(s *model.CaptureSession) *Data {
	return calculate(s.Captures)
}

func calculate(captures []*model.ScreenCapture) *Data {
	d := &Data{StatusCounts: map[model.CaptureStatus]int{}}
	d.TotalCaptures = len(captures)

	completed := 0
	confidenceSum := 0.0
	for _, c := range captures {
		d.StatusCounts[c.Status]++

		if d.Earliest.IsZero() || c.Timestamp.Before(d.Earliest) {
			d.Earliest = c.Timestamp
		}
		if c.Timestamp.After(d.Latest) {
			d.Latest = c.Timestamp
		}

		if c.Status != model.StatusCompleted || c.OCRResult == nil {
			continue
		}
		completed++
		r := c.OCRResult
		if r.EngineName != "" {
			if d.EngineUsage == nil {
				d.EngineUsage = map[string]int{}
			}
			d.EngineUsage[r.EngineName]++
		}
		confidenceSum += r.Confidence
		d.TotalWords += len(strings.Fields(r.Text))
		d.TotalLines += len(r.Lines)

		switch {
		case r.Confidence >= highConfidence:
			d.Confidence.High++
		case r.Confidence < lowConfidence:
			d.Confidence.Low++
		default:
			d.Confidence.Medium++
		}
	}

	if completed > 0 {
		d.Confidence.Average = confidenceSum / float64(completed)
		d.Confidence.HighPct = pct(d.Confidence.High, completed)
		d.Confidence.MediumPct = pct(d.Confidence.Medium, completed)
		d.Confidence.LowPct = pct(d.Confidence.Low, completed)
	}
	if d.TotalCaptures > 0 {
		d.SuccessRate = pct(completed, d.TotalCaptures)
	}
	return d
}

func pct(n, total int) float64 {
	return float64(n) / float64(total) * 100
}

// Summary renders the analytics as a short human-readable report.
func (d *Data) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Captures: %d (%.1f%% completed)\n", d.TotalCaptures, d.SuccessRate)
	fmt.Fprintf(&b, "Status: captured=%d processing=%d completed=%d failed=%d\n",
		d.StatusCounts[model.StatusCaptured],
		d.StatusCounts[model.StatusProcessing],
		d.StatusCounts[model.StatusCompleted],
		d.StatusCounts[model.StatusFailed])
	fmt.Fprintf(&b, "Confidence: high=%d (%.1f%%) medium=%d (%.1f%%) low=%d (%.1f%%) avg=%.2f\n",
		d.Confidence.High, d.Confidence.HighPct,
		d.Confidence.Medium, d.Confidence.MediumPct,
		d.Confidence.Low, d.Confidence.LowPct,
		d.Confidence.Average)
	fmt.Fprintf(&b, "Text: %d words across %d lines\n", d.TotalWords, d.TotalLines)
	if len(d.EngineUsage) > 0 {
		engines := make([]string, 0, len(d.EngineUsage))
		for name := range d.EngineUsage {
			engines = append(engines, name)
		}
		sort.Strings(engines)
		parts := make([]string, 0, len(engines))
		for _, name := range engines {
			parts = append(parts, fmt.Sprintf("%s=%d", name, d.EngineUsage[name]))
		}
		fmt.Fprintf(&b, "Engines: %s\n", strings.Join(parts, " "))
	}
	if !d.Earliest.IsZero() {
		fmt.Fprintf(&b, "Range: %s to %s\n",
			d.Earliest.Format(time.RFC3339), d.Latest.Format(time.RFC3339))
	}
	return b.String()
}
