package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/snapocr/snapocr/internal/model"
)

func completedCapture(ts time.Time, confidence float64, text string, lines int) *model.ScreenCapture {
	result := &model.OCRResult{Text: text, Confidence: confidence, EngineName: "tesseract"}
	for i := 0; i < lines; i++ {
		result.Lines = append(result.Lines, model.OCRLine{LineNumber: i})
	}
	return &model.ScreenCapture{
		ID:        model.NewID(),
		Timestamp: ts,
		Status:    model.StatusCompleted,
		OCRResult: result,
	}
}

func TestCalculateProject(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	p := &model.Project{
		Sessions: []*model.CaptureSession{
			{
				Captures: []*model.ScreenCapture{
					completedCapture(base, 0.95, "one two three", 2),
					completedCapture(base.Add(time.Hour), 0.80, "four five", 1),
					{ID: "f", Timestamp: base.Add(2 * time.Hour), Status: model.StatusFailed},
				},
			},
			{
				Captures: []*model.ScreenCapture{
					completedCapture(base.Add(3*time.Hour), 0.50, "six", 1),
					{ID: "p", Timestamp: base.Add(-time.Hour), Status: model.StatusCaptured},
				},
			},
		},
	}

	d := CalculateProject(p)
	if d.TotalCaptures != 5 {
		t.Errorf("TotalCaptures = %d, want 5", d.TotalCaptures)
	}
	if d.StatusCounts[model.StatusCompleted] != 3 || d.StatusCounts[model.StatusFailed] != 1 || d.StatusCounts[model.StatusCaptured] != 1 {
		t.Errorf("StatusCounts = %v", d.StatusCounts)
	}
	if d.Confidence.High != 1 || d.Confidence.Medium != 1 || d.Confidence.Low != 1 {
		t.Errorf("buckets = %+v, want 1/1/1", d.Confidence)
	}
	wantPct := 100.0 / 3
	for name, got := range map[string]float64{
		"HighPct":   d.Confidence.HighPct,
		"MediumPct": d.Confidence.MediumPct,
		"LowPct":    d.Confidence.LowPct,
	} {
		if got < wantPct-0.01 || got > wantPct+0.01 {
			t.Errorf("%s = %.2f, want %.2f", name, got, wantPct)
		}
	}
	if d.TotalWords != 6 {
		t.Errorf("TotalWords = %d, want 6", d.TotalWords)
	}
	if d.TotalLines != 4 {
		t.Errorf("TotalLines = %d, want 4", d.TotalLines)
	}
	if !d.Earliest.Equal(base.Add(-time.Hour)) {
		t.Errorf("Earliest = %v", d.Earliest)
	}
	if !d.Latest.Equal(base.Add(3 * time.Hour)) {
		t.Errorf("Latest = %v", d.Latest)
	}
	if d.SuccessRate != 60 {
		t.Errorf("SuccessRate = %.1f, want 60.0", d.SuccessRate)
	}
	if d.EngineUsage["tesseract"] != 3 {
		t.Errorf("EngineUsage = %v, want tesseract=3", d.EngineUsage)
	}
}

func TestCalculate_BucketBoundaries(t *testing.T) {
	ts := time.Now()
	s := &model.CaptureSession{
		Captures: []*model.ScreenCapture{
			completedCapture(ts, 0.90, "a", 1), // high, inclusive
			completedCapture(ts, 0.89, "b", 1), // medium
			completedCapture(ts, 0.70, "c", 1), // medium, inclusive
			completedCapture(ts, 0.69, "d", 1), // low
		},
	}
	d := CalculateSession(s)
	if d.Confidence.High != 1 {
		t.Errorf("High = %d, want 1", d.Confidence.High)
	}
	if d.Confidence.Medium != 2 {
		t.Errorf("Medium = %d, want 2", d.Confidence.Medium)
	}
	if d.Confidence.Low != 1 {
		t.Errorf("Low = %d, want 1", d.Confidence.Low)
	}
}

func TestCalculate_Empty(t *testing.T) {
	d := CalculateSession(&model.CaptureSession{})
	if d.TotalCaptures != 0 || d.SuccessRate != 0 || d.Confidence.Average != 0 {
		t.Errorf("empty analytics = %+v", d)
	}
	if !d.Earliest.IsZero() {
		t.Errorf("Earliest = %v, want zero", d.Earliest)
	}
}

func TestCalculate_CompletedWithoutResultIgnored(t *testing.T) {
	// Should not happen in practice, but must not panic or skew stats.
	s := &model.CaptureSession{
		Captures: []*model.ScreenCapture{
			{ID: "x", Status: model.StatusCompleted},
		},
	}
	d := CalculateSession(s)
	if d.Confidence.High+d.Confidence.Medium+d.Confidence.Low != 0 {
		t.Errorf("buckets counted a result-less capture: %+v", d.Confidence)
	}
}

func TestSummary(t *testing.T) {
	ts := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	s := &model.CaptureSession{
		Captures: []*model.ScreenCapture{completedCapture(ts, 0.95, "hello world", 1)},
	}
	out := CalculateSession(s).Summary()
	for _, want := range []string{"Captures: 1", "completed=1", "high=1", "2 words"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}
