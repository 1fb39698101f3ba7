package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/snapocr/snapocr/internal/model"
)

// Tesseract recognizes text with a local Tesseract installation. Each call
// uses a fresh client; gosseract clients are cheap and not goroutine-safe.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract engine for the given languages
// (Tesseract codes such as "eng"; empty means the installation default).
func NewTesseract(languages []string) *Tesseract {
	return &Tesseract{languages: languages}
}

// Name implements Engine.
func (t *Tesseract) Name() string { return "tesseract" }

// Available reports whether a usable Tesseract installation was found.
func (t *Tesseract) Available() bool {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version() != ""
}

// Recognize implements Engine. Line and word geometry comes from Tesseract's
// iterator levels; when that fails the raw text is split into lines without
// geometry and FallbackUsed is set.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (*model.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}

	result := &model.OCRResult{
		Text:       text,
		EngineName: t.Name(),
	}

	lineBoxes, lineErr := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if lineErr != nil || len(lineBoxes) == 0 {
		result.Lines = linesFromText(text)
		result.FallbackUsed = true
		result.Confidence = heuristicConfidence(text)
		result.Duration = time.Since(start)
		return result, nil
	}

	wordBoxes, _ := client.GetBoundingBoxes(gosseract.RIL_WORD)

	sum := 0.0
	for i, lb := range lineBoxes {
		line := model.OCRLine{
			Text:       strings.TrimRight(lb.Word, "\n"),
			Confidence: lb.Confidence / 100,
			LineNumber: i,
			BoundingBox: model.BoundingBox{
				X:      lb.Box.Min.X,
				Y:      lb.Box.Min.Y,
				Width:  lb.Box.Dx(),
				Height: lb.Box.Dy(),
			},
		}
		for _, wb := range wordBoxes {
			if wb.Box.In(lb.Box) || wb.Box.Intersect(lb.Box) == wb.Box {
				line.Words = append(line.Words, model.OCRWord{
					Text: wb.Word,
					BoundingBox: model.BoundingBox{
						X:      wb.Box.Min.X,
						Y:      wb.Box.Min.Y,
						Width:  wb.Box.Dx(),
						Height: wb.Box.Dy(),
					},
				})
			}
		}
		sum += line.Confidence
		result.Lines = append(result.Lines, line)
	}

	result.Confidence = sum / float64(len(result.Lines))
	result.Duration = time.Since(start)
	return result, nil
}

// linesFromText builds geometry-free lines from raw recognized text.
func linesFromText(text string) []model.OCRLine {
	var lines []model.OCRLine
	n := 0
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, model.OCRLine{Text: raw, LineNumber: n})
		n++
	}
	return lines
}

// heuristicConfidence estimates confidence from text quality when Tesseract
// provides no per-line confidences. Capped at 0.85.
func heuristicConfidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	confidence := 0.5
	if len(text) > 1000 {
		confidence += 0.1
	}
	if len(text) > 5000 {
		confidence += 0.1
	}
	if len(strings.Fields(text)) > 100 {
		confidence += 0.1
	}

	alpha := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alpha++
		}
	}
	ratio := float64(alpha) / float64(len(text))
	if ratio > 0.5 && ratio < 0.9 {
		confidence += 0.1
	}

	if confidence > 0.85 {
		confidence = 0.85
	}
	return confidence
}
