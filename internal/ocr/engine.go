// Package ocr defines the recognition engine contract and text formatting.
package ocr

import (
	"context"
	"fmt"

	"github.com/snapocr/snapocr/internal/config"
	"github.com/snapocr/snapocr/internal/model"
)

// Engine recognizes text in a raster image. Implementations are not assumed
// to be safe for concurrent calls; the pipeline worker guarantees at most
// one Recognize call is in flight at a time. A zero-confidence, empty-text
// result is a valid response for a blank image, not an error.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (*model.OCRResult, error)
	Available() bool
}

// NewEngine constructs the engine selected by config.
func NewEngine(cfg config.OCRSettings) (Engine, error) {
	switch cfg.Engine {
	case "tesseract", "":
		return NewTesseract(cfg.Languages), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
