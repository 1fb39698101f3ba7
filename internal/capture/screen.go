package capture

import (
	stderrors "errors"
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/snapocr/snapocr/internal/errors"
)

var errNoDisplays = stderrors.New("no active displays")

// ScreenCapturer captures using the platform screenshot APIs.
type ScreenCapturer struct{}

// NewScreenCapturer returns the platform capturer.
func NewScreenCapturer() *ScreenCapturer { return &ScreenCapturer{} }

// DisplayCount implements Capturer.
func (s *ScreenCapturer) DisplayCount() int {
	return screenshot.NumActiveDisplays()
}

// virtualBounds is the union of all display bounds. The origin display
// starts at (0,0); displays left of or above it have negative coordinates.
func virtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, errors.NewCaptureFailed(errNoDisplays)
	}
	bounds := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	return bounds, nil
}

// CaptureFullScreen implements Capturer.
func (s *ScreenCapturer) CaptureFullScreen() (*Result, error) {
	bounds, err := virtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, errors.NewCaptureFailed(err)
	}
	return &Result{
		Image:     img,
		Region:    Region{X: bounds.Min.X, Y: bounds.Min.Y, Width: bounds.Dx(), Height: bounds.Dy()},
		Timestamp: time.Now(),
	}, nil
}

// CaptureRegion implements Capturer.
func (s *ScreenCapturer) CaptureRegion(r Region) (*Result, error) {
	if !r.Valid() {
		return nil, errors.NewInvalidRequest("capture region must have positive dimensions")
	}
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, errors.NewCaptureFailed(err)
	}
	return &Result{Image: img, Region: r, Timestamp: time.Now()}, nil
}
