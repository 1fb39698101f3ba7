// Package capture acquires screen images and writes them to a project's
// capture directory. Coordinates are absolute virtual-screen coordinates,
// which may be negative in multi-display setups.
package capture

import (
	"image"
	"time"
)

// Region is a screen rectangle in virtual-screen coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the region has positive dimensions.
func (r Region) Valid() bool { return r.Width > 0 && r.Height > 0 }

// Result is one acquired screen image.
type Result struct {
	Image     *image.RGBA
	Region    Region
	Timestamp time.Time
}

// Capturer acquires screen content. Implementations must be safe to call
// repeatedly from one goroutine.
type Capturer interface {
	// CaptureFullScreen grabs the entire virtual screen across all
	// displays.
	CaptureFullScreen() (*Result, error)
	// CaptureRegion grabs a fixed rectangle.
	CaptureRegion(r Region) (*Result, error)
	// DisplayCount reports the number of attached displays.
	DisplayCount() int
}
