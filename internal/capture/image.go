package capture

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapocr/snapocr/internal/config"
)

// thumbnailWidth is the target width for generated thumbnails; height
// follows the source aspect ratio.
const thumbnailWidth = 200

// Extension returns the file extension for the configured image format.
func Extension(cfg config.CaptureSettings) string {
	if strings.EqualFold(cfg.ImageFormat, "jpg") || strings.EqualFold(cfg.ImageFormat, "jpeg") {
		return "jpg"
	}
	return "png"
}

// SaveImage encodes img to path using the configured format. The directory
// is created if needed.
func SaveImage(img image.Image, path string, cfg config.CaptureSettings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if Extension(cfg) == "jpg" {
		quality := cfg.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 95
		}
		return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	}
	return png.Encode(f, img)
}

// SaveThumbnail writes a small PNG preview next to the image as
// <base>_thumb.png and returns its path.
func SaveThumbnail(img image.Image, imagePath string) (string, error) {
	thumb := downscale(img, thumbnailWidth)
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	path := base + "_thumb.png"

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, thumb); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return path, nil
}

// downscale resizes with nearest-neighbor sampling. Thumbnails are preview
// quality only.
func downscale(src image.Image, width int) *image.RGBA {
	b := src.Bounds()
	if b.Dx() <= width {
		out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(x-b.Min.X, y-b.Min.Y, src.At(x, y))
			}
		}
		return out
	}

	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sy := b.Min.Y + y*b.Dy()/height
		for x := 0; x < width; x++ {
			sx := b.Min.X + x*b.Dx()/width
			out.Set(x, y, src.At(sx, sy))
		}
	}
	return out
}
