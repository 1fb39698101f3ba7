// Package naming derives capture filenames from OCR content.
package naming

import (
	"fmt"
	"strings"
	"time"

	"github.com/snapocr/snapocr/internal/config"
	"github.com/snapocr/snapocr/internal/model"
)

// invalidChars are characters that cannot appear in a filename on any
// supported filesystem (the Windows set, which is the strictest).
const invalidChars = `<>:"/\|?*`

// GenerateSmartFilename derives a filename from the first OCR line, falling
// back to the configured pattern when smart naming is disabled, no OCR text
// exists, or sanitization leaves nothing. Deterministic for identical inputs.
func GenerateSmartFilename(result *model.OCRResult, timestamp time.Time, extension string, naming config.NamingSettings) string {
	if !naming.UseSmartFilenames || result == nil || strings.TrimSpace(result.Text) == "" {
		return fallbackName(timestamp, extension, naming)
	}

	var firstLine string
	if len(result.Lines) > 0 {
		firstLine = result.Lines[0].Text
	} else {
		lines := strings.FieldsFunc(result.Text, func(r rune) bool { return r == '\r' || r == '\n' })
		if len(lines) > 0 {
			firstLine = lines[0]
		} else {
			firstLine = result.Text
		}
	}

	sanitized := strings.ToLower(SanitizeFilename(strings.TrimSpace(firstLine)))
	// Truncate on runes so a multi-byte character is never split into
	// invalid UTF-8.
	if runes := []rune(sanitized); len(runes) > naming.SmartFilenameMaxLength {
		sanitized = string(runes[:naming.SmartFilenameMaxLength])
	}
	sanitized = strings.TrimRight(sanitized, "-_")

	if strings.TrimSpace(sanitized) == "" {
		return fallbackName(timestamp, extension, naming)
	}

	return fmt.Sprintf("%s_%s.%s", sanitized, timestamp.Format(naming.TimestampFormat), extension)
}

// InitialFilename expands the capture naming pattern for a freshly taken
// capture, before any OCR result exists.
func InitialFilename(timestamp time.Time, extension string, naming config.NamingSettings) string {
	name := strings.ReplaceAll(naming.Pattern, "{timestamp}", timestamp.Format(naming.TimestampFormat))
	name = strings.ReplaceAll(name, "{sequence}", fmt.Sprintf("%03d", timestamp.Nanosecond()/1e6))
	return name + "." + extension
}

// fallbackName expands the fallback pattern. {sequence} is the timestamp's
// millisecond component zero-padded to three digits.
func fallbackName(timestamp time.Time, extension string, naming config.NamingSettings) string {
	name := strings.ReplaceAll(naming.FallbackPattern, "{timestamp}", timestamp.Format(naming.TimestampFormat))
	name = strings.ReplaceAll(name, "{sequence}", fmt.Sprintf("%03d", timestamp.Nanosecond()/1e6))
	return name + "." + extension
}

// SanitizeFilename replaces filesystem-invalid characters with underscores
// and collapses runs of underscores and whitespace into a single underscore.
func SanitizeFilename(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	lastUnderscore := false
	for _, r := range input {
		switch {
		case r < 0x20 || strings.ContainsRune(invalidChars, r):
			r = '_'
		}
		if r == '_' || r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}
	return b.String()
}
