package ocr

import (
	"fmt"
	"strings"

	"github.com/snapocr/snapocr/internal/model"
)

// DisplayMode selects how OCR text is rendered for display and CSV export.
type DisplayMode string

const (
	ModeContinuous DisplayMode = "continuous"
	ModeLines      DisplayMode = "lines"
	ModeStructured DisplayMode = "structured"
	ModeJSON       DisplayMode = "json"
)

// ParseDisplayMode validates a mode string at the boundary. Unknown values
// default to continuous.
func ParseDisplayMode(s string) DisplayMode {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLines:
		return ModeLines
	case ModeStructured:
		return ModeStructured
	case ModeJSON:
		return ModeJSON
	default:
		return ModeContinuous
	}
}

// FormatText renders an OCR result in the given display mode. Blank source
// text yields an empty string regardless of mode.
func FormatText(result *model.OCRResult, mode DisplayMode) string {
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return ""
	}

	switch mode {
	case ModeLines:
		// "Orders, Total Sales, $113,506.58"
		var parts []string
		for _, line := range result.Lines {
			text := strings.TrimSpace(line.Text)
			if text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, ", ")

	case ModeStructured:
		// "[1] Orders\n[2] Total Sales\n[3] $113,506.58"
		var parts []string
		for _, line := range result.Lines {
			text := strings.TrimSpace(line.Text)
			if text != "" {
				parts = append(parts, fmt.Sprintf("[%d] %s", line.LineNumber+1, text))
			}
		}
		return strings.Join(parts, "\n")

	case ModeJSON:
		// ["Orders", "Total Sales", "$113,506.58"]
		var parts []string
		for _, line := range result.Lines {
			text := strings.TrimSpace(line.Text)
			if text != "" {
				parts = append(parts, `"`+strings.ReplaceAll(text, `"`, `\"`)+`"`)
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"

	default:
		return strings.TrimSpace(result.Text)
	}
}

// CombineFormatted formats each result independently, drops blanks, and
// joins the distinct renderings with ", " for multi-capture display.
func CombineFormatted(results []*model.OCRResult, mode DisplayMode) string {
	var parts []string
	seen := make(map[string]bool)
	for _, r := range results {
		text := FormatText(r, mode)
		if strings.TrimSpace(text) == "" || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}
	return strings.Join(parts, ", ")
}
