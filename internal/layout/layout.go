// Package layout computes spatial relationships between recognized OCR
// lines. Its output enriches JSON export only; nothing branches on it.
package layout

import (
	"github.com/snapocr/snapocr/internal/model"
)

// Analysis is the layout of a full OCR result.
type Analysis struct {
	CanvasBounds model.BoundingBox `json:"canvas_bounds"`
	Lines        []LineAnalysis    `json:"lines"`
}

// LineAnalysis describes one line's position relative to its predecessor.
// RelativePosition is empty for the first line. VerticalGap is the distance
// from the predecessor's bottom edge to this line's top edge and may be
// negative when lines overlap.
type LineAnalysis struct {
	LineNumber       int               `json:"line_number"`
	Text             string            `json:"text"`
	BoundingBox      model.BoundingBox `json:"bounding_box"`
	RelativePosition string            `json:"relative_position,omitempty"`
	VerticalGap      int               `json:"vertical_gap"`
}

// Analyze computes the canvas bounds and per-line spatial relationships.
func Analyze(result *model.OCRResult) Analysis {
	var analysis Analysis
	if result == nil || len(result.Lines) == 0 {
		return analysis
	}

	analysis.CanvasBounds = canvasBounds(result.Lines)

	for i, line := range result.Lines {
		la := LineAnalysis{
			LineNumber:  line.LineNumber,
			Text:        line.Text,
			BoundingBox: line.BoundingBox,
		}
		if i > 0 {
			prev := result.Lines[i-1].BoundingBox
			la.RelativePosition = relativePosition(prev, line.BoundingBox)
			la.VerticalGap = line.BoundingBox.Y - prev.Bottom()
		}
		analysis.Lines = append(analysis.Lines, la)
	}

	return analysis
}

// relativePosition classifies target's center against reference's center.
// Vertical dominance gives below/above, with an "-offset" suffix when the
// horizontal shift exceeds a quarter of the reference width; horizontal
// dominance gives right/left, with a "diagonal-" prefix when the vertical
// shift exceeds half the reference height.
func relativePosition(reference, target model.BoundingBox) string {
	refCenterX := reference.X + reference.Width/2
	refCenterY := reference.Y + reference.Height/2
	targetCenterX := target.X + target.Width/2
	targetCenterY := target.Y + target.Height/2

	verticalDiff := targetCenterY - refCenterY
	horizontalDiff := targetCenterX - refCenterX

	if abs(verticalDiff) > abs(horizontalDiff) {
		if verticalDiff > 0 {
			if abs(horizontalDiff) < reference.Width/4 {
				return "below"
			}
			return "below-offset"
		}
		if abs(horizontalDiff) < reference.Width/4 {
			return "above"
		}
		return "above-offset"
	}

	if horizontalDiff > 0 {
		if abs(verticalDiff) < reference.Height/2 {
			return "right"
		}
		return "diagonal-right"
	}
	if abs(verticalDiff) < reference.Height/2 {
		return "left"
	}
	return "diagonal-left"
}

// canvasBounds is the union of all line bounding boxes.
func canvasBounds(lines []model.OCRLine) model.BoundingBox {
	minX, minY := lines[0].BoundingBox.X, lines[0].BoundingBox.Y
	maxX, maxY := lines[0].BoundingBox.Right(), lines[0].BoundingBox.Bottom()
	for _, l := range lines[1:] {
		b := l.BoundingBox
		if b.X < minX {
			minX = b.X
		}
		if b.Y < minY {
			minY = b.Y
		}
		if b.Right() > maxX {
			maxX = b.Right()
		}
		if b.Bottom() > maxY {
			maxY = b.Bottom()
		}
	}
	return model.BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
