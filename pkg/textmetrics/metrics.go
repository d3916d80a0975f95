// Package textmetrics approximates rendered text extent without a full
// text-shaping backend.
//
// The heuristic model derives an average character width from the font size
// and weight class, which is accurate enough for zone sizing while staying
// deterministic and dependency-free. Callers that need true font metrics can
// plug in the OpenType backend (see opentype.go); both satisfy the same
// Backend contract, and the layout engine depends only on that contract.
package textmetrics

import (
	"math"
	"unicode/utf8"
)

// Character width ratios relative to font size.
const (
	charWidthRegular = 0.55
	charWidthBold    = 0.65

	// lineHeightRatio is the vertical advance per line relative to font size.
	lineHeightRatio = 1.4

	// boldWeightThreshold is the lowest numeric weight treated as bold-class.
	boldWeightThreshold = 600
)

// Measurement is the computed extent of a text run.
type Measurement struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
	Lines  int     `json:"lines" bson:"lines"`
}

// Backend measures text extent. Implementations must be deterministic for
// identical inputs; the layout engine's idempotency depends on it.
type Backend interface {
	// Measure returns the extent of text at the given font size, wrapped
	// against maxWidth. A non-positive maxWidth disables wrapping.
	Measure(text string, fontSize, maxWidth float64, fontWeight int) Measurement
}

// Heuristic is the character-count measurement backend.
// The zero value is ready to use.
type Heuristic struct{}

// Measure implements Backend using the average-character-width model.
func (Heuristic) Measure(text string, fontSize, maxWidth float64, fontWeight int) Measurement {
	avg := charWidthRegular
	if fontWeight >= boldWeightThreshold {
		avg = charWidthBold
	}

	rawWidth := float64(utf8.RuneCountInString(text)) * fontSize * avg

	lines := 1
	if maxWidth > 0 {
		lines = int(math.Ceil(rawWidth / maxWidth))
		if lines < 1 {
			lines = 1
		}
	}

	width := rawWidth
	if lines > 1 {
		width = maxWidth
	}

	return Measurement{
		Width:  width,
		Height: float64(lines) * fontSize * lineHeightRatio,
		Lines:  lines,
	}
}

// Default returns the default measurement backend.
func Default() Backend {
	return Heuristic{}
}
