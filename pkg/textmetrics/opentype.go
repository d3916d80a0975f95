package textmetrics

import (
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// OpenType is a measurement backend backed by real font metrics.
//
// It parses a TTF/OTF font once and measures with x/image advance widths.
// Any failure (unreadable font, face creation error) silently falls back to
// the heuristic backend so that measurement never becomes a hard error.
type OpenType struct {
	font     *opentype.Font
	fallback Heuristic

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// NewOpenType parses font data into a measurement backend.
func NewOpenType(data []byte) (*OpenType, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return &OpenType{font: f, faces: make(map[faceKey]font.Face)}, nil
}

// LoadOpenType reads a font file into a measurement backend.
func LoadOpenType(path string) (*OpenType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewOpenType(data)
}

// Measure implements Backend using true advance widths.
// Wrapping follows the same ceil-division model as the heuristic so the
// two backends agree on the external contract.
func (o *OpenType) Measure(text string, fontSize, maxWidth float64, fontWeight int) Measurement {
	face := o.face(fontSize, fontWeight >= boldWeightThreshold)
	if face == nil {
		return o.fallback.Measure(text, fontSize, maxWidth, fontWeight)
	}

	rawWidth := float64(font.MeasureString(face, strings.TrimRight(text, " "))) / 64

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

// face returns a cached face for the given size, or nil if creation fails.
func (o *OpenType) face(size float64, bold bool) font.Face {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := faceKey{size: size, bold: bold}
	if f, ok := o.faces[key]; ok {
		return f
	}

	f, err := opentype.NewFace(o.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil
	}
	o.faces[key] = f
	return f
}
