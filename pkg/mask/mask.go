// Package mask rasterizes computed zones into a guidance mask.
//
// A mask is a two-tone bitmap handed to the generation provider: white (255)
// marks area the provider may fill, black (0) marks area reserved for zone
// content. Alongside the bitmap, each reserved rectangle is also emitted as
// an SVG-style vector path so providers without raster-mask support still
// receive exact zone geometry.
package mask

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// =============================================================================
// Types
// =============================================================================

// Rect is an axis-aligned rectangle in pixel space.
type Rect struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	W float64 `json:"w" bson:"w"`
	H float64 `json:"h" bson:"h"`
}

// Zone records the geometry of one reserved zone in the mask.
type Zone struct {
	ID   string `json:"id" bson:"id"`
	Type string `json:"type" bson:"type"`
	Rect Rect   `json:"rect" bson:"rect"`
}

// Mask is the rasterized guidance bitmap plus its vector form.
type Mask struct {
	Bitmap      image.Image `json:"-" bson:"-"`
	Width       int         `json:"width" bson:"width"`
	Height      int         `json:"height" bson:"height"`
	Zones       []Zone      `json:"zones" bson:"zones"`
	VectorPaths []string    `json:"vector_paths" bson:"vector_paths"`
}

// PNG encodes the mask bitmap as PNG bytes.
func (m *Mask) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.Bitmap); err != nil {
		return nil, fmt.Errorf("encode mask png: %w", err)
	}
	return buf.Bytes(), nil
}

// ReservedArea counts dark pixels in the bitmap. The count grows
// monotonically as any reserved zone's bounds grow.
func (m *Mask) ReservedArea() int {
	b := m.Bitmap.Bounds()
	count := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := color.GrayModel.Convert(m.Bitmap.At(x, y)).(color.Gray); c.Y < 128 {
				count++
			}
		}
	}
	return count
}

// RasterBackend draws reserved rectangles into a two-tone bitmap.
// Implementations start from a fully open (white) surface.
type RasterBackend interface {
	Rasterize(width, height int, reserved []Rect) image.Image
}

// =============================================================================
// Synthesizer
// =============================================================================

// Synthesizer turns computed zones into guidance masks.
type Synthesizer struct {
	Raster RasterBackend
}

// NewSynthesizer creates a mask synthesizer.
// If raster is nil, the gg-based backend is used.
func NewSynthesizer(raster RasterBackend) *Synthesizer {
	if raster == nil {
		raster = NewGG()
	}
	return &Synthesizer{Raster: raster}
}

// Generate rasterizes the computed zones of a template into a mask.
//
// Only zones with maskValue==0 subtract from the open area; open zones never
// do, regardless of reactivity. Each reserved rectangle is inflated by the
// zone's mask padding on all sides and clamped to the image boundary.
func (s *Synthesizer) Generate(tpl *template.Template, zones []layout.ComputedZone) (*Mask, error) {
	if tpl == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate, "template is required")
	}
	w := tpl.Dimensions.Width
	h := tpl.Dimensions.Height
	if w <= 0 || h <= 0 {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate,
			"template %s: dimensions must be positive", tpl.ID)
	}

	m := &Mask{Width: w, Height: h}

	var rects []Rect
	for i := range zones {
		cz := &zones[i]
		if !cz.Reserved() {
			continue
		}

		abs := layout.AbsoluteBounds(cz, tpl.Dimensions)
		r := inflate(Rect{X: abs.X, Y: abs.Y, W: abs.W, H: abs.H}, cz.Padding())
		r = clampRect(r, float64(w), float64(h))
		if r.W <= 0 || r.H <= 0 {
			continue
		}

		rects = append(rects, r)
		m.Zones = append(m.Zones, Zone{ID: cz.ID, Type: cz.Type, Rect: r})
		m.VectorPaths = append(m.VectorPaths, vectorPath(r))
	}

	m.Bitmap = s.Raster.Rasterize(w, h, rects)
	return m, nil
}

// inflate grows a rectangle by pad on all four sides.
func inflate(r Rect, pad float64) Rect {
	return Rect{
		X: r.X - pad,
		Y: r.Y - pad,
		W: r.W + 2*pad,
		H: r.H + 2*pad,
	}
}

// clampRect confines a rectangle to the image boundary.
func clampRect(r Rect, w, h float64) Rect {
	x0 := math.Max(r.X, 0)
	y0 := math.Max(r.Y, 0)
	x1 := math.Min(r.X+r.W, w)
	y1 := math.Min(r.Y+r.H, h)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// vectorPath renders a rectangle as an SVG path string.
func vectorPath(r Rect) string {
	x := int(math.Round(r.X))
	y := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.W))
	y1 := int(math.Round(r.Y + r.H))
	return fmt.Sprintf("M %d %d H %d V %d H %d Z", x, y, x1, y1, x)
}
