package mask

import (
	"image"

	"github.com/fogleman/gg"
)

// GG rasterizes masks with the fogleman/gg drawing context.
type GG struct{}

// NewGG creates the default raster backend.
func NewGG() *GG {
	return &GG{}
}

// Rasterize paints reserved rectangles in black on a white surface.
func (g *GG) Rasterize(width, height int, reserved []Rect) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	for _, r := range reserved {
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		dc.Fill()
	}
	return dc.Image()
}
