// Package compose renders the final design raster.
//
// A composition stacks three layers in fixed order: the generated background
// (cover-fit to the template surface), then text zones, then image and logo
// zones, the latter two groups each sorted ascending by z-index. The renderer
// emits a standard raster plus a doubled-resolution raster for print.
package compose

import (
	"image"
	"image/color"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/template"
	"github.com/dkrolls/zoneforge/pkg/textmetrics"
)

// printScale is the upscale factor for the print raster.
const printScale = 2

// ImageLoader resolves an image zone's source reference to pixels.
type ImageLoader func(source string) (image.Image, error)

// Options configures a Renderer.
type Options struct {
	Metrics textmetrics.Backend
	Logger  *log.Logger

	// FontFace draws zone text. Defaults to the basicfont face; callers
	// wanting real typography install an opentype face.
	FontFace font.Face

	// LoadImage fetches image/logo zone content. Defaults to reading
	// from the local filesystem.
	LoadImage ImageLoader
}

// Renderer composes design rasters.
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer, filling in option defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.Metrics == nil {
		opts.Metrics = textmetrics.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.FontFace == nil {
		opts.FontFace = basicfont.Face7x13
	}
	if opts.LoadImage == nil {
		opts.LoadImage = func(source string) (image.Image, error) {
			return imaging.Open(source)
		}
	}
	return &Renderer{opts: opts}
}

// Input is everything one composition needs.
type Input struct {
	Template   *template.Template
	Zones      []layout.ComputedZone
	Background image.Image
	Style      *template.StyleConfig
	UserData   template.UserData
}

// Output holds the rendered rasters.
type Output struct {
	Standard image.Image
	Print    image.Image
}

// Render composes the input into the final rasters.
func (r *Renderer) Render(in Input) (*Output, error) {
	if in.Template == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate, "template is required")
	}
	w := in.Template.Dimensions.Width
	h := in.Template.Dimensions.Height
	if w <= 0 || h <= 0 {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate,
			"template %s: dimensions must be positive", in.Template.ID)
	}

	colors := r.colorSet(in)
	dc := gg.NewContext(w, h)
	r.drawBackground(dc, in, colors)

	for _, cz := range zonesByLayer(in.Zones, func(z *layout.ComputedZone) bool { return z.IsText() }) {
		r.drawTextZone(dc, in, cz, colors)
	}
	for _, cz := range zonesByLayer(in.Zones, func(z *layout.ComputedZone) bool {
		return z.Type == template.TypeImage || z.Type == template.TypeLogo
	}) {
		r.drawImageZone(dc, in, cz)
	}

	standard := dc.Image()
	print := imaging.Resize(standard, w*printScale, h*printScale, imaging.Lanczos)
	return &Output{Standard: standard, Print: print}, nil
}

// zonesByLayer filters zones and orders them ascending by z-index,
// preserving authored order among equals.
func zonesByLayer(zones []layout.ComputedZone, keep func(*layout.ComputedZone) bool) []*layout.ComputedZone {
	var out []*layout.ComputedZone
	for i := range zones {
		if keep(&zones[i]) {
			out = append(out, &zones[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// drawBackground paints the generated image cover-fit and centered, or a
// solid fill when no background exists yet.
func (r *Renderer) drawBackground(dc *gg.Context, in Input, colors map[string]string) {
	w := in.Template.Dimensions.Width
	h := in.Template.Dimensions.Height

	if in.Background == nil {
		c, ok := parseHexColor(colors["primary"])
		if !ok {
			c = color.White
		}
		dc.SetColor(c)
		dc.Clear()
		return
	}

	fitted := imaging.Fill(in.Background, w, h, imaging.Center, imaging.Lanczos)
	dc.DrawImage(fitted, 0, 0)
}

// drawImageZone places image or logo content inside its computed bounds.
// A missing or unloadable source is skipped, not an error.
func (r *Renderer) drawImageZone(dc *gg.Context, in Input, cz *layout.ComputedZone) {
	if cz.Image == nil || cz.Image.Source == "" {
		r.opts.Logger.Debug("image zone has no source, skipping", "zone", cz.ID)
		return
	}
	img, err := r.opts.LoadImage(cz.Image.Source)
	if err != nil {
		r.opts.Logger.Warn("image zone source unavailable, skipping",
			"zone", cz.ID, "source", cz.Image.Source, "err", err)
		return
	}

	abs := layout.AbsoluteBounds(cz, in.Template.Dimensions)
	bw, bh := int(abs.W), int(abs.H)
	if bw <= 0 || bh <= 0 {
		return
	}

	var placed image.Image
	if cz.Image.Fit == "cover" {
		placed = imaging.Fill(img, bw, bh, imaging.Center, imaging.Lanczos)
	} else {
		placed = imaging.Fit(img, bw, bh, imaging.Lanczos)
	}

	// Center within the zone.
	ox := int(abs.X) + (bw-placed.Bounds().Dx())/2
	oy := int(abs.Y) + (bh-placed.Bounds().Dy())/2
	dc.DrawImage(placed, ox, oy)
}

// colorSet merges template default colors with style colors; style wins.
func (r *Renderer) colorSet(in Input) map[string]string {
	out := make(map[string]string, 4)
	for k, v := range in.Template.DefaultColors {
		out[k] = v
	}
	if in.Style != nil {
		for k, v := range in.Style.Colors() {
			out[k] = v
		}
	}
	return out
}
