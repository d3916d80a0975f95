package compose

import (
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// ellipsis marks truncated text when the overflow behavior asks for it.
const ellipsis = "…"

// drawTextZone wraps and paints a text zone's content.
func (r *Renderer) drawTextZone(dc *gg.Context, in Input, cz *layout.ComputedZone, colors map[string]string) {
	text := cz.TextContent
	if text == "" && cz.Text != nil {
		text = in.UserData.Get(cz.Text.FieldMapping)
	}
	if text == "" {
		return
	}

	abs := layout.AbsoluteBounds(cz, in.Template.Dimensions)
	pad := 0.0
	if cz.Rules != nil {
		pad = cz.Rules.Padding()
	}
	innerW := abs.W - 2*pad
	if innerW <= 0 {
		return
	}

	fontSize := cz.FontSize()
	weight := cz.FontWeight()
	lines := r.wrap(text, fontSize, innerW, weight)

	maxLines := 0
	align := ""
	token := ""
	if cz.Text != nil {
		maxLines = cz.Text.MaxLines
		align = cz.Text.Align
		token = cz.Text.Color
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		if cz.Rules != nil && cz.Rules.OverflowBehavior == template.OverflowEllipsis {
			lines[maxLines-1] = strings.TrimRight(lines[maxLines-1], " ") + ellipsis
		}
	}

	dc.SetColor(ResolveColor(token, colors))
	dc.SetFontFace(r.opts.FontFace)

	lineHeight := fontSize * 1.4
	for i, line := range lines {
		y := abs.Y + pad + float64(i)*lineHeight + fontSize
		var x float64
		var ax float64
		switch align {
		case "center":
			x, ax = abs.X+abs.W/2, 0.5
		case "right":
			x, ax = abs.X+abs.W-pad, 1.0
		default:
			x, ax = abs.X+pad, 0.0
		}
		dc.DrawStringAnchored(line, x, y, ax, 0)
	}
}

// wrap packs words greedily: a word joins the current line until the
// measured line width exceeds maxWidth, then starts a new line. A single
// word wider than maxWidth gets its own line rather than being split.
func (r *Renderer) wrap(text string, fontSize, maxWidth float64, weight int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if r.lineWidth(candidate, fontSize, weight) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// lineWidth measures a single line without wrapping.
func (r *Renderer) lineWidth(line string, fontSize float64, weight int) float64 {
	m := r.opts.Metrics.Measure(line, fontSize, math.MaxFloat64, weight)
	return m.Width
}

// ResolveColor maps a token {primary, secondary, accent, text} through the
// color set; anything else is treated as a literal color value. Unparseable
// values fall back to black.
func ResolveColor(token string, colors map[string]string) color.Color {
	value := token
	if v, ok := colors[strings.ToLower(token)]; ok {
		value = v
	}
	if c, ok := parseHexColor(value); ok {
		return c
	}
	return color.Black
}

// parseHexColor parses #rgb and #rrggbb values.
func parseHexColor(s string) (color.Color, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return nil, false
	}
	hex := s[1:]
	var r, g, b uint8
	switch len(hex) {
	case 3:
		v, ok := hexNibbles(hex)
		if !ok {
			return nil, false
		}
		r, g, b = v[0]*17, v[1]*17, v[2]*17
	case 6:
		v, ok := hexNibbles(hex)
		if !ok {
			return nil, false
		}
		r, g, b = v[0]<<4|v[1], v[2]<<4|v[3], v[4]<<4|v[5]
	default:
		return nil, false
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, true
}

func hexNibbles(s string) ([]uint8, bool) {
	out := make([]uint8, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			out[i] = c - '0'
		case c >= 'a' && c <= 'f':
			out[i] = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			out[i] = c - 'A' + 10
		default:
			return nil, false
		}
	}
	return out, true
}
