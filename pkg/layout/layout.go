// Package layout implements the reactive layout engine.
//
// The engine resizes template zones to fit variable-length user text and
// propagates growth to dependent zones. Computation runs in two passes:
//
//  1. Independent sizing: each reactive text zone is measured against its
//     current width and resized within its min/max constraints on the axes
//     enabled by its grow direction. All other zones pass through unchanged.
//  2. Push propagation: zones that declare push targets offset those targets
//     by their own growth delta, in authored order.
//
// Templates whose push relations form a cycle are rejected up front (see
// push.go); within an acyclic template the authored-order pass is
// deterministic, and Compute is idempotent: identical inputs produce a
// bit-identical computed zone list.
package layout

import (
	"github.com/charmbracelet/log"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/template"
	"github.com/dkrolls/zoneforge/pkg/textmetrics"
)

// Fallback constraint factors applied when a rule omits min/max values.
const (
	defaultMinFactor = 0.5
	defaultMaxFactor = 2.0
)

// =============================================================================
// ComputedZone
// =============================================================================

// ComputedZone is a zone plus its resolved runtime bounds.
//
// OriginalBounds is an immutable snapshot of the authored bounds;
// ComputedBounds carries the result of reactive sizing and push propagation.
// The engine rebuilds every ComputedZone from scratch on each computation
// and never patches one in place.
type ComputedZone struct {
	template.Zone  `bson:",inline"`
	OriginalBounds template.Bounds `json:"original_bounds" bson:"original_bounds"`
	ComputedBounds template.Bounds `json:"computed_bounds" bson:"computed_bounds"`
	TextContent    string          `json:"text_content,omitempty" bson:"text_content,omitempty"`
}

// Grown returns true if the computed bounds differ from the original.
func (c *ComputedZone) Grown() bool {
	return c.ComputedBounds != c.OriginalBounds
}

// =============================================================================
// Engine
// =============================================================================

// Engine computes per-zone bounds for a template and user data.
//
// The engine is stateless apart from its measurement backend and logger;
// a single Engine may be reused across templates.
type Engine struct {
	Metrics textmetrics.Backend
	Logger  *log.Logger
}

// NewEngine creates a layout engine.
// If metrics is nil, the heuristic backend is used.
// If logger is nil, the default logger is used.
func NewEngine(metrics textmetrics.Backend, logger *log.Logger) *Engine {
	if metrics == nil {
		metrics = textmetrics.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Metrics: metrics, Logger: logger}
}

// Compute resolves runtime bounds for every zone in the template.
//
// Zones are emitted in authored order. Non-reactive and non-text zones pass
// through with computed bounds equal to their original bounds. A zone whose
// field mapping has no value in userData is still emitted, unchanged.
func (e *Engine) Compute(tpl *template.Template, userData template.UserData) ([]ComputedZone, error) {
	if tpl == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate, "template is required")
	}
	if err := template.Validate(tpl); err != nil {
		return nil, err
	}
	if err := checkPushCycles(tpl); err != nil {
		return nil, err
	}

	zones := make([]ComputedZone, 0, len(tpl.Zones))
	for i := range tpl.Zones {
		zones = append(zones, e.sizeZone(tpl, &tpl.Zones[i], userData))
	}

	propagatePushes(zones)
	return zones, nil
}

// sizeZone performs pass 1 for a single zone.
func (e *Engine) sizeZone(tpl *template.Template, z *template.Zone, userData template.UserData) ComputedZone {
	cz := ComputedZone{
		Zone:           *z,
		OriginalBounds: z.Bounds,
		ComputedBounds: z.Bounds,
	}

	if !z.IsReactive() || !z.IsText() {
		return cz
	}

	var field string
	if z.Text != nil {
		field = z.Text.FieldMapping
	}
	text := userData.Get(field)
	if text == "" {
		// No value for the mapped field: the zone is emitted with its
		// authored bounds untouched.
		return cz
	}
	cz.TextContent = text

	rules := z.Rules
	abs := absoluteBounds(z.Bounds, tpl.Dimensions)
	m := e.Metrics.Measure(text, z.FontSize(), abs.W, z.FontWeight())
	pad := rules.Padding()

	// Rule bounds share the zone's authored units; the padded measured
	// extent is clamped against them directly and the clamped value is
	// stored back in those units.
	if rules.GrowsWidth() {
		minW, maxW := axisLimits(rules.MinWidth, rules.MaxWidth, z.Bounds.W)
		cz.ComputedBounds.W = clamp(m.Width+2*pad, minW, maxW)
	}
	if rules.GrowsHeight() {
		minH, maxH := axisLimits(rules.MinHeight, rules.MaxHeight, z.Bounds.H)
		cz.ComputedBounds.H = clamp(m.Height+2*pad, minH, maxH)
	}

	if cz.Grown() {
		e.Logger.Debug("resized reactive zone",
			"zone", z.ID,
			"chars", len(text),
			"w", cz.ComputedBounds.W,
			"h", cz.ComputedBounds.H)
	}
	return cz
}

// axisLimits resolves the min/max constraint for one axis,
// deriving defaults from the original extent when a value is absent.
func axisLimits(min, max, original float64) (float64, float64) {
	if min <= 0 {
		min = original * defaultMinFactor
	}
	if max <= 0 {
		max = original * defaultMaxFactor
	}
	return min, max
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// absoluteBounds converts bounds to pixels using the template dimensions.
// Pixel-unit bounds are returned unchanged.
func absoluteBounds(b template.Bounds, d template.Dimensions) template.Bounds {
	if !b.IsPercent() {
		return b
	}
	w := float64(d.Width)
	h := float64(d.Height)
	return template.Bounds{
		X:        b.X / 100 * w,
		Y:        b.Y / 100 * h,
		W:        b.W / 100 * w,
		H:        b.H / 100 * h,
		Unit:     template.UnitPx,
		Rotation: b.Rotation,
	}
}

// AbsoluteBounds converts a computed zone's bounds to pixels.
func AbsoluteBounds(cz *ComputedZone, d template.Dimensions) template.Bounds {
	return absoluteBounds(cz.ComputedBounds, d)
}
