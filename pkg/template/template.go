// Package template defines the zone model for design templates.
//
// A Template describes a fixed-size design surface subdivided into zones.
// Each zone carries either text or image content plus a mask classification
// that tells the generation provider whether it may paint inside the zone.
// Templates are read-only once loaded; the layout engine never mutates them
// and instead emits computed copies (see pkg/layout).
package template

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Zone types.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeLogo  = "logo"
	TypeQR    = "qr"
	TypeShape = "shape"
)

// ValidTypes is the set of supported zone types.
var ValidTypes = map[string]bool{
	TypeText:  true,
	TypeImage: true,
	TypeLogo:  true,
	TypeQR:    true,
	TypeShape: true,
}

// Bounds units.
const (
	UnitPercent = "percent"
	UnitPx      = "px"
)

// Mask values. A zone is either reserved for its own content (black) or
// open for the generation provider to fill (white). Nothing in between.
const (
	MaskReserved = 0
	MaskOpen     = 255
)

// Overflow behaviors for reactive text zones.
const (
	OverflowGrow     = "grow"
	OverflowEllipsis = "ellipsis"
	OverflowScale    = "scale"
)

// Grow directions for reactive sizing.
const (
	GrowRight = "right"
	GrowDown  = "down"
	GrowBoth  = "both"
)

// Defaults applied when a zone omits the corresponding field.
const (
	DefaultContentPadding = 8.0
	DefaultMaskPadding    = 4.0
	DefaultFontSize       = 16.0
	DefaultFontWeight     = 400
	DefaultLineHeight     = 1.4
)

// =============================================================================
// Bounds
// =============================================================================

// Bounds is a zone rectangle in the template's coordinate space.
// Values are interpreted according to Unit: either percentages of the
// template dimensions or absolute pixels.
type Bounds struct {
	X        float64 `json:"x" bson:"x" toml:"x"`
	Y        float64 `json:"y" bson:"y" toml:"y"`
	W        float64 `json:"w" bson:"w" toml:"w"`
	H        float64 `json:"h" bson:"h" toml:"h"`
	Unit     string  `json:"unit,omitempty" bson:"unit,omitempty" toml:"unit"`
	Rotation float64 `json:"rotation,omitempty" bson:"rotation,omitempty" toml:"rotation"`
}

// IsPercent returns true if the bounds are percentage-based.
// An empty unit defaults to percent.
func (b Bounds) IsPercent() bool {
	return b.Unit == "" || b.Unit == UnitPercent
}

// =============================================================================
// ReactiveRules
// =============================================================================

// ReactiveRules controls runtime resizing of a text zone based on the
// length of dynamically supplied content.
//
// Min/Max values share the zone's authored units. When absent, the layout
// engine derives them from the original bounds (0.5x and 2x respectively).
type ReactiveRules struct {
	Reactive         bool     `json:"reactive" bson:"reactive" toml:"reactive"`
	MinWidth         float64  `json:"min_width,omitempty" bson:"min_width,omitempty" toml:"min_width"`
	MaxWidth         float64  `json:"max_width,omitempty" bson:"max_width,omitempty" toml:"max_width"`
	MinHeight        float64  `json:"min_height,omitempty" bson:"min_height,omitempty" toml:"min_height"`
	MaxHeight        float64  `json:"max_height,omitempty" bson:"max_height,omitempty" toml:"max_height"`
	OverflowBehavior string   `json:"overflow_behavior,omitempty" bson:"overflow_behavior,omitempty" toml:"overflow_behavior"`
	ContentPadding   float64  `json:"content_padding,omitempty" bson:"content_padding,omitempty" toml:"content_padding"`
	PushesZones      []string `json:"pushes_zones,omitempty" bson:"pushes_zones,omitempty" toml:"pushes_zones"`
	GrowDirection    string   `json:"grow_direction,omitempty" bson:"grow_direction,omitempty" toml:"grow_direction"`
}

// GrowsWidth returns true if the rules enable growth on the horizontal axis.
func (r ReactiveRules) GrowsWidth() bool {
	return r.GrowDirection == GrowRight || r.GrowDirection == GrowBoth
}

// GrowsHeight returns true if the rules enable growth on the vertical axis.
func (r ReactiveRules) GrowsHeight() bool {
	return r.GrowDirection == GrowDown || r.GrowDirection == GrowBoth
}

// Padding returns the content padding, applying the default when unset.
func (r ReactiveRules) Padding() float64 {
	if r.ContentPadding > 0 {
		return r.ContentPadding
	}
	return DefaultContentPadding
}

// =============================================================================
// Zone
// =============================================================================

// TextConfig holds type-specific configuration for text zones.
type TextConfig struct {
	FieldMapping string  `json:"field_mapping,omitempty" bson:"field_mapping,omitempty" toml:"field_mapping"`
	FontSize     float64 `json:"font_size,omitempty" bson:"font_size,omitempty" toml:"font_size"`
	FontWeight   int     `json:"font_weight,omitempty" bson:"font_weight,omitempty" toml:"font_weight"`
	Color        string  `json:"color,omitempty" bson:"color,omitempty" toml:"color"`
	Align        string  `json:"align,omitempty" bson:"align,omitempty" toml:"align"`
	MaxLines     int     `json:"max_lines,omitempty" bson:"max_lines,omitempty" toml:"max_lines"`
}

// ImageConfig holds type-specific configuration for image, logo and qr zones.
type ImageConfig struct {
	Source  string `json:"source,omitempty" bson:"source,omitempty" toml:"source"`
	Fit     string `json:"fit,omitempty" bson:"fit,omitempty" toml:"fit"`
	AltText string `json:"alt_text,omitempty" bson:"alt_text,omitempty" toml:"alt_text"`
}

// Zone is a rectangular template region. Immutable once a Template is loaded.
type Zone struct {
	ID          string         `json:"id" bson:"id" toml:"id"`
	Type        string         `json:"type" bson:"type" toml:"type"`
	Bounds      Bounds         `json:"bounds" bson:"bounds" toml:"bounds"`
	ZIndex      int            `json:"z_index,omitempty" bson:"z_index,omitempty" toml:"z_index"`
	MaskValue   int            `json:"mask_value" bson:"mask_value" toml:"mask_value"`
	MaskPadding float64        `json:"mask_padding,omitempty" bson:"mask_padding,omitempty" toml:"mask_padding"`
	Text        *TextConfig    `json:"text,omitempty" bson:"text,omitempty" toml:"text"`
	Image       *ImageConfig   `json:"image,omitempty" bson:"image,omitempty" toml:"image"`
	Rules       *ReactiveRules `json:"rules,omitempty" bson:"rules,omitempty" toml:"rules"`
}

// IsReactive returns true if the zone opts into reactive sizing.
func (z *Zone) IsReactive() bool {
	return z.Rules != nil && z.Rules.Reactive
}

// IsText returns true for text zones.
func (z *Zone) IsText() bool { return z.Type == TypeText }

// Reserved returns true if the zone subtracts from the mask's open area.
func (z *Zone) Reserved() bool { return z.MaskValue == MaskReserved }

// FontSize returns the configured font size or the default.
func (z *Zone) FontSize() float64 {
	if z.Text != nil && z.Text.FontSize > 0 {
		return z.Text.FontSize
	}
	return DefaultFontSize
}

// FontWeight returns the configured font weight or the default.
func (z *Zone) FontWeight() int {
	if z.Text != nil && z.Text.FontWeight > 0 {
		return z.Text.FontWeight
	}
	return DefaultFontWeight
}

// Padding returns the mask padding, applying the default when unset.
func (z *Zone) Padding() float64 {
	if z.MaskPadding > 0 {
		return z.MaskPadding
	}
	return DefaultMaskPadding
}

// =============================================================================
// Template
// =============================================================================

// Dimensions describes the template surface in pixels.
type Dimensions struct {
	Width  int `json:"width" bson:"width" toml:"width"`
	Height int `json:"height" bson:"height" toml:"height"`
	DPI    int `json:"dpi,omitempty" bson:"dpi,omitempty" toml:"dpi"`
}

// Template is a complete design template. Read-only once loaded.
type Template struct {
	ID                 string            `json:"id" bson:"id" toml:"id"`
	Name               string            `json:"name,omitempty" bson:"name,omitempty" toml:"name"`
	Dimensions         Dimensions        `json:"dimensions" bson:"dimensions" toml:"dimensions"`
	Zones              []Zone            `json:"zones" bson:"zones" toml:"zones"`
	PromptTemplate     string            `json:"prompt_template,omitempty" bson:"prompt_template,omitempty" toml:"prompt_template"`
	NegativePromptBase string            `json:"negative_prompt_base,omitempty" bson:"negative_prompt_base,omitempty" toml:"negative_prompt_base"`
	StyleHints         []string          `json:"style_hints,omitempty" bson:"style_hints,omitempty" toml:"style_hints"`
	DefaultColors      map[string]string `json:"default_colors,omitempty" bson:"default_colors,omitempty" toml:"default_colors"`
	CompositorPrompt   string            `json:"compositor_prompt,omitempty" bson:"compositor_prompt,omitempty" toml:"compositor_prompt"`
}

// Zone returns the zone with the given id, or nil if absent.
func (t *Template) Zone(id string) *Zone {
	for i := range t.Zones {
		if t.Zones[i].ID == id {
			return &t.Zones[i]
		}
	}
	return nil
}

// =============================================================================
// External Inputs
// =============================================================================

// UserData is the string-keyed form data supplied by the caller.
// Arbitrary extra keys are permitted; zones resolve values by field mapping
// and a missing key resolves to the empty string.
type UserData map[string]string

// Get returns the value for key, or empty string if absent.
func (d UserData) Get(key string) string {
	if d == nil {
		return ""
	}
	return d[key]
}

// StyleConfig carries the caller's styling preferences.
type StyleConfig struct {
	PrimaryColor   string `json:"primary_color,omitempty" bson:"primary_color,omitempty" toml:"primary_color"`
	SecondaryColor string `json:"secondary_color,omitempty" bson:"secondary_color,omitempty" toml:"secondary_color"`
	AccentColor    string `json:"accent_color,omitempty" bson:"accent_color,omitempty" toml:"accent_color"`
	TextColor      string `json:"text_color,omitempty" bson:"text_color,omitempty" toml:"text_color"`
	StylePrompt    string `json:"style_prompt,omitempty" bson:"style_prompt,omitempty" toml:"style_prompt"`
	AvoidPrompt    string `json:"avoid_prompt,omitempty" bson:"avoid_prompt,omitempty" toml:"avoid_prompt"`
	Mood           string `json:"mood,omitempty" bson:"mood,omitempty" toml:"mood"`
	Industry       string `json:"industry,omitempty" bson:"industry,omitempty" toml:"industry"`
}

// Colors returns the style's color set keyed by token name.
// Empty values are omitted so template defaults can fill the gaps.
func (s StyleConfig) Colors() map[string]string {
	out := make(map[string]string, 4)
	if s.PrimaryColor != "" {
		out["primary"] = s.PrimaryColor
	}
	if s.SecondaryColor != "" {
		out["secondary"] = s.SecondaryColor
	}
	if s.AccentColor != "" {
		out["accent"] = s.AccentColor
	}
	if s.TextColor != "" {
		out["text"] = s.TextColor
	}
	return out
}
