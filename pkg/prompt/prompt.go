// Package prompt composes the text prompts sent to a generation provider.
//
// Template prompt text may reference variables as {{name}}; values come from
// built-in defaults, the active style, and user data, in that order of
// precedence. A separate compositor prompt describes the reserved zone
// geometry in plain text for providers without raster-mask support.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// =============================================================================
// Variable substitution
// =============================================================================

// placeholderRe matches {{name}} with optional surrounding whitespace.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Defaults are the built-in variable values used when neither the style nor
// the user data provides one.
var Defaults = map[string]string{
	"style":    "clean, modern, professional",
	"mood":     "confident",
	"industry": "general",
	"quality":  "high detail, sharp focus",
}

// Variables merges the three variable sources in precedence order.
// Later sources override earlier ones; all keys are lowercased.
func Variables(style *template.StyleConfig, userData template.UserData) map[string]string {
	merged := make(map[string]string, len(Defaults)+len(userData))
	for k, v := range Defaults {
		merged[strings.ToLower(k)] = v
	}
	if style != nil {
		for k, v := range styleVariables(style) {
			if v != "" {
				merged[k] = v
			}
		}
	}
	for k, v := range userData {
		merged[strings.ToLower(k)] = v
	}
	return merged
}

func styleVariables(s *template.StyleConfig) map[string]string {
	return map[string]string{
		"style":          s.StylePrompt,
		"mood":           s.Mood,
		"industry":       s.Industry,
		"primarycolor":   s.PrimaryColor,
		"secondarycolor": s.SecondaryColor,
		"accentcolor":    s.AccentColor,
	}
}

// Substitute replaces every {{name}} placeholder in text with its value from
// vars, matching names case-insensitively. Unresolved placeholders become
// the empty string.
func Substitute(text string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return vars[strings.ToLower(name)]
	})
}

// =============================================================================
// Composer
// =============================================================================

// Composed bundles the prompt strings for one generation request.
type Composed struct {
	Prompt         string `json:"prompt" bson:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty" bson:"negative_prompt,omitempty"`
	Compositor     string `json:"compositor,omitempty" bson:"compositor,omitempty"`
}

// Compose builds the full prompt set for a template.
//
// The main prompt is the template's prompt text with variables substituted,
// followed by any style hints. The negative prompt appends the style's avoid
// prompt to the template's base. The compositor prompt is built from the
// computed zone geometry, see ComposeCompositor.
func Compose(tpl *template.Template, style *template.StyleConfig, userData template.UserData, zones []layout.ComputedZone) (*Composed, error) {
	if tpl == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate, "template is required")
	}
	if tpl.PromptTemplate == "" {
		return nil, zferrors.New(zferrors.ErrCodeInvalidTemplate,
			"template %s has no prompt text", tpl.ID)
	}

	vars := Variables(style, userData)

	parts := []string{strings.TrimSpace(Substitute(tpl.PromptTemplate, vars))}
	for _, hint := range tpl.StyleHints {
		if hint == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(Substitute(hint, vars)))
	}

	var negative []string
	if tpl.NegativePromptBase != "" {
		negative = append(negative, strings.TrimSpace(tpl.NegativePromptBase))
	}
	if style != nil && style.AvoidPrompt != "" {
		negative = append(negative, strings.TrimSpace(style.AvoidPrompt))
	}

	return &Composed{
		Prompt:         strings.Join(parts, ", "),
		NegativePrompt: strings.Join(negative, ", "),
		Compositor:     ComposeCompositor(tpl, zones),
	}, nil
}

// defaultCompositorInstruction is used when the template does not carry its
// own compositor prompt.
const defaultCompositorInstruction = "Keep the following regions completely free of detail, text, or focal elements; they will be overlaid with content after generation."

// ComposeCompositor enumerates every reserved zone as one line of plain
// text: id, type, and computed bounds as percentages with one decimal place.
// Returns the empty string when the template has no reserved zones.
func ComposeCompositor(tpl *template.Template, zones []layout.ComputedZone) string {
	var lines []string
	for i := range zones {
		cz := &zones[i]
		if !cz.Reserved() {
			continue
		}
		b := percentBounds(cz, tpl.Dimensions)
		lines = append(lines, fmt.Sprintf("- zone %q (%s): x=%.1f%% y=%.1f%% width=%.1f%% height=%.1f%%",
			cz.ID, cz.Type, b.X, b.Y, b.W, b.H))
	}
	if len(lines) == 0 {
		return ""
	}

	instruction := tpl.CompositorPrompt
	if instruction == "" {
		instruction = defaultCompositorInstruction
	}
	return instruction + "\n" + strings.Join(lines, "\n")
}

// percentBounds converts a zone's computed bounds to percentages of the
// template dimensions.
func percentBounds(cz *layout.ComputedZone, d template.Dimensions) template.Bounds {
	if cz.ComputedBounds.IsPercent() {
		return cz.ComputedBounds
	}
	abs := layout.AbsoluteBounds(cz, d)
	return template.Bounds{
		X:    abs.X / float64(d.Width) * 100,
		Y:    abs.Y / float64(d.Height) * 100,
		W:    abs.W / float64(d.Width) * 100,
		H:    abs.H / float64(d.Height) * 100,
		Unit: template.UnitPercent,
	}
}
