package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

// =============================================================================
// Template Loading
// =============================================================================

// Load reads a template from a TOML or JSON file, chosen by extension,
// and validates it. The returned template is ready for the layout engine.
func Load(path string) (*Template, error) {
	if err := zferrors.ValidateTemplatePath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zferrors.Wrap(zferrors.ErrCodeFileNotFound, err, "template %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return Parse(data, FormatTOML)
	case ".json":
		return Parse(data, FormatJSON)
	default:
		return nil, zferrors.New(zferrors.ErrCodeInvalidFormat,
			"unsupported template format: %s (must be .toml or .json)", filepath.Ext(path))
	}
}

// Template file formats.
const (
	FormatTOML = "toml"
	FormatJSON = "json"
)

// Parse decodes template bytes in the given format and validates the result.
func Parse(data []byte, format string) (*Template, error) {
	var t Template
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &t); err != nil {
			return nil, zferrors.Wrap(zferrors.ErrCodeInvalidTemplate, err, "decode toml template")
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, zferrors.Wrap(zferrors.ErrCodeInvalidTemplate, err, "decode json template")
		}
	default:
		return nil, zferrors.New(zferrors.ErrCodeInvalidFormat, "unsupported template format: %q", format)
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadStyle reads a style configuration from a TOML or JSON file.
func LoadStyle(path string) (StyleConfig, error) {
	var s StyleConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return s, zferrors.Wrap(zferrors.ErrCodeInvalidStyle, err, "decode style %s", path)
	}
	// Style colors are literal hex values; token names only appear inside
	// templates, where they resolve against these.
	for name, c := range s.Colors() {
		if err := zferrors.ValidateHexColor(c); err != nil {
			return s, zferrors.Wrap(zferrors.ErrCodeInvalidStyle, err, "style %s color %q", path, name)
		}
	}
	return s, nil
}

// LoadUserData reads user form data from a JSON file.
func LoadUserData(path string) (UserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var d UserData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, zferrors.Wrap(zferrors.ErrCodeInvalidInput, err, "decode user data %s", path)
	}
	return d, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks template invariants. Violations are reported as
// validation errors; they surface immediately and are never retried.
func Validate(t *Template) error {
	if t.ID == "" {
		return zferrors.New(zferrors.ErrCodeInvalidTemplate, "template id is required")
	}
	if t.Dimensions.Width <= 0 || t.Dimensions.Height <= 0 {
		return zferrors.New(zferrors.ErrCodeInvalidTemplate,
			"template %s: dimensions must be positive (got %dx%d)",
			t.ID, t.Dimensions.Width, t.Dimensions.Height)
	}
	if len(t.Zones) == 0 {
		return zferrors.New(zferrors.ErrCodeInvalidTemplate, "template %s has no zones", t.ID)
	}

	seen := make(map[string]bool, len(t.Zones))
	for i := range t.Zones {
		z := &t.Zones[i]
		if err := validateZone(t, z); err != nil {
			return err
		}
		if seen[z.ID] {
			return zferrors.New(zferrors.ErrCodeInvalidTemplate,
				"template %s: duplicate zone id %q", t.ID, z.ID)
		}
		seen[z.ID] = true
	}
	return nil
}

func validateZone(t *Template, z *Zone) error {
	if err := zferrors.ValidateZoneID(z.ID); err != nil {
		return err
	}
	if !ValidTypes[z.Type] {
		return zferrors.New(zferrors.ErrCodeInvalidZone,
			"zone %s: invalid type %q (must be one of: text, image, logo, qr, shape)", z.ID, z.Type)
	}
	// maskValue is exactly 0 or 255, nothing else.
	if z.MaskValue != MaskReserved && z.MaskValue != MaskOpen {
		return zferrors.New(zferrors.ErrCodeInvalidZone,
			"zone %s: mask_value must be 0 or 255 (got %d)", z.ID, z.MaskValue)
	}
	if z.Bounds.W <= 0 || z.Bounds.H <= 0 {
		return zferrors.New(zferrors.ErrCodeInvalidZone,
			"zone %s: bounds must have positive size", z.ID)
	}
	if u := z.Bounds.Unit; u != "" && u != UnitPercent && u != UnitPx {
		return zferrors.New(zferrors.ErrCodeInvalidZone,
			"zone %s: invalid unit %q (must be percent or px)", z.ID, u)
	}

	if z.Rules != nil {
		if d := z.Rules.GrowDirection; d != "" && d != GrowRight && d != GrowDown && d != GrowBoth {
			return zferrors.New(zferrors.ErrCodeInvalidZone,
				"zone %s: invalid grow_direction %q (must be right, down, or both)", z.ID, d)
		}
		if b := z.Rules.OverflowBehavior; b != "" && b != OverflowGrow && b != OverflowEllipsis && b != OverflowScale {
			return zferrors.New(zferrors.ErrCodeInvalidZone,
				"zone %s: invalid overflow_behavior %q (must be grow, ellipsis, or scale)", z.ID, b)
		}
	}
	return nil
}
