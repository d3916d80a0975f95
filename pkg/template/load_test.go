package template

import (
	"os"
	"path/filepath"
	"testing"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

const tomlTemplate = `
id = "flyer-basic"
name = "Basic Flyer"

[dimensions]
width = 1050
height = 600

[[zones]]
id = "headline"
type = "text"
mask_value = 0

[zones.bounds]
x = 10.0
y = 10.0
w = 50.0
h = 15.0

[zones.text]
field_mapping = "headline"
font_size = 24.0

[zones.rules]
reactive = true
grow_direction = "right"
pushes_zones = ["logo"]

[[zones]]
id = "logo"
type = "logo"
mask_value = 0

[zones.bounds]
x = 70.0
y = 10.0
w = 20.0
h = 15.0
`

const jsonTemplate = `{
  "id": "flyer-basic",
  "dimensions": {"width": 1050, "height": 600},
  "zones": [
    {
      "id": "headline",
      "type": "text",
      "mask_value": 0,
      "bounds": {"x": 10, "y": 10, "w": 50, "h": 15},
      "text": {"field_mapping": "headline"}
    }
  ]
}`

func TestParseTOML(t *testing.T) {
	tpl, err := Parse([]byte(tomlTemplate), FormatTOML)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if tpl.ID != "flyer-basic" {
		t.Errorf("ID = %q", tpl.ID)
	}
	if len(tpl.Zones) != 2 {
		t.Fatalf("zones = %d, want 2", len(tpl.Zones))
	}
	z := tpl.Zone("headline")
	if z == nil {
		t.Fatal("headline zone missing")
	}
	if !z.IsReactive() || !z.Rules.GrowsWidth() {
		t.Errorf("rules = %+v, want reactive grow-right", z.Rules)
	}
	if z.Text.FontSize != 24 {
		t.Errorf("font size = %v", z.Text.FontSize)
	}
	if !z.Reserved() {
		t.Error("mask_value 0 must mean reserved")
	}
}

func TestParseJSON(t *testing.T) {
	tpl, err := Parse([]byte(jsonTemplate), FormatJSON)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if tpl.Zones[0].Bounds.W != 50 {
		t.Errorf("bounds = %+v", tpl.Zones[0].Bounds)
	}
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "flyer.toml")
	if err := os.WriteFile(tomlPath, []byte(tomlTemplate), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tomlPath); err != nil {
		t.Errorf("Load(toml) = %v", err)
	}

	jsonPath := filepath.Join(dir, "flyer.json")
	if err := os.WriteFile(jsonPath, []byte(jsonTemplate), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(jsonPath); err != nil {
		t.Errorf("Load(json) = %v", err)
	}

	yamlPath := filepath.Join(dir, "flyer.yaml")
	if err := os.WriteFile(yamlPath, []byte("id: nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(yamlPath); !zferrors.Is(err, zferrors.ErrCodeInvalidFormat) {
		t.Errorf("Load(yaml) = %v, want INVALID_FORMAT", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !zferrors.Is(err, zferrors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) = %v, want FILE_NOT_FOUND", err)
	}
}

func validTemplate() *Template {
	return &Template{
		ID:         "t1",
		Dimensions: Dimensions{Width: 800, Height: 600},
		Zones: []Zone{
			{ID: "a", Type: TypeText, MaskValue: MaskReserved, Bounds: Bounds{X: 0, Y: 0, W: 50, H: 10}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Template)
		code   zferrors.Code
	}{
		{"valid", func(t *Template) {}, ""},
		{"missing id", func(t *Template) { t.ID = "" }, zferrors.ErrCodeInvalidTemplate},
		{"zero width", func(t *Template) { t.Dimensions.Width = 0 }, zferrors.ErrCodeInvalidTemplate},
		{"no zones", func(t *Template) { t.Zones = nil }, zferrors.ErrCodeInvalidTemplate},
		{"duplicate zone ids", func(t *Template) {
			t.Zones = append(t.Zones, t.Zones[0])
		}, zferrors.ErrCodeInvalidTemplate},
		{"bad zone type", func(t *Template) { t.Zones[0].Type = "video" }, zferrors.ErrCodeInvalidZone},
		{"mask value between", func(t *Template) { t.Zones[0].MaskValue = 128 }, zferrors.ErrCodeInvalidZone},
		{"zero size bounds", func(t *Template) { t.Zones[0].Bounds.W = 0 }, zferrors.ErrCodeInvalidZone},
		{"bad unit", func(t *Template) { t.Zones[0].Bounds.Unit = "em" }, zferrors.ErrCodeInvalidZone},
		{"bad grow direction", func(t *Template) {
			t.Zones[0].Rules = &ReactiveRules{Reactive: true, GrowDirection: "left"}
		}, zferrors.ErrCodeInvalidZone},
		{"bad overflow", func(t *Template) {
			t.Zones[0].Rules = &ReactiveRules{Reactive: true, OverflowBehavior: "clip"}
		}, zferrors.ErrCodeInvalidZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(tpl)
			err := Validate(tpl)
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate = %v, want nil", err)
				}
				return
			}
			if !zferrors.Is(err, tt.code) {
				t.Errorf("Validate = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestZoneDefaults(t *testing.T) {
	z := Zone{ID: "a", Type: TypeText}
	if z.FontSize() != DefaultFontSize {
		t.Errorf("FontSize = %v", z.FontSize())
	}
	if z.FontWeight() != DefaultFontWeight {
		t.Errorf("FontWeight = %v", z.FontWeight())
	}
	if z.Padding() != DefaultMaskPadding {
		t.Errorf("Padding = %v", z.Padding())
	}
	r := ReactiveRules{}
	if r.Padding() != DefaultContentPadding {
		t.Errorf("content padding = %v", r.Padding())
	}
}

func TestStyleColors(t *testing.T) {
	s := StyleConfig{PrimaryColor: "#112233", TextColor: "#fff"}
	colors := s.Colors()
	if colors["primary"] != "#112233" || colors["text"] != "#fff" {
		t.Errorf("Colors = %v", colors)
	}
	if _, ok := colors["secondary"]; ok {
		t.Error("empty colors must be omitted")
	}
}

func TestUserDataGet(t *testing.T) {
	var nilData UserData
	if nilData.Get("x") != "" {
		t.Error("nil map must resolve to empty string")
	}
	d := UserData{"name": "Acme"}
	if d.Get("name") != "Acme" || d.Get("missing") != "" {
		t.Errorf("Get = %q / %q", d.Get("name"), d.Get("missing"))
	}
}

func TestLoadUserDataAndStyle(t *testing.T) {
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(dataPath, []byte(`{"headline": "Launch Day"}`), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadUserData(dataPath)
	if err != nil {
		t.Fatalf("LoadUserData = %v", err)
	}
	if d.Get("headline") != "Launch Day" {
		t.Errorf("headline = %q", d.Get("headline"))
	}

	stylePath := filepath.Join(dir, "style.toml")
	if err := os.WriteFile(stylePath, []byte("primary_color = \"#123456\"\nmood = \"calm\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadStyle(stylePath)
	if err != nil {
		t.Fatalf("LoadStyle = %v", err)
	}
	if s.PrimaryColor != "#123456" || s.Mood != "calm" {
		t.Errorf("style = %+v", s)
	}
}

func TestLoadStyleRejectsBadColor(t *testing.T) {
	dir := t.TempDir()
	stylePath := filepath.Join(dir, "style.toml")
	if err := os.WriteFile(stylePath, []byte("accent_color = \"cornflower\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadStyle(stylePath)
	if err == nil {
		t.Fatal("non-hex style color must be rejected")
	}
	if !zferrors.Is(err, zferrors.ErrCodeInvalidStyle) {
		t.Errorf("error = %v, want INVALID_STYLE", err)
	}
}
