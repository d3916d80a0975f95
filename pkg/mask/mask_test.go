package mask

import (
	"image/color"
	"strings"
	"testing"

	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/template"
)

func testTemplate(w, h int) *template.Template {
	return &template.Template{
		ID:         "tpl",
		Name:       "Test",
		Dimensions: template.Dimensions{Width: w, Height: h},
	}
}

func pixelZone(id string, maskValue int, x, y, w, h float64) layout.ComputedZone {
	z := template.Zone{
		ID:        id,
		Type:      template.TypeText,
		MaskValue: maskValue,
		Bounds:    template.Bounds{X: x, Y: y, W: w, H: h, Unit: template.UnitPx},
	}
	b := z.Bounds
	return layout.ComputedZone{Zone: z, OriginalBounds: b, ComputedBounds: b}
}

func grayAt(m *Mask, x, y int) uint8 {
	return color.GrayModel.Convert(m.Bitmap.At(x, y)).(color.Gray).Y
}

func TestGenerateEmptyTemplateIsAllOpen(t *testing.T) {
	s := NewSynthesizer(nil)
	m, err := s.Generate(testTemplate(100, 80), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if m.Width != 100 || m.Height != 80 {
		t.Errorf("dimensions = %dx%d, want 100x80", m.Width, m.Height)
	}
	if got := m.ReservedArea(); got != 0 {
		t.Errorf("ReservedArea() = %d, want 0", got)
	}
	if grayAt(m, 50, 40) != 255 {
		t.Error("open area should be white")
	}
}

func TestGenerateReservedZonePaintsBlack(t *testing.T) {
	s := NewSynthesizer(nil)
	zones := []layout.ComputedZone{pixelZone("headline", 0, 20, 20, 40, 30)}
	m, err := s.Generate(testTemplate(200, 200), zones)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// Center of the reserved rect.
	if grayAt(m, 40, 35) != 0 {
		t.Error("reserved zone center should be black")
	}
	// Mask padding (default 4) extends the rect.
	if grayAt(m, 17, 35) != 0 {
		t.Error("padded band around reserved zone should be black")
	}
	// Far outside stays open.
	if grayAt(m, 150, 150) != 255 {
		t.Error("area outside reserved zone should be white")
	}
	if len(m.Zones) != 1 || m.Zones[0].ID != "headline" {
		t.Errorf("zones = %+v, want one entry for headline", m.Zones)
	}
}

func TestGenerateOpenZoneNeverSubtracts(t *testing.T) {
	s := NewSynthesizer(nil)
	zones := []layout.ComputedZone{pixelZone("photo", 255, 10, 10, 100, 100)}
	m, err := s.Generate(testTemplate(200, 200), zones)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := m.ReservedArea(); got != 0 {
		t.Errorf("ReservedArea() = %d, want 0 for open zone", got)
	}
	if len(m.VectorPaths) != 0 {
		t.Errorf("VectorPaths = %v, want none for open zone", m.VectorPaths)
	}
}

func TestGenerateAreaMonotonicInZoneSize(t *testing.T) {
	s := NewSynthesizer(nil)
	tpl := testTemplate(300, 300)

	small, err := s.Generate(tpl, []layout.ComputedZone{pixelZone("z", 0, 50, 50, 60, 40)})
	if err != nil {
		t.Fatalf("Generate(small) error = %v", err)
	}
	large, err := s.Generate(tpl, []layout.ComputedZone{pixelZone("z", 0, 50, 50, 120, 80)})
	if err != nil {
		t.Fatalf("Generate(large) error = %v", err)
	}
	if small.ReservedArea() >= large.ReservedArea() {
		t.Errorf("reserved area did not grow: small=%d large=%d",
			small.ReservedArea(), large.ReservedArea())
	}
}

func TestGenerateVectorPathFormat(t *testing.T) {
	s := NewSynthesizer(nil)
	z := pixelZone("z", 0, 10, 20, 30, 40)
	z.MaskPadding = 0.001 // effectively no inflation after rounding
	m, err := s.Generate(testTemplate(100, 100), []layout.ComputedZone{z})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(m.VectorPaths) != 1 {
		t.Fatalf("VectorPaths = %v, want 1 path", m.VectorPaths)
	}
	want := "M 10 20 H 40 V 60 H 10 Z"
	if m.VectorPaths[0] != want {
		t.Errorf("path = %q, want %q", m.VectorPaths[0], want)
	}
}

func TestGenerateClampsToImageBounds(t *testing.T) {
	s := NewSynthesizer(nil)
	// Zone flush against the top-left corner; padding would spill outside.
	zones := []layout.ComputedZone{pixelZone("corner", 0, 0, 0, 50, 50)}
	m, err := s.Generate(testTemplate(100, 100), zones)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	r := m.Zones[0].Rect
	if r.X != 0 || r.Y != 0 {
		t.Errorf("rect origin = (%v,%v), want (0,0)", r.X, r.Y)
	}
	if !strings.HasPrefix(m.VectorPaths[0], "M 0 0 ") {
		t.Errorf("path = %q, want origin at 0 0", m.VectorPaths[0])
	}
}

func TestGeneratePercentBoundsConvert(t *testing.T) {
	s := NewSynthesizer(nil)
	z := pixelZone("pct", 0, 25, 25, 50, 50)
	z.ComputedBounds.Unit = template.UnitPercent
	z.MaskPadding = 0.001
	m, err := s.Generate(testTemplate(200, 100), []layout.ComputedZone{z})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := "M 50 25 H 150 V 75 H 50 Z"
	if m.VectorPaths[0] != want {
		t.Errorf("path = %q, want %q", m.VectorPaths[0], want)
	}
}

func TestGenerateRejectsBadTemplate(t *testing.T) {
	s := NewSynthesizer(nil)
	if _, err := s.Generate(nil, nil); err == nil {
		t.Error("Generate(nil) should fail")
	}
	if _, err := s.Generate(testTemplate(0, 100), nil); err == nil {
		t.Error("Generate with zero width should fail")
	}
}

func TestMaskPNGRoundtrip(t *testing.T) {
	s := NewSynthesizer(nil)
	m, err := s.Generate(testTemplate(32, 32), []layout.ComputedZone{pixelZone("z", 0, 8, 8, 8, 8)})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	data, err := m.PNG()
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("PNG() returned no data")
	}
}
