package layout

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/template"
)

func testEngine() *Engine {
	return NewEngine(nil, log.NewWithOptions(io.Discard, log.Options{}))
}

func reactiveTemplate() *template.Template {
	return &template.Template{
		ID:         "flyer",
		Dimensions: template.Dimensions{Width: 1050, Height: 600},
		Zones: []template.Zone{
			{
				ID:        "name",
				Type:      template.TypeText,
				Bounds:    template.Bounds{X: 10, Y: 10, W: 20, H: 5, Unit: template.UnitPercent},
				MaskValue: template.MaskReserved,
				Text:      &template.TextConfig{FieldMapping: "name", FontSize: 16},
				Rules: &template.ReactiveRules{
					Reactive:      true,
					GrowDirection: template.GrowRight,
					MinWidth:      15,
					MaxWidth:      40,
					PushesZones:   []string{"tagline"},
				},
			},
			{
				ID:        "tagline",
				Type:      template.TypeText,
				Bounds:    template.Bounds{X: 35, Y: 10, W: 30, H: 5, Unit: template.UnitPercent},
				MaskValue: template.MaskReserved,
				Text:      &template.TextConfig{FieldMapping: "tagline"},
			},
			{
				ID:        "backdrop",
				Type:      template.TypeShape,
				Bounds:    template.Bounds{X: 0, Y: 0, W: 100, H: 100},
				MaskValue: template.MaskOpen,
			},
		},
	}
}

func TestComputeResizesAndPushes(t *testing.T) {
	tpl := reactiveTemplate()
	// 22 characters at 16pt measure wider than the zone's max width,
	// so the zone clamps to the max and pushes its neighbor by the delta.
	data := template.UserData{"name": "Bartholomew Consulting"}

	zones, err := testEngine().Compute(tpl, data)
	if err != nil {
		t.Fatalf("Compute error = %v", err)
	}
	if len(zones) != 3 {
		t.Fatalf("zones = %d, want 3", len(zones))
	}

	name := zones[0]
	if name.ComputedBounds.W != 40 {
		t.Errorf("name width = %v, want clamp to max 40", name.ComputedBounds.W)
	}
	if name.OriginalBounds.W != 20 {
		t.Errorf("original width = %v, want authored 20", name.OriginalBounds.W)
	}
	if !name.Grown() {
		t.Error("name zone should report growth")
	}
	if name.TextContent != "Bartholomew Consulting" {
		t.Errorf("TextContent = %q", name.TextContent)
	}

	tagline := zones[1]
	if tagline.ComputedBounds.X != 55 {
		t.Errorf("tagline x = %v, want 35 + 20 push", tagline.ComputedBounds.X)
	}
	if tagline.ComputedBounds.Y != 10 {
		t.Errorf("tagline y = %v, want unchanged (grow right only)", tagline.ComputedBounds.Y)
	}
}

func TestComputeClampsToMin(t *testing.T) {
	tpl := reactiveTemplate()
	zones, err := testEngine().Compute(tpl, template.UserData{"name": "A"})
	if err != nil {
		t.Fatal(err)
	}
	// One character plus padding measures below the floor.
	if got := zones[0].ComputedBounds.W; got != 24.8 {
		// 1 char * 16 * 0.55 + 2*8 padding = 24.8, inside [15, 40]
		t.Errorf("name width = %v, want 24.8", got)
	}
}

func TestComputeNonReactivePassthrough(t *testing.T) {
	tpl := reactiveTemplate()
	zones, err := testEngine().Compute(tpl, template.UserData{
		"name":    "x",
		"tagline": "a very long tagline that would certainly grow a reactive zone",
	})
	if err != nil {
		t.Fatal(err)
	}

	// tagline has no rules: bounds pass through except for the push offset,
	// and backdrop is untouched entirely.
	if zones[1].ComputedBounds.W != zones[1].OriginalBounds.W {
		t.Error("non-reactive zone must not resize")
	}
	if zones[2].ComputedBounds != zones[2].OriginalBounds {
		t.Errorf("backdrop bounds changed: %+v", zones[2].ComputedBounds)
	}
}

func TestComputeMissingFieldUnchanged(t *testing.T) {
	tpl := reactiveTemplate()

	// A reactive zone with no value for its mapped field is a no-op: it is
	// still emitted, bounds untouched. An explicit empty string behaves the
	// same as a missing key.
	for name, data := range map[string]template.UserData{
		"missing key":  {},
		"empty string": {"name": ""},
	} {
		zones, err := testEngine().Compute(tpl, data)
		if err != nil {
			t.Fatal(err)
		}
		if zones[0].TextContent != "" {
			t.Errorf("%s: TextContent = %q, want empty", name, zones[0].TextContent)
		}
		if zones[0].ComputedBounds != zones[0].OriginalBounds {
			t.Errorf("%s: computed = %+v, want authored bounds %+v",
				name, zones[0].ComputedBounds, zones[0].OriginalBounds)
		}
		if zones[1].ComputedBounds.X != 35 {
			t.Errorf("%s: tagline x = %v, want no push without growth", name, zones[1].ComputedBounds.X)
		}
	}
	if tpl.Zones[0].Bounds.W != 20 {
		t.Errorf("template mutated: authored W = %v", tpl.Zones[0].Bounds.W)
	}
}

func TestComputeIdempotent(t *testing.T) {
	tpl := reactiveTemplate()
	data := template.UserData{"name": "Bartholomew Consulting", "tagline": "Est. 1987"}

	first, err := testEngine().Compute(tpl, data)
	if err != nil {
		t.Fatal(err)
	}
	second, err := testEngine().Compute(tpl, data)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := MarshalZones(Zones{TemplateID: tpl.ID, Zones: first})
	b, _ := MarshalZones(Zones{TemplateID: tpl.ID, Zones: second})
	if !bytes.Equal(a, b) {
		t.Error("identical inputs must produce bit-identical output")
	}
}

func TestComputeRejectsPushCycle(t *testing.T) {
	tpl := reactiveTemplate()
	tpl.Zones[1].Rules = &template.ReactiveRules{
		Reactive:      true,
		GrowDirection: template.GrowRight,
		PushesZones:   []string{"name"},
	}

	_, err := testEngine().Compute(tpl, nil)
	if err == nil {
		t.Fatal("cyclic push relation must be rejected")
	}
	if !zferrors.Is(err, zferrors.ErrCodeCyclicPush) {
		t.Errorf("error = %v, want CYCLIC_PUSH", err)
	}
}

func TestComputeUnknownPushTargetIgnored(t *testing.T) {
	tpl := reactiveTemplate()
	tpl.Zones[0].Rules.PushesZones = []string{"tagline", "ghost"}

	zones, err := testEngine().Compute(tpl, template.UserData{"name": "Bartholomew Consulting"})
	if err != nil {
		t.Fatalf("unknown push target must not fail: %v", err)
	}
	if zones[1].ComputedBounds.X != 55 {
		t.Errorf("tagline x = %v, want push still applied", zones[1].ComputedBounds.X)
	}
}

func TestComputeValidatesTemplate(t *testing.T) {
	if _, err := testEngine().Compute(nil, nil); err == nil {
		t.Error("nil template must fail")
	}

	tpl := reactiveTemplate()
	tpl.Zones[0].MaskValue = 128
	if _, err := testEngine().Compute(tpl, nil); err == nil {
		t.Error("invalid mask value must fail")
	}
}

func TestZonesRoundtrip(t *testing.T) {
	tpl := reactiveTemplate()
	zones, err := testEngine().Compute(tpl, template.UserData{"name": "Bartholomew Consulting"})
	if err != nil {
		t.Fatal(err)
	}

	wrapped := Zones{TemplateID: tpl.ID, Width: 1050, Height: 600, Zones: zones}
	data, err := MarshalZones(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalZones(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.TemplateID != "flyer" || len(got.Zones) != 3 {
		t.Fatalf("roundtrip = %+v", got)
	}
	if got.Zones[0].ComputedBounds != zones[0].ComputedBounds {
		t.Error("computed bounds lost in roundtrip")
	}
}

func TestAbsoluteBounds(t *testing.T) {
	cz := &ComputedZone{ComputedBounds: template.Bounds{X: 10, Y: 50, W: 20, H: 25}}
	abs := AbsoluteBounds(cz, template.Dimensions{Width: 1000, Height: 400})
	want := template.Bounds{X: 100, Y: 200, W: 200, H: 100, Unit: template.UnitPx}
	if abs != want {
		t.Errorf("AbsoluteBounds = %+v, want %+v", abs, want)
	}

	px := &ComputedZone{ComputedBounds: template.Bounds{X: 5, Y: 6, W: 7, H: 8, Unit: template.UnitPx}}
	if got := AbsoluteBounds(px, template.Dimensions{Width: 1000, Height: 400}); got != px.ComputedBounds {
		t.Errorf("pixel bounds = %+v, want unchanged", got)
	}
}
