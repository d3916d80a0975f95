package cli

import (
	"strings"
	"testing"

	"github.com/dkrolls/zoneforge/pkg/template"
)

func pushGraphTemplate() *template.Template {
	return &template.Template{
		ID:         "promo-1",
		Dimensions: template.Dimensions{Width: 400, Height: 200},
		Zones: []template.Zone{
			{
				ID:        "name",
				Type:      template.TypeText,
				Bounds:    template.Bounds{X: 10, Y: 10, W: 20, H: 5},
				MaskValue: template.MaskReserved,
				Rules: &template.ReactiveRules{
					Reactive:      true,
					GrowDirection: template.GrowRight,
					PushesZones:   []string{"tagline"},
				},
			},
			{
				ID:        "tagline",
				Type:      template.TypeText,
				Bounds:    template.Bounds{X: 35, Y: 10, W: 30, H: 5},
				MaskValue: template.MaskReserved,
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

func TestPushGraphDOT(t *testing.T) {
	dot := pushGraphDOT(pushGraphTemplate())

	if !strings.HasPrefix(dot, "digraph pushes {") {
		t.Errorf("DOT output missing digraph header:\n%s", dot)
	}
	for _, id := range []string{`"name"`, `"tagline"`, `"backdrop"`} {
		if !strings.Contains(dot, id) {
			t.Errorf("DOT output missing node %s", id)
		}
	}
	if !strings.Contains(dot, `"name" -> "tagline";`) {
		t.Errorf("DOT output missing push edge:\n%s", dot)
	}
	if strings.Count(dot, "->") != 1 {
		t.Errorf("DOT output has %d edges, want 1", strings.Count(dot, "->"))
	}
}

func TestPushGraphDOTMarksReactiveZones(t *testing.T) {
	dot := pushGraphDOT(pushGraphTemplate())

	var nameLine, taglineLine string
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, `"name" [`) {
			nameLine = line
		}
		if strings.Contains(line, `"tagline" [`) {
			taglineLine = line
		}
	}
	if !strings.Contains(nameLine, "fillcolor=lightcyan") {
		t.Errorf("reactive zone not highlighted: %s", nameLine)
	}
	if strings.Contains(taglineLine, "fillcolor=lightcyan") {
		t.Errorf("static zone should not be highlighted: %s", taglineLine)
	}
	if !strings.Contains(nameLine, "grows right") {
		t.Errorf("reactive label missing grow direction: %s", nameLine)
	}
}

func TestZoneLabel(t *testing.T) {
	tpl := pushGraphTemplate()

	if got := zoneLabel(&tpl.Zones[2]); got != "backdrop\nshape" {
		t.Errorf("zoneLabel(backdrop) = %q", got)
	}
	if got := zoneLabel(&tpl.Zones[0]); !strings.Contains(got, "grows right") {
		t.Errorf("zoneLabel(name) = %q, want grow direction suffix", got)
	}
}
