package layout

import (
	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// =============================================================================
// Push Propagation
// =============================================================================

// propagatePushes performs pass 2: a single forward pass over zones in
// authored order, offsetting each push target by the source's growth delta
// along the axes enabled by the source's grow direction.
//
// Unknown target ids are ignored. Deltas are signed, so a zone that shrank
// pulls its targets back toward it.
func propagatePushes(zones []ComputedZone) {
	index := make(map[string]int, len(zones))
	for i := range zones {
		index[zones[i].ID] = i
	}

	for i := range zones {
		src := &zones[i]
		if src.Rules == nil || len(src.Rules.PushesZones) == 0 {
			continue
		}

		growthX := src.ComputedBounds.W - src.OriginalBounds.W
		growthY := src.ComputedBounds.H - src.OriginalBounds.H
		if growthX == 0 && growthY == 0 {
			continue
		}

		for _, id := range src.Rules.PushesZones {
			j, ok := index[id]
			if !ok {
				continue // unknown targets are a deliberate no-op
			}
			target := &zones[j]
			if src.Rules.GrowsWidth() {
				target.ComputedBounds.X += growthX
			}
			if src.Rules.GrowsHeight() {
				target.ComputedBounds.Y += growthY
			}
		}
	}
}

// =============================================================================
// Cycle Detection
// =============================================================================

// checkPushCycles rejects templates whose push relations form a cycle.
//
// A cyclic pair of zones pushing each other would make the forward pass
// order-dependent, so such templates are refused outright instead of
// silently producing authored-order results.
func checkPushCycles(tpl *template.Template) error {
	targets := make(map[string][]string, len(tpl.Zones))
	known := make(map[string]bool, len(tpl.Zones))
	for i := range tpl.Zones {
		known[tpl.Zones[i].ID] = true
	}
	for i := range tpl.Zones {
		z := &tpl.Zones[i]
		if z.Rules == nil {
			continue
		}
		for _, id := range z.Rules.PushesZones {
			if known[id] {
				targets[z.ID] = append(targets[z.ID], id)
			}
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(known))

	var cycleAt string
	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		for _, next := range targets[node] {
			switch color[next] {
			case white:
				if dfs(next) {
					return true
				}
			case gray:
				cycleAt = next
				return true
			}
		}
		color[node] = black
		return false
	}

	for i := range tpl.Zones {
		id := tpl.Zones[i].ID
		if color[id] == white && dfs(id) {
			return zferrors.New(zferrors.ErrCodeCyclicPush,
				"template %s: push relation forms a cycle through zone %q", tpl.ID, cycleAt)
		}
	}
	return nil
}
