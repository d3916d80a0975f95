package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkrolls/zoneforge/pkg/orchestrator"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

func TestGenerateModelSnapshotUpdates(t *testing.T) {
	m := NewGenerateModel("Generating promo")

	updated, cmd := m.Update(snapshotMsg{Snapshot: orchestrator.Snapshot{
		State:    orchestrator.StateGenerating,
		Progress: 45,
		Attempt:  1,
	}})
	if cmd != nil {
		t.Error("snapshot update should not emit a command")
	}

	gm := updated.(GenerateModel)
	if gm.Snapshot.Progress != 45 {
		t.Errorf("Progress = %d, want 45", gm.Snapshot.Progress)
	}

	view := gm.View()
	if !strings.Contains(view, "45%") {
		t.Errorf("view missing progress percentage:\n%s", view)
	}
	if !strings.Contains(view, string(orchestrator.StateGenerating)) {
		t.Errorf("view missing state:\n%s", view)
	}
}

func TestGenerateModelDoneQuits(t *testing.T) {
	m := NewGenerateModel("Generating promo")

	updated, cmd := m.Update(generateDoneMsg{Result: &pipeline.Result{}})
	if cmd == nil {
		t.Fatal("done message should quit the program")
	}

	gm := updated.(GenerateModel)
	if gm.Result == nil || gm.Err != nil {
		t.Errorf("Result = %v, Err = %v", gm.Result, gm.Err)
	}
	if !strings.Contains(gm.View(), "generation complete") {
		t.Error("view missing completion line")
	}
}

func TestGenerateModelErrorShown(t *testing.T) {
	m := NewGenerateModel("Generating promo")

	updated, _ := m.Update(generateDoneMsg{Err: errors.New("provider unreachable")})
	gm := updated.(GenerateModel)
	if !strings.Contains(gm.View(), "provider unreachable") {
		t.Error("view missing error message")
	}
}

func TestGenerateModelKeyQuit(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m := NewGenerateModel("Generating promo")

		var msg tea.KeyMsg
		switch key {
		case "q":
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}

		updated, cmd := m.Update(msg)
		if cmd == nil {
			t.Errorf("key %q should quit", key)
		}
		if !updated.(GenerateModel).Quit {
			t.Errorf("key %q did not set Quit", key)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		progress int
		filled   int
	}{
		{0, 0},
		{50, 15},
		{100, 30},
		{-10, 0},
		{150, 30},
	}
	for _, tt := range tests {
		bar := renderBar(tt.progress)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d) filled = %d, want %d", tt.progress, got, tt.filled)
		}
		if got := strings.Count(bar, "░"); got != progressBarWidth-tt.filled {
			t.Errorf("renderBar(%d) empty = %d, want %d", tt.progress, got, progressBarWidth-tt.filled)
		}
	}
}
