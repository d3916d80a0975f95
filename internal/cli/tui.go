package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkrolls/zoneforge/pkg/orchestrator"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

// =============================================================================
// GenerateModel - Live generation progress
// =============================================================================

// progressBarWidth is the character width of the rendered progress bar.
const progressBarWidth = 30

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorDim)
	stateStyle     = lipgloss.NewStyle().Foreground(colorGray)
)

// snapshotMsg carries an orchestrator snapshot into the model.
type snapshotMsg struct {
	Snapshot orchestrator.Snapshot
}

// generateDoneMsg carries the pipeline outcome into the model.
type generateDoneMsg struct {
	Result *pipeline.Result
	Err    error
}

// GenerateModel is the bubbletea model showing live generation progress.
// Snapshots arrive via program.Send from the orchestrator's OnProgress hook,
// so the model never polls shared state.
type GenerateModel struct {
	Title    string
	Snapshot orchestrator.Snapshot
	Result   *pipeline.Result
	Err      error
	Quit     bool
	done     bool
}

// NewGenerateModel creates a progress model for one generation run.
func NewGenerateModel(title string) GenerateModel {
	return GenerateModel{Title: title}
}

func (m GenerateModel) Init() tea.Cmd {
	return nil
}

func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quit = true
			return m, tea.Quit
		}
	case snapshotMsg:
		m.Snapshot = msg.Snapshot
		return m, nil
	case generateDoneMsg:
		m.Result = msg.Result
		m.Err = msg.Err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m GenerateModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q cancel"))
	b.WriteString("\n\n")

	b.WriteString("  " + renderBar(m.Snapshot.Progress))
	b.WriteString(fmt.Sprintf(" %3d%%", m.Snapshot.Progress))
	b.WriteString("\n\n")

	state := string(m.Snapshot.State)
	if state == "" {
		state = string(orchestrator.StateIdle)
	}
	b.WriteString("  " + stateStyle.Render("state") + "    " + StyleValue.Render(state) + "\n")
	b.WriteString("  " + stateStyle.Render("attempt") + "  " + StyleValue.Render(fmt.Sprintf("%d", m.Snapshot.Attempt+1)) + "\n")
	if m.Snapshot.Pending > 0 {
		b.WriteString("  " + StyleWarning.Render(fmt.Sprintf("%d request(s) waiting", m.Snapshot.Pending)) + "\n")
	}

	if m.done {
		b.WriteString("\n")
		if m.Err != nil {
			b.WriteString("  " + styleIconError.Render(iconError) + " " + m.Err.Error() + "\n")
		} else {
			b.WriteString("  " + styleIconSuccess.Render(iconSuccess) + " generation complete\n")
		}
	}

	return b.String()
}

// renderBar draws a fixed-width progress bar for a 0-100 value.
func renderBar(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * progressBarWidth / 100
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", progressBarWidth-filled))
}
