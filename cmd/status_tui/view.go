package status_tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/muesli/termenv"
)

var (
	subtleColor = func() lipgloss.Color {
		if termenv.HasDarkBackground() {
			return lipgloss.Color("241")
		}
		return lipgloss.Color("250")
	}()

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle  = lipgloss.NewStyle().Foreground(subtleColor).Width(11)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 1)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("conveyor status"))
	b.WriteString("  " + m.spinner.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
	case m.state == nil:
		b.WriteString("loading state...")
	default:
		b.WriteString(m.renderState())
	}

	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("keys:") + " r refresh · q quit")
	return borderStyle.Render(b.String())
}

func (m Model) renderState() string {
	st := m.state
	var b strings.Builder

	b.WriteString(labelStyle.Render("project") + st.ProjectID + "\n")
	b.WriteString(labelStyle.Render("stage") + renderStage(st.Stage) + "\n")

	for _, key := range []string{"ideation", "planning", "dev", "qa"} {
		b.WriteString(labelStyle.Render(key) +
			fmt.Sprintf("%d/%d", st.Iteration[key], st.Limits[key+"_max"]) + "\n")
	}

	if st.Quality.ReviewScore != nil {
		b.WriteString(labelStyle.Render("review") +
			fmt.Sprintf("%.1f (required %.1f)", *st.Quality.ReviewScore, st.Quality.RequiredScore) + "\n")
	}
	if st.Quality.TestsPassed != nil {
		b.WriteString(labelStyle.Render("tests") + fmt.Sprintf("passed=%t", *st.Quality.TestsPassed) + "\n")
	}

	switch st.Stage {
	case pipeline.StagePausedQuota:
		b.WriteString(warnStyle.Render("paused: "+st.PausedReason) + "\n")
	case pipeline.StageRejected:
		b.WriteString(errStyle.Render("rejected: "+st.RejectedReason) + "\n")
	}
	if m.alerts > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d pending alert(s)", m.alerts)) + "\n")
	}

	if !st.LastUpdated.IsZero() {
		b.WriteString(labelStyle.Render("updated") + st.LastUpdated.Format("15:04:05") + "\n")
	}
	return b.String()
}

func renderStage(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageDone:
		return okStyle.Render(string(stage))
	case pipeline.StagePausedQuota:
		return warnStyle.Render(string(stage))
	case pipeline.StageRejected:
		return errStyle.Render(string(stage))
	default:
		return activeStyle.Render(string(stage))
	}
}
