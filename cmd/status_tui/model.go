// Package status_tui renders a live terminal view of a single project's
// pipeline state, following the state file as the orchestrator advances
// it from another process.
package status_tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/conveyordev/conveyor/pkg/pipeline"
)

const pollInterval = time.Second

type tickMsg time.Time

type stateMsg struct {
	state  *pipeline.State
	alerts int
	err    error
}

// Model is the bubbletea model for the status watch view.
type Model struct {
	dir     string
	keys    keyMap
	spinner spinner.Model

	state    *pipeline.State
	alerts   int
	err      error
	lastLoad time.Time
	width    int
}

// New creates a watch model for the project directory.
func New(dir string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		dir:     dir,
		keys:    defaultKeyMap(),
		spinner: sp,
	}
}

// Run starts the watch view and blocks until the user quits.
func Run(dir string) error {
	p := tea.NewProgram(New(dir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadState(m.dir), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadState(dir string) tea.Cmd {
	return func() tea.Msg {
		st, err := pipeline.NewStore(dir).Load()
		if err != nil {
			return stateMsg{err: err}
		}
		alerts, err := pipeline.NewAlertStore(dir).List()
		if err != nil {
			return stateMsg{state: st, err: err}
		}
		return stateMsg{state: st, alerts: len(alerts)}
	}
}
