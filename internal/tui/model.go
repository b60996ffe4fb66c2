// Package tui renders a live progress dashboard for a pipeline run,
// fed by the scheduler's per-Executable result callback rather than
// polling.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsprague/orchestra/internal/schedule"
)

// resultMsg carries one Executable's finished result into the Bubble Tea
// event loop.
type resultMsg schedule.WorkerResult

// doneMsg signals the results channel closed: the run is over.
type doneMsg struct{}

const maxVisibleResults = 12

// Model is the dashboard's Bubble Tea model.
type Model struct {
	spinner   spinner.Model
	total     int
	completed int
	failed    int
	recent    []schedule.WorkerResult
	results   <-chan schedule.WorkerResult
	done      bool
	width     int
}

// NewModel constructs a dashboard expecting total results on results.
func NewModel(total int, results <-chan schedule.WorkerResult) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		spinner: s,
		total:   total,
		results: results,
		width:   80,
	}
}

// Init starts the spinner and the first wait on the results channel.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForResult(m.results))
}

func waitForResult(ch <-chan schedule.WorkerResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return resultMsg(res)
	}
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.completed++
		if msg.Err != nil {
			m.failed++
		}
		m.recent = append(m.recent, schedule.WorkerResult(msg))
		if len(m.recent) > maxVisibleResults {
			m.recent = m.recent[len(m.recent)-maxVisibleResults:]
		}
		return m, waitForResult(m.results)

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	status := m.spinner.View()
	if m.done {
		status = okStyle.Render("done")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s orchestrating %d executable(s)", status, m.total)))
	b.WriteByte('\n')

	for _, res := range m.recent {
		if res.Err != nil {
			b.WriteString(failStyle.Render(fmt.Sprintf("  x %s/%s: %v", res.Executable.BlockName, res.Executable.Identifier, res.Err)))
		} else {
			b.WriteString(okStyle.Render(fmt.Sprintf("  + %s/%s (%s)", res.Executable.BlockName, res.Executable.Identifier, res.Duration.Round(time.Millisecond))))
		}
		b.WriteByte('\n')
	}

	b.WriteString(footerStyle.Render(fmt.Sprintf("%d/%d complete, %d failed", m.completed, m.total, m.failed)))
	return mutedStyle.Width(m.width).Render(b.String())
}
