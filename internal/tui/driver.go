package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsprague/orchestra/internal/schedule"
)

// RunWithDashboard runs sched to completion while rendering a live
// dashboard of its results on the terminal. The scheduler itself is
// untouched: this only wires its OnResult callback to feed the Bubble Tea
// program, and restores whatever OnResult sched already had when done.
func RunWithDashboard(ctx context.Context, sched *schedule.Scheduler) (*schedule.RunSummary, error) {
	results := make(chan schedule.WorkerResult)

	previous := sched.OnResult
	sched.OnResult = func(res schedule.WorkerResult) {
		if previous != nil {
			previous(res)
		}
		results <- res
	}
	defer func() { sched.OnResult = previous }()

	total := len(sched.Plan.Executables)

	type outcome struct {
		summary *schedule.RunSummary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := sched.Run(ctx)
		close(results)
		done <- outcome{summary, err}
	}()

	program := tea.NewProgram(NewModel(total, results))
	if _, err := program.Run(); err != nil {
		<-done
		return nil, err
	}

	out := <-done
	return out.summary, out.err
}
