// Package schedule runs a Plan: executables are grouped by their block's
// serial, and serials run one at a time as a barrier, while executables
// within a serial run concurrently across a bounded worker pool.
package schedule

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jsprague/orchestra/internal/ingest"
	"github.com/jsprague/orchestra/internal/plan"
	"github.com/jsprague/orchestra/internal/ports"
	"github.com/jsprague/orchestra/internal/runner"
)

// WorkerResult is what one Executable's run produced, success or failure.
type WorkerResult struct {
	Executable *plan.Executable
	Err        error
	Duration   time.Duration
}

// OnExecutableResult is invoked once per Executable as soon as its result
// is known, letting a caller (the CLI's live dashboard, most commonly)
// render progress incrementally instead of waiting for the whole run.
type OnExecutableResult func(WorkerResult)

// RunSummary is the scheduler's final report.
type RunSummary struct {
	Started  time.Time
	Finished time.Time
	Duration time.Duration
	Results  []WorkerResult
	Failures int
}

// Scheduler runs every Executable in a Plan against a shared ingest Store
// and Runner.
type Scheduler struct {
	Plan            *plan.Plan
	Workers         int
	Store           *ingest.Store
	Runner          runner.Runner
	WaitOpts        ingest.WaitOptions
	Logger          ports.Logger
	ScriptDirectory string
	OnResult        OnExecutableResult

	// FromSerial resumes a run at the given serial, skipping every earlier
	// one entirely (not even WaitForUpstream runs against them). Zero runs
	// the plan from its first serial, same as an unset value.
	FromSerial int
}

// Run executes the plan to completion. A failing Executable (upstream
// timeout or runner error) does not abort its serial's other workers or
// any later serial: every Executable in a serial at or after FromSerial
// gets a result.
func (s *Scheduler) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{Started: time.Now()}

	bySerial := s.Plan.BySerial()
	for _, serial := range s.Plan.Serials() {
		if serial < s.FromSerial {
			if s.Logger != nil {
				s.Logger.Debug(ctx, "skipping serial before resume point", "serial", serial, "from_serial", s.FromSerial)
			}
			continue
		}
		execs := bySerial[serial]

		if s.Logger != nil {
			s.Logger.Info(ctx, "running serial", "serial", serial, "executable_count", len(execs))
		}

		workers := s.Workers
		if workers <= 0 {
			workers = len(execs)
		}

		// slots hands out worker identity the way the teacher's executor
		// bounds per-level parallelism with a buffered channel (see
		// internal/infrastructure/engine/executor.go's sem), except each
		// token here carries a slot number instead of an empty struct so a
		// worker can log which of the Workers concurrent slots it ran in.
		slots := make(chan int, workers)
		for i := 1; i <= workers; i++ {
			slots <- i
		}

		g := new(errgroup.Group)
		g.SetLimit(workers)

		var mu sync.Mutex
		for _, ex := range execs {
			ex := ex
			g.Go(func() error {
				workerID := <-slots
				defer func() { slots <- workerID }()

				res := s.runOne(ctx, ex, workerID)

				mu.Lock()
				summary.Results = append(summary.Results, res)
				if res.Err != nil {
					summary.Failures++
				}
				mu.Unlock()

				if s.OnResult != nil {
					s.OnResult(res)
				}
				return nil
			})
		}
		_ = g.Wait() // worker funcs always return nil; failures are recorded, not propagated
	}

	summary.Finished = time.Now()
	summary.Duration = summary.Finished.Sub(summary.Started)
	return summary, nil
}

func (s *Scheduler) runOne(ctx context.Context, ex *plan.Executable, workerID int) WorkerResult {
	start := time.Now()

	upstreamData, err := s.Store.WaitForUpstream(ctx, ex, s.WaitOpts)
	if err != nil {
		return WorkerResult{Executable: ex, Err: err, Duration: time.Since(start)}
	}

	pipe := s.Store.PipeFor(ex)
	packet := ingest.Packet{
		ScriptDirectory: s.ScriptDirectory,
		ScriptPath:      ex.ImportPath,
		Params:          map[string]interface{}(ex.FlatContext),
		Data:            upstreamData,
	}
	if err := pipe.WriteInput(packet); err != nil {
		return WorkerResult{Executable: ex, Err: err, Duration: time.Since(start)}
	}

	if s.Logger != nil {
		s.Logger.Debug(ctx, "running executable",
			"executable_hash", ex.Hash, "block", ex.BlockName, "serial", ex.BlockSerial, "worker_id", workerID)
	}

	if _, err := s.Runner.Run(ctx, runner.Request{
		Hash:            ex.Hash,
		WorkerID:        workerID,
		ScriptDirectory: s.ScriptDirectory,
		ScriptPath:      filepath.Join(s.ScriptDirectory, ex.ImportPath),
		InputFile:       pipe.InPath(),
		OutputFile:      pipe.OutPath(),
	}); err != nil {
		return WorkerResult{Executable: ex, Err: err, Duration: time.Since(start)}
	}

	return WorkerResult{Executable: ex, Duration: time.Since(start)}
}
