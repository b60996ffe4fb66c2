package ingest

import (
	"context"
	"time"

	"github.com/jsprague/orchestra/internal/plan"
	"github.com/jsprague/orchestra/internal/ports"
	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

// WaitOptions bounds the poll loop a worker runs before giving up on an
// Executable's upstream producers.
type WaitOptions struct {
	PollInterval time.Duration
	MaxPolls     int
}

// DefaultWaitOptions matches the source system's defaults: poll every
// second, give up after twenty tries.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{PollInterval: time.Second, MaxPolls: 20}
}

// Store resolves the scratch directory an Executable's FilePipe lives in.
type Store struct {
	RootDir string
}

// PipeFor returns the FilePipe for the given Executable, rooted under the
// store's scratch directory.
func (s *Store) PipeFor(ex *plan.Executable) *FilePipe {
	return NewFilePipe(s.RootDir, ex.Hash)
}

// WaitForUpstream blocks until every Incoming pipe of ex has a completed
// output packet, or returns an UpstreamTimeoutError once MaxPolls poll
// intervals have passed with some producer still pending (MaxPolls+1
// checks in all). An Executable with no incoming pipes returns
// immediately: it is a source and has nothing to wait for. On success the
// result holds exactly one entry per Incoming pipe — each upstream's raw,
// verbatim output — in arbitrary order (P7; scripts must not depend on
// element order).
func (s *Store) WaitForUpstream(ctx context.Context, ex *plan.Executable, opts WaitOptions) ([]string, error) {
	if len(ex.Incoming) == 0 {
		return nil, nil
	}

	for attempt := 0; ; attempt++ {
		remaining := s.pendingProducers(ex)
		if len(remaining) == 0 {
			break
		}

		if attempt >= opts.MaxPolls {
			return nil, streamyerrors.NewUpstreamTimeoutError(ex.Hash, ex.Canonical(), attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.PollInterval):
		}
	}

	data := make([]string, 0, len(ex.Incoming))
	for _, pipe := range ex.Incoming {
		out, err := s.PipeFor(pipe.From).ReadOutput()
		if err != nil {
			return nil, err
		}
		data = append(data, out)
	}
	return data, nil
}

func (s *Store) pendingProducers(ex *plan.Executable) []*plan.Executable {
	var pending []*plan.Executable
	for _, pipe := range ex.Incoming {
		if !s.PipeFor(pipe.From).HasOutput() {
			pending = append(pending, pipe.From)
		}
	}
	return pending
}

// LogWait emits a debug log entry describing a pending wait: the
// Executable's hash, the current attempt, the poll budget, and PipesIn.
func LogWait(ctx context.Context, logger ports.Logger, ex *plan.Executable, attempt, maxPolls int) {
	logger.Debug(ctx, "waiting for upstream",
		"executable_hash", ex.Hash,
		"attempt", attempt,
		"max_polls", maxPolls,
		"pipes_in", ex.PipesIn)
}
