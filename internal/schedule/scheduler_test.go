package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsprague/orchestra/internal/ingest"
	"github.com/jsprague/orchestra/internal/plan"
	"github.com/jsprague/orchestra/internal/runner"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []runner.Request
	fail  map[string]bool
}

func (f *fakeRunner) Run(ctx context.Context, req runner.Request) (runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.fail[req.Hash] {
		return runner.Result{}, assertError{req.Hash}
	}

	pipe := ingest.NewFilePipe(dirOf(req.OutputFile), req.Hash)
	_ = pipe.WriteOutput([]byte("ok"))
	return runner.Result{}, nil
}

type assertError struct{ hash string }

func (e assertError) Error() string { return "boom: " + e.hash }

func dirOf(path string) string {
	idx := lastSlash(path)
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

func buildPlanSingleSource(t *testing.T) *plan.Plan {
	t.Helper()
	ex := &plan.Executable{
		FlatContext:  map[string]interface{}{"env": "prod"},
		Identifier:   "fetch",
		ProducerTag:  "raw",
		ImportPath:   "fetch.sh",
		BlockName:    "ingest",
		BlockSerial:  0,
		PipelineName: "demo",
		Version:      "1",
	}
	ex.Hash = ex.ComputeHash()
	return &plan.Plan{Executables: []*plan.Executable{ex}}
}

func TestSchedulerRunsSingleSourceExecutable(t *testing.T) {
	t.Parallel()

	p := buildPlanSingleSource(t)
	store := &ingest.Store{RootDir: t.TempDir()}
	fr := &fakeRunner{fail: map[string]bool{}}

	var results []WorkerResult
	sched := &Scheduler{
		Plan:            p,
		Workers:         2,
		Store:           store,
		Runner:          fr,
		WaitOpts:        ingest.DefaultWaitOptions(),
		ScriptDirectory: "/scripts",
		OnResult:        func(r WorkerResult) { results = append(results, r) },
	}

	summary, err := sched.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, 0, summary.Failures)
	require.Len(t, results, 1)
	require.True(t, summary.Duration >= 0)
}

func TestSchedulerRecordsFailureWithoutAbortingOtherWork(t *testing.T) {
	t.Parallel()

	failing := &plan.Executable{Identifier: "bad", ProducerTag: "bad-tag", ImportPath: "bad.sh", BlockName: "ingest", BlockSerial: 0, FlatContext: map[string]interface{}{}}
	failing.Hash = failing.ComputeHash()
	okEx := &plan.Executable{Identifier: "ok", ProducerTag: "ok-tag", ImportPath: "ok.sh", BlockName: "ingest", BlockSerial: 0, FlatContext: map[string]interface{}{}}
	okEx.Hash = okEx.ComputeHash()

	p := &plan.Plan{Executables: []*plan.Executable{failing, okEx}}
	store := &ingest.Store{RootDir: t.TempDir()}
	fr := &fakeRunner{fail: map[string]bool{failing.Hash: true}}

	sched := &Scheduler{
		Plan:            p,
		Workers:         2,
		Store:           store,
		Runner:          fr,
		WaitOpts:        ingest.DefaultWaitOptions(),
		ScriptDirectory: "/scripts",
	}

	summary, err := sched.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	require.Equal(t, 1, summary.Failures)
}

func TestSchedulerAssignsWorkerIDWithinPoolBounds(t *testing.T) {
	t.Parallel()

	execs := make([]*plan.Executable, 0, 6)
	for i := 0; i < 6; i++ {
		ex := &plan.Executable{
			Identifier:  "fetch",
			ProducerTag: "raw",
			ImportPath:  "fetch.sh",
			BlockName:   "ingest",
			BlockSerial: 0,
			FlatContext: map[string]interface{}{"i": i},
		}
		ex.Hash = ex.ComputeHash()
		execs = append(execs, ex)
	}

	p := &plan.Plan{Executables: execs}
	store := &ingest.Store{RootDir: t.TempDir()}
	fr := &fakeRunner{fail: map[string]bool{}}

	sched := &Scheduler{
		Plan:            p,
		Workers:         2,
		Store:           store,
		Runner:          fr,
		WaitOpts:        ingest.DefaultWaitOptions(),
		ScriptDirectory: "/scripts",
	}

	_, err := sched.Run(context.Background())
	require.NoError(t, err)

	fr.mu.Lock()
	defer fr.mu.Unlock()
	require.Len(t, fr.calls, 6)
	for _, call := range fr.calls {
		require.GreaterOrEqual(t, call.WorkerID, 1)
		require.LessOrEqual(t, call.WorkerID, 2)
	}
}

func TestSchedulerFromSerialSkipsEarlierSerials(t *testing.T) {
	t.Parallel()

	first := &plan.Executable{Identifier: "fetch", ProducerTag: "raw", ImportPath: "fetch.sh", BlockName: "ingest", BlockSerial: 0, FlatContext: map[string]interface{}{}}
	first.Hash = first.ComputeHash()
	second := &plan.Executable{Identifier: "clean", ProducerTag: "clean", ImportPath: "clean.sh", BlockName: "transform", BlockSerial: 1, FlatContext: map[string]interface{}{}}
	second.Hash = second.ComputeHash()

	p := &plan.Plan{Executables: []*plan.Executable{first, second}}
	store := &ingest.Store{RootDir: t.TempDir()}
	fr := &fakeRunner{fail: map[string]bool{}}

	sched := &Scheduler{
		Plan:            p,
		Workers:         2,
		Store:           store,
		Runner:          fr,
		WaitOpts:        ingest.DefaultWaitOptions(),
		ScriptDirectory: "/scripts",
		FromSerial:      1,
	}

	summary, err := sched.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, second.Hash, summary.Results[0].Executable.Hash)
}

func TestSchedulerWaitsAcrossSerials(t *testing.T) {
	t.Parallel()

	producer := &plan.Executable{Identifier: "fetch", ProducerTag: "raw", ImportPath: "fetch.sh", BlockName: "ingest", BlockSerial: 0, FlatContext: map[string]interface{}{}}
	producer.Hash = producer.ComputeHash()
	consumer := &plan.Executable{Identifier: "clean", ProducerTag: "clean", ImportPath: "clean.sh", BlockName: "transform", BlockSerial: 1, FlatContext: map[string]interface{}{}}
	consumer.Hash = consumer.ComputeHash()
	pipe := &plan.Pipe{From: producer, To: consumer}
	producer.Outgoing = append(producer.Outgoing, pipe)
	consumer.Incoming = append(consumer.Incoming, pipe)
	consumer.PipesIn = 1

	p := &plan.Plan{Executables: []*plan.Executable{producer, consumer}, Pipes: []*plan.Pipe{pipe}}
	store := &ingest.Store{RootDir: t.TempDir()}
	fr := &fakeRunner{fail: map[string]bool{}}

	sched := &Scheduler{
		Plan:            p,
		Workers:         2,
		Store:           store,
		Runner:          fr,
		WaitOpts:        ingest.WaitOptions{PollInterval: time.Millisecond, MaxPolls: 50},
		ScriptDirectory: "/scripts",
	}

	summary, err := sched.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 0, summary.Failures)
}
