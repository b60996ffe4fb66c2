// Package runner executes a single Executable's script against its ingest
// input file and produces an ingest output file, shelling out to an
// interpreter resolved from the script's file extension.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jsprague/orchestra/internal/ports"
	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

// Request describes one script invocation.
type Request struct {
	Hash            string
	WorkerID        int
	ScriptDirectory string
	ScriptPath      string
	InputFile       string
	OutputFile      string
	Env             map[string]string
	Stdout          io.Writer
	Stderr          io.Writer
}

// Result reports the outcome of a successful run.
type Result struct {
	Duration time.Duration
	Stdout   string
	Stderr   string
}

// Runner is the collaborator boundary between the scheduler and whatever
// actually executes a script. The default implementation shells out; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ExecRunner runs scripts as child processes, resolving an interpreter
// from the script's extension the way the source system's own script
// dispatch does, and falling back to the platform shell for .sh scripts.
type ExecRunner struct {
	Logger ports.Logger
}

// NewExecRunner constructs an ExecRunner.
func NewExecRunner(logger ports.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

var _ Runner = (*ExecRunner)(nil)

// Run invokes req's script with its input and output file paths as
// positional arguments, the convention the ingest packet protocol expects
// every script to honor.
func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	interpreter, interpArgs, err := resolveInterpreter(req.ScriptPath)
	if err != nil {
		return Result{}, streamyerrors.NewRunnerError(req.Hash, err)
	}

	args := append(append([]string{}, interpArgs...), req.ScriptPath, req.InputFile, req.OutputFile)
	cmd := exec.CommandContext(ctx, interpreter, args...)
	cmd.Dir = req.ScriptDirectory
	cmd.Env = buildEnv(req.Env)

	if r.Logger != nil {
		r.Logger.Debug(ctx, "invoking script",
			"executable_hash", req.Hash,
			"worker_id", req.WorkerID,
			"interpreter", interpreter,
			"script_path", req.ScriptPath)
	}

	start := time.Now()
	streamed, err := runStreaming(cmd, req.Stdout, req.Stderr)
	duration := time.Since(start)
	if err != nil {
		detail := errorDetail(streamed)
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return Result{Duration: duration, Stdout: streamed.Stdout, Stderr: streamed.Stderr},
			streamyerrors.NewRunnerError(req.Hash, err)
	}

	return Result{Duration: duration, Stdout: streamed.Stdout, Stderr: streamed.Stderr}, nil
}

// resolveInterpreter picks the interpreter and any leading flags for a
// script based on its extension. Shell scripts route through the
// platform's shell resolution; everything else is expected to declare its
// own interpreter (python3, node, ...) keyed by extension.
func resolveInterpreter(scriptPath string) (string, []string, error) {
	switch ext := strings.ToLower(filepath.Ext(scriptPath)); ext {
	case ".sh", "":
		return determineShell("")
	case ".py":
		if path, err := exec.LookPath("python3"); err == nil {
			return path, nil, nil
		}
		if path, err := exec.LookPath("python"); err == nil {
			return path, nil, nil
		}
		return "", nil, fmt.Errorf("no python interpreter found for %s", scriptPath)
	case ".js":
		path, err := exec.LookPath("node")
		if err != nil {
			return "", nil, fmt.Errorf("no node interpreter found for %s", scriptPath)
		}
		return path, nil, nil
	case ".rb":
		path, err := exec.LookPath("ruby")
		if err != nil {
			return "", nil, fmt.Errorf("no ruby interpreter found for %s", scriptPath)
		}
		return path, nil, nil
	default:
		return "", nil, fmt.Errorf("unrecognized script extension %q", ext)
	}
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, nil, nil
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path, nil, nil
	}
	if path, err := exec.LookPath("sh"); err == nil {
		return path, nil, nil
	}
	return "", nil, fmt.Errorf("no suitable shell found")
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	for k, v := range custom {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
