package runner

import (
	"bytes"
	"io"
	"os/exec"
	"strings"
)

// streamResult captures stdout/stderr emitted by a streaming command run.
type streamResult struct {
	Stdout string
	Stderr string
}

// runStreaming runs cmd to completion, tee-ing its stdout/stderr into buf
// while still returning the accumulated text for error reporting.
func runStreaming(cmd *exec.Cmd, stdout, stderr io.Writer) (streamResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if stdout != nil {
		cmd.Stdout = io.MultiWriter(stdout, &stdoutBuf)
	} else {
		cmd.Stdout = &stdoutBuf
	}
	if stderr != nil {
		cmd.Stderr = io.MultiWriter(stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	return streamResult{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

// errorDetail picks the most useful line to surface in a RunnerError:
// stderr when the script wrote one, stdout otherwise.
func errorDetail(res streamResult) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}
