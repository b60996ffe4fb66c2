// Package plan materializes a pipedef.Document into a flat list of
// Executables wired together by Pipes, ready for the scheduler to run in
// serial order.
package plan

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/jsprague/orchestra/internal/paramctx"
)

// Executable is one fully context-resolved script invocation: a single
// (block, script, context-instance) triple. Two Executables with the same
// identity (context, block, identifier, producer tag) collapse into one
// during planning even if they were reached via different expansion paths;
// Hash additionally folds in the pipeline name, version, and import path,
// and names the on-disk ingest directory the runner and scheduler use to
// exchange data.
type Executable struct {
	FlatContext  paramctx.FlatContext
	Identifier   string
	ProducerTag  string
	ImportPath   string
	BlockName    string
	BlockSerial  int
	PipelineName string
	Version      string

	Hash string

	// PipesIn counts the upstream Pipes feeding this Executable. A worker
	// must observe this many completed upstream ingest files before it is
	// safe to run. Zero means the Executable is a source: it runs as soon
	// as its serial's barrier opens.
	PipesIn  int
	Incoming []*Pipe
	Outgoing []*Pipe
}

// Pipe is a directed edge from a producer to a consumer Executable.
type Pipe struct {
	From *Executable
	To   *Executable
}

// IdentityKey is the dedup/equality key used while planning: it excludes
// Hash, Version, and ImportPath, matching the identity Executable.__eq__
// uses upstream of hashing (context instance, block, script name, producer
// tag), so that retargeting a script's path or bumping a pipeline version
// does not spuriously fork an otherwise-identical Executable.
func (e *Executable) IdentityKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s", e.FlatContext.Canonical(), e.BlockName, e.Identifier, e.ProducerTag)
}

// Canonical renders the textual form that ComputeHash digests: it is also
// the human-readable form shown in UpstreamTimeoutError diagnostics.
func (e *Executable) Canonical() string {
	return fmt.Sprintf("%s(%s)/%s/%s:%s\n%s",
		e.PipelineName, e.Version, e.BlockName, e.ProducerTag, e.ImportPath, e.FlatContext.Canonical())
}

// ComputeHash derives the SHA-1 hex digest of Canonical, used to name the
// Executable's ingest directory and scratch files.
func (e *Executable) ComputeHash() string {
	sum := sha1.Sum([]byte(e.Canonical()))
	return hex.EncodeToString(sum[:])
}
