// Package ingest implements the file-backed handoff protocol between
// Executables: each Executable gets an input packet (script directory,
// script path, params, and any upstream data) and writes a result packet a
// downstream consumer can wait on.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FilePipe names the scratch files backing one Executable's input and
// output within a shared scratch root. Current runs always write the
// "cache<hash>" name; a restart against scratch state left by an older
// release of the pipeline definition still finds its input under the
// legacy "pipe<hash>" name, so ResolveIn falls back to it when the current
// name is absent.
type FilePipe struct {
	Dir  string
	Hash string
}

// NewFilePipe constructs a FilePipe rooted at dir for the given Executable
// hash.
func NewFilePipe(dir, hash string) *FilePipe {
	return &FilePipe{Dir: dir, Hash: hash}
}

// InPath is the current-generation input file path.
func (p *FilePipe) InPath() string {
	return filepath.Join(p.Dir, fmt.Sprintf("cache%s.in", p.Hash))
}

// OutPath is the current-generation output file path.
func (p *FilePipe) OutPath() string {
	return filepath.Join(p.Dir, fmt.Sprintf("cache%s.out", p.Hash))
}

func (p *FilePipe) legacyInPath() string {
	return filepath.Join(p.Dir, fmt.Sprintf("pipe%s.in", p.Hash))
}

func (p *FilePipe) legacyOutPath() string {
	return filepath.Join(p.Dir, fmt.Sprintf("pipe%s.out", p.Hash))
}

// ResolveIn returns the path an input read should use: the current name if
// it exists, else the legacy name, else the current name with ok=false so
// callers can tell "no input yet" from "input exists".
func (p *FilePipe) ResolveIn() (path string, ok bool) {
	if fileExists(p.InPath()) {
		return p.InPath(), true
	}
	if fileExists(p.legacyInPath()) {
		return p.legacyInPath(), true
	}
	return p.InPath(), false
}

// ResolveOut mirrors ResolveIn for output files.
func (p *FilePipe) ResolveOut() (path string, ok bool) {
	if fileExists(p.OutPath()) {
		return p.OutPath(), true
	}
	if fileExists(p.legacyOutPath()) {
		return p.legacyOutPath(), true
	}
	return p.OutPath(), false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Packet is the JSON envelope written to an Executable's in-file: the
// script's working directory and path, any scalar parameters from its
// context, and the upstream data it was waiting on. Data holds exactly one
// opaque, verbatim entry per upstream Pipe — the raw text each upstream's
// external runner wrote to its own out-file — in arbitrary order; a script
// must not depend on element order.
type Packet struct {
	ScriptDirectory string                 `json:"script_directory"`
	ScriptPath      string                 `json:"script_path"`
	Params          map[string]interface{} `json:"params"`
	Data            []string               `json:"data"`
}

// WriteInput writes pkt as the Executable's input, always under the
// current-generation name, creating Dir if necessary.
func (p *FilePipe) WriteInput(pkt Packet) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("ingest: create scratch dir %s: %w", p.Dir, err)
	}
	data, err := json.MarshalIndent(pkt, "", "  ")
	if err != nil {
		return fmt.Errorf("ingest: encode input packet: %w", err)
	}
	if err := os.WriteFile(p.InPath(), data, 0o644); err != nil {
		return fmt.Errorf("ingest: write input packet: %w", err)
	}
	return nil
}

// ReadInput reads and decodes the Executable's input packet, honoring the
// legacy-name fallback.
func (p *FilePipe) ReadInput() (Packet, error) {
	var pkt Packet
	path, ok := p.ResolveIn()
	if !ok {
		return pkt, fmt.Errorf("ingest: no input packet for hash %s", p.Hash)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pkt, fmt.Errorf("ingest: read input packet: %w", err)
	}
	if err := json.Unmarshal(data, &pkt); err != nil {
		return pkt, fmt.Errorf("ingest: decode input packet: %w", err)
	}
	return pkt, nil
}

// WriteOutput writes data verbatim as the Executable's output, always
// under the current-generation name. The external runner owns this
// content and it is never parsed as JSON or any other structured format;
// a script that returns no data writes the empty byte slice.
func (p *FilePipe) WriteOutput(data []byte) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("ingest: create scratch dir %s: %w", p.Dir, err)
	}
	if err := os.WriteFile(p.OutPath(), data, 0o644); err != nil {
		return fmt.Errorf("ingest: write output packet: %w", err)
	}
	return nil
}

// ReadOutput reads the Executable's output verbatim, honoring the
// legacy-name fallback. Used by a downstream consumer to pull an upstream
// producer's data once it has finished; the result is opaque text, not
// decoded in any way.
func (p *FilePipe) ReadOutput() (string, error) {
	path, ok := p.ResolveOut()
	if !ok {
		return "", fmt.Errorf("ingest: no output packet for hash %s", p.Hash)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("ingest: read output packet: %w", err)
	}
	return string(data), nil
}

// HasOutput reports whether the Executable's output packet has been
// written yet, under either name.
func (p *FilePipe) HasOutput() bool {
	_, ok := p.ResolveOut()
	return ok
}
