package plan

import (
	"fmt"

	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

// linker resolves a script's `takes` tag to the upstream Executable(s) it
// pipes from. It prefers a match within the consuming script's own block
// (block-local scope) and only falls back to the whole pipeline planned so
// far (pipeline-global scope) when no block-local producer exists. A
// `takes` tag that resolves to nothing planned yet is a PlanError: a
// consumer may only reference a producer that appears at or before it in
// block document order, so forward references and typos are both caught
// here rather than left to a runtime upstream timeout.
type linker struct {
	blockIndex  map[string]map[string][]*Executable
	globalIndex map[string][]*Executable
}

func newLinker() *linker {
	return &linker{
		blockIndex:  make(map[string]map[string][]*Executable),
		globalIndex: make(map[string][]*Executable),
	}
}

func (l *linker) register(ex *Executable) {
	if l.blockIndex[ex.BlockName] == nil {
		l.blockIndex[ex.BlockName] = make(map[string][]*Executable)
	}
	l.blockIndex[ex.BlockName][ex.ProducerTag] = append(l.blockIndex[ex.BlockName][ex.ProducerTag], ex)
	l.globalIndex[ex.ProducerTag] = append(l.globalIndex[ex.ProducerTag], ex)
}

// resolve links consumer to every producer candidate registered under tag:
// block-local candidates if any exist, else every pipeline-global candidate.
// Candidates link unconditionally, with no context-compatibility filter —
// a producer expanded across multiple context instances (e.g. sharded by a
// key the consumer doesn't share) fans in to a single consumer exactly as
// the pipeline-global index lists it. PipesIn and Outgoing are updated on
// both ends.
func (l *linker) resolve(consumer *Executable, tag string) ([]*Pipe, error) {
	candidates := l.blockIndex[consumer.BlockName][tag]
	if len(candidates) == 0 {
		candidates = l.globalIndex[tag]
	}

	var matches []*Executable
	for _, producer := range candidates {
		if producer == consumer {
			continue
		}
		matches = append(matches, producer)
	}

	if len(matches) == 0 {
		return nil, streamyerrors.NewPlanError(
			fmt.Sprintf("%s/%s", consumer.BlockName, consumer.Identifier),
			fmt.Sprintf("takes tag %q resolves to no producer planned before it", tag),
			nil)
	}

	pipes := make([]*Pipe, 0, len(matches))
	for _, producer := range matches {
		pipe := &Pipe{From: producer, To: consumer}
		producer.Outgoing = append(producer.Outgoing, pipe)
		consumer.Incoming = append(consumer.Incoming, pipe)
		consumer.PipesIn++
		pipes = append(pipes, pipe)
	}
	return pipes, nil
}
