package plan

import (
	"github.com/jsprague/orchestra/internal/paramctx"
	"github.com/jsprague/orchestra/internal/pipedef"
)

// Plan is the fully materialized, linked output of planning a Document:
// every Executable the run will invoke, and every Pipe connecting them.
type Plan struct {
	Executables []*Executable
	Pipes       []*Pipe
}

// BySerial groups Executables by their block's serial, the unit the
// scheduler iterates over.
func (p *Plan) BySerial() map[int][]*Executable {
	out := make(map[int][]*Executable)
	for _, ex := range p.Executables {
		out[ex.BlockSerial] = append(out[ex.BlockSerial], ex)
	}
	return out
}

// Serials returns the plan's distinct block serials in ascending order.
func (p *Plan) Serials() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, ex := range p.Executables {
		if _, ok := seen[ex.BlockSerial]; !ok {
			seen[ex.BlockSerial] = struct{}{}
			out = append(out, ex.BlockSerial)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Planner expands a Document's contexts and links the resulting
// Executables into a Plan.
type Planner struct {
	Options paramctx.Options
}

// NewPlanner constructs a Planner with the given context-expansion options.
func NewPlanner(opts paramctx.Options) *Planner {
	return &Planner{Options: opts}
}

// Plan walks the document in block → script → context-instance order,
// materializing one Executable per distinct (context, block, script)
// identity and linking `takes` tags as it goes so a consumer can only ever
// resolve to a producer planned before it. The block-local producer index
// is shared by every context instance of a block, so a consumer links to
// all same-block producers of its `takes` tag, not only the one planned
// from its own context instance.
func (p *Planner) Plan(doc *pipedef.Document) (*Plan, error) {
	pipelineCtx, err := paramctx.Flatten(doc.Context, p.Options)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	seen := make(map[string]*Executable)
	link := newLinker()

	for _, block := range doc.Blocks {
		blockCtx, err := paramctx.Flatten(block.Context, p.Options)
		if err != nil {
			return nil, err
		}
		scopedBlockCtx := paramctx.Merge(pipelineCtx, blockCtx)

		for _, script := range block.Scripts {
			scriptCtx, err := paramctx.Flatten(script.Context, p.Options)
			if err != nil {
				return nil, err
			}
			instances := paramctx.Merge(scopedBlockCtx, scriptCtx)

			for _, inst := range instances {
				ex := &Executable{
					FlatContext:  inst,
					Identifier:   script.Identifier,
					ProducerTag:  script.ProducerTag,
					ImportPath:   script.ImportPath,
					BlockName:    block.Name,
					BlockSerial:  block.Serial,
					PipelineName: doc.Name,
					Version:      doc.Version,
				}
				ex.Hash = ex.ComputeHash()

				key := ex.IdentityKey()
				if existing, dup := seen[key]; dup {
					ex = existing
				} else {
					seen[key] = ex
					plan.Executables = append(plan.Executables, ex)
					link.register(ex)
				}

				if script.HasTakes {
					pipes, err := link.resolve(ex, script.TakesTag)
					if err != nil {
						return nil, err
					}
					plan.Pipes = append(plan.Pipes, pipes...)
				}
			}
		}
	}

	return plan, nil
}
