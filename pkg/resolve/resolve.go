// Package resolve turns the raw references of a unit into the transitively
// closed set of registry modules it needs.
//
// Resolution has three inputs: exact shared-root paths reported by a
// compiler-backed lister, deep imports matched against import patterns, and
// barrel usage refined by a [BarrelRefiner]. The union is seeded with every
// always-include module and closed over depends_on edges. A dependency cycle
// aborts resolution for the unit instead of yielding a truncated set.
//
// A failed extraction never produces a smaller set: [Resolver.Resolve]
// returns the whole module universe with FullTree set.
package resolve

import (
	"errors"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/prunepack/pkg/dag"
	perrors "github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/registry"
)

// Result is the resolved module set of one unit.
type Result struct {
	// Modules is the sorted, closed set of module IDs.
	Modules []string
	// FullTree is set when the entire shared tree must be packaged.
	FullTree bool
	// Reason explains FullTree, e.g. "extraction failed" or "pruning disabled".
	Reason string
	// Unmatched lists deep references no import pattern covers.
	Unmatched []string
}

// Resolver maps references to modules using a registry.
type Resolver struct {
	Registry *registry.Registry
	Refiner  BarrelRefiner
	Logger   *log.Logger
}

// New creates a resolver. A nil refiner selects [ConservativeBarrel].
func New(reg *registry.Registry, refiner BarrelRefiner, logger *log.Logger) *Resolver {
	if refiner == nil {
		refiner = ConservativeBarrel{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{Registry: reg, Refiner: refiner, Logger: logger}
}

// Resolve computes the module closure for refs.
//
// A nil or failed reference set yields the full-tree result. A dependency
// cycle returns a CLOSURE_DID_NOT_CONVERGE error naming the cycle.
func (r *Resolver) Resolve(refs *extract.References) (*Result, error) {
	if refs == nil || refs.Failed {
		res := r.ResolveAll()
		res.Reason = "extraction failed"
		return res, nil
	}

	seeds := make(map[string]struct{})
	add := func(ids ...string) {
		for _, id := range ids {
			seeds[id] = struct{}{}
		}
	}

	for _, p := range refs.Exact {
		if id, ok := r.Registry.ModuleForPath(p); ok {
			add(id)
		}
	}

	var unmatched []string
	for _, ref := range refs.Deep {
		p, ok := r.Registry.Match(ref)
		if !ok {
			unmatched = append(unmatched, ref)
			continue
		}
		add(p.Targets...)
	}
	for _, ref := range unmatched {
		r.Logger.Warn("uncategorized import", "ref", ref)
	}

	if refs.UsesBarrel() {
		add(r.Refiner.Refine(r.Registry, refs)...)
	}
	add(r.Registry.AlwaysInclude()...)

	closed, err := r.Registry.Graph().Closure(sortedKeys(seeds))
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, perrors.Wrap(perrors.ErrCodeClosureDidNotConverge, err, "dependency closure")
		}
		return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "dependency closure")
	}

	return &Result{Modules: closed, Unmatched: unmatched}, nil
}

// ResolveAll returns every module in the registry as a full-tree result.
func (r *Resolver) ResolveAll() *Result {
	return &Result{Modules: r.Registry.IDs(), FullTree: true, Reason: "pruning disabled"}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
