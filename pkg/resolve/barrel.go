package resolve

import (
	"slices"

	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/registry"
)

// BarrelRefiner decides which modules a barrel import pulls in.
// It is consulted only when refs imported symbols or the whole barrel.
type BarrelRefiner interface {
	Refine(reg *registry.Registry, refs *extract.References) []string
}

// ConservativeBarrel includes every module the barrel re-exports, regardless
// of which symbols were imported.
type ConservativeBarrel struct{}

// Refine returns [registry.Registry.BarrelModules].
func (ConservativeBarrel) Refine(reg *registry.Registry, _ *extract.References) []string {
	return reg.BarrelModules()
}

// SymbolIndex includes only the modules owning the imported symbols, using
// the registry symbol table. A namespace import, or any symbol missing from
// the table, falls back to the conservative set.
type SymbolIndex struct{}

// Refine maps each imported symbol to its owning module.
func (SymbolIndex) Refine(reg *registry.Registry, refs *extract.References) []string {
	if refs.WholeBarrel {
		return reg.BarrelModules()
	}
	var out []string
	for _, sym := range refs.Symbols {
		id, ok := reg.SymbolOwner(sym)
		if !ok {
			return reg.BarrelModules()
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// RefinerFor returns the refiner selected by the symbol refinement setting.
func RefinerFor(symbolRefinement bool) BarrelRefiner {
	if symbolRefinement {
		return SymbolIndex{}
	}
	return ConservativeBarrel{}
}
