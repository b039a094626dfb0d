// Package pkg provides the core libraries for prunepack.
//
// # Overview
//
// Prunepack packages each serverless unit of a monorepo (a Go function or a
// TypeScript handler) into its own deployment archive, carrying only the part
// of the shared code tree the unit actually reaches. The pkg directory is
// organized into four areas:
//
//  1. Domain model: [registry], [dag], [project]
//  2. Analysis: [extract], [resolve], [materialize], [validate]
//  3. Output: [archive], [render]
//  4. Orchestration: [pipeline], [cache], [observability]
//
// # Architecture
//
// The data flow for one unit:
//
//	unit sources
//	     ↓
//	[extract] raw references to shared code (lister output or import scan)
//	     ↓
//	[resolve] registry modules, closed over depends_on
//	     ↓
//	[materialize] shared paths plus their ancestor directories
//	     ↓
//	[archive] staged tree → deterministic <unit>.zip
//
// When extraction fails the unit is packaged with the full shared tree; a
// unit that is too large is preferable to one that fails at runtime.
//
// # Quick Start
//
//	reg, _ := registry.Load("shared_modules.json", registry.WithBarrel("@acme/shared"))
//	desc := project.NewTypeScript(project.TypeScriptOptions{Root: "server/ts", SharedDir: "shared", SharedDest: "shared"})
//	eco := &pipeline.Ecosystem{
//	    Descriptor: desc,
//	    Registry:   reg,
//	    Extractor:  extract.NewPatternExtractor(reg.Barrel(), nil, logger),
//	    Resolver:   resolve.New(reg, resolve.ConservativeBarrel{}, logger),
//	}
//	units, _ := desc.Discover()
//	summary := pipeline.NewRunner(archive.NewBuilder("/tmp/prunepack", logger), logger).
//	    Build(ctx, eco, units, pipeline.Options{Workers: 8})
//
// # Main Packages
//
// [registry] - The declarative module registry: modules, their paths and
// dependencies, import patterns, and the barrel symbol table. Loaded from
// JSON, YAML or TOML, or derived from a Go package tree.
//
// [dag] - Module dependency graph with cycle-detecting transitive closure.
//
// [extract] - Reference extraction. A compiler-backed lister for Go, a
// tree-sitter and pattern scanner for TypeScript, and a content-addressed
// cache in front of both.
//
// [resolve] - Maps references to modules through exact paths, longest-prefix
// import patterns and barrel refinement, then closes over dependencies.
//
// [validate] - Static checks of a registry against the shared tree.
//
// [archive] - Staging and deterministic zip writing.
//
// [render] - Graphviz rendering of the registry graph.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/resolve/...            # Specific package
//	go test -run Example ./pkg/dag       # Examples only
//
// [registry]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/registry
// [dag]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/dag
// [project]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/project
// [extract]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/extract
// [resolve]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/resolve
// [materialize]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/materialize
// [validate]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/validate
// [archive]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/archive
// [render]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/prunepack/pkg/observability
package pkg
