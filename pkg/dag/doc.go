// Package dag provides the module dependency graph used by prunepack.
//
// # Overview
//
// A registry declares modules and their "depends on" edges. This package
// stores those edges as a directed graph and answers the one question the
// resolver needs: given a set of seed modules, which modules must ship
// alongside them?
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]. Edges point from a module to the module it depends on:
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "net"})
//	g.AddNode(dag.Node{ID: "core"})
//	g.AddEdge(dag.Edge{From: "net", To: "core"})
//
//	ids, err := g.Closure([]string{"net"}) // [core net]
//
// # Cycles
//
// [DAG.Closure] uses depth-first search with white/gray/black coloring, so a dependency cycle is found in O(N+E) time and reported as a
// [*CycleError] carrying the full cycle path. There is no iteration ceiling:
// arbitrarily deep but acyclic registries always resolve.
//
// # Metadata
//
// Nodes and edges carry arbitrary metadata via [Metadata] maps.
// Registries store module paths and flags there so renderers can label nodes
// without importing the registry package.
//
// # Concurrency
//
// DAG instances are not safe for concurrent mutation. A fully built graph is
// read-only and may be shared by every unit task of a run.
package dag
