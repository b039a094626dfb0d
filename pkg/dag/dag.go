package dag

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	// All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the same
	// ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is matched by every [*CycleError] through errors.Is.
	// Cycles are detected using depth-first search with white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// CycleError reports a dependency cycle found while traversing the graph.
// Path starts and ends with the same node: [a b c a] means a → b → c → a.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Is makes errors.Is(err, ErrGraphHasCycle) succeed for cycle errors.
func (e *CycleError) Is(target error) bool { return target == ErrGraphHasCycle }

// Metadata stores arbitrary key-value pairs attached to nodes or edges.
// Registries use it to carry module paths and the always-include flag into
// renderers. Metadata maps are never nil after AddNode/AddEdge.
type Metadata map[string]any

// Node is a module in the dependency graph.
type Node struct {
	ID   string   // Unique identifier (module ID)
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge is a directed "depends on" connection: From needs To.
type Edge struct {
	From string   // Dependent module ID
	To   string   // Dependency module ID
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// DAG is a directed graph of module dependencies. Despite the name it can hold
// cycles; [DAG.Closure] reports any it reaches.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent mutation. Once built, concurrent reads
// (including Closure) are safe.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // nodeID -> dependency IDs
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	node := &n
	d.nodes[node.ID] = node
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode if the From node doesn't exist, or
// ErrUnknownTargetNode if the To node doesn't exist. Adding an edge that
// already exists is a no-op.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	return nil
}

// Nodes returns all nodes sorted by ID. The returned slice contains pointers
// to the actual node structs, so modifications affect the graph.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// Children returns the IDs of the node's dependencies, in insertion order.
// The returned slice should not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Closure returns the smallest set of node IDs that contains every seed and is
// closed under outgoing edges. The result is sorted. Seeds that are not in the
// graph are ignored.
//
// A cycle reachable from the seeds is returned as a *CycleError instead of a
// partial result.
func (d *DAG) Closure(seeds []string) ([]string, error) {
	known := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := d.nodes[s]; ok {
			known = append(known, s)
		}
	}
	slices.Sort(known)
	visited, err := d.walk(slices.Compact(known))
	if err != nil {
		return nil, err
	}
	slices.Sort(visited)
	return visited, nil
}

// walk runs a white/gray/black depth-first search from each start node and
// returns every node reached. A gray node seen again closes a cycle; the
// cycle path is rebuilt from the current DFS stack.
func (d *DAG) walk(starts []string) ([]string, error) {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var (
		stack   []string
		visited []string
		cycle   []string
	)

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		visited = append(visited, id)
		children := slices.Clone(d.Children(id))
		slices.Sort(children)
		for _, child := range children {
			switch color[child] {
			case white:
				if !dfs(child) {
					return false
				}
			case gray:
				at := slices.Index(stack, child)
				cycle = append(slices.Clone(stack[at:]), child)
				return false
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return true
	}

	for _, id := range starts {
		if color[id] == white && !dfs(id) {
			return nil, &CycleError{Path: cycle}
		}
	}
	return visited, nil
}
