package render

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/prunepack/pkg/dag"
)

// Format names accepted by [Render].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Options configures diagram generation.
type Options struct {
	// Title is drawn above the graph when set.
	Title string
	// Detailed adds each module's paths to its label.
	Detailed bool
	// Highlight lists module IDs to emphasize. Empty highlights nothing.
	Highlight []string
}

const (
	highlightFill = "#c6f6d5"
	highlightEdge = "#2f855a"
	dimmed        = "gray60"
)

// ToDOT converts a registry graph to Graphviz DOT. Nodes and edges are
// emitted in sorted order, so equal graphs produce identical output.
//
// Modules marked always_include are drawn with a bold outline.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n", opts.Title)
		buf.WriteString("  labelloc=t;\n")
	}
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [arrowsize=0.7];\n")
	buf.WriteString("\n")

	hl := make(map[string]bool, len(opts.Highlight))
	for _, id := range opts.Highlight {
		hl[id] = true
	}
	focused := len(hl) > 0

	for _, n := range g.Nodes() {
		attrs := nodeAttrs(*n, fmtLabel(*n, opts.Detailed), focused, hl[n.ID])
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	edges := g.Edges()
	slices.SortFunc(edges, func(a, b dag.Edge) int {
		return cmp.Or(strings.Compare(a.From, b.From), strings.Compare(a.To, b.To))
	})
	if len(edges) > 0 {
		buf.WriteString("\n")
	}
	for _, e := range edges {
		switch {
		case !focused:
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		case hl[e.From] && hl[e.To]:
			fmt.Fprintf(&buf, "  %q -> %q [color=%q, penwidth=2];\n", e.From, e.To, highlightEdge)
		default:
			fmt.Fprintf(&buf, "  %q -> %q [color=%s];\n", e.From, e.To, dimmed)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dag.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}
	paths, _ := n.Meta["paths"].([]string)
	if len(paths) == 0 {
		return n.ID
	}
	return n.ID + "\n" + strings.Join(paths, "\n")
}

func nodeAttrs(n dag.Node, label string, focused, highlighted bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if always, _ := n.Meta["always_include"].(bool); always {
		attrs = append(attrs, "style=\"rounded,filled,bold\"")
	}
	switch {
	case highlighted:
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", highlightFill))
	case focused:
		attrs = append(attrs, "fontcolor="+dimmed, "color="+dimmed)
	}
	return attrs
}

// Render returns the diagram in the given format.
func Render(ctx context.Context, g *dag.DAG, format string, opts Options) ([]byte, error) {
	dot := ToDOT(g, opts)
	switch format {
	case FormatDOT, "":
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported format %q (must be one of: dot, svg)", format)
	}
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
