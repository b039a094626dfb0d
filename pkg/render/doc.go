// Package render draws the module registry as a node-link diagram.
//
// [ToDOT] emits Graphviz DOT source for the depends_on graph. When a unit's
// resolved modules are passed as a highlight set, those modules and the
// edges between them are emphasized and the rest of the registry is dimmed,
// which makes it easy to see why a module ended up in an archive.
//
//	dot := render.ToDOT(reg.Graph(), render.Options{Highlight: res.Modules})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package render
