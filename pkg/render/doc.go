// Package render draws laid-out diagrams for quick inspection outside
// Threat Dragon.
//
// # Overview
//
// [ToDOT] converts a [diagram.Diagram] into Graphviz DOT source in which
// every positioned cell is pinned at its computed coordinates, so the
// picture shows exactly the layout the threat model document carries:
//
//   - processes become fixed-size ellipses, dashed when out of scope
//   - trust boundaries become dashed boxes drawn beneath the processes
//   - flows become labelled edges between their endpoint cells
//
// Stroke colours and widths are taken from the cell attributes, so elements
// with resolved threats keep their warning colour.
//
// # Rendering
//
// [RenderSVG] and [RenderPNG] run the DOT source through the neato engine
// of [github.com/goccy/go-graphviz], in process:
//
//	dot := render.ToDOT(d)
//	svg, err := render.RenderSVG(ctx, dot)
//
// Flows with an unresolved endpoint are left out of the drawing.
package render
