package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/stridegraph/pkg/diagram"
)

// pointsPerInch converts cell pixels into Graphviz inches.
const pointsPerInch = 72.0

// ToDOT converts a laid-out diagram to Graphviz DOT with pinned positions.
// Boundary boxes are emitted first so processes are drawn on top of them.
func ToDOT(d diagram.Diagram) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  label=%q;\n", d.Title)
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  outputorder=nodesfirst;\n")
	buf.WriteString("  node [fixedsize=true, fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontsize=10, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for _, c := range d.Cells {
		if c.Shape == diagram.ShapeBoundary && c.IsPlaced() {
			fmt.Fprintf(&buf, "  %q [%s];\n", c.ID, strings.Join(boundaryAttrs(c), ", "))
		}
	}
	for _, c := range d.Cells {
		if c.Shape == diagram.ShapeProcess && c.IsPlaced() {
			fmt.Fprintf(&buf, "  %q [%s];\n", c.ID, strings.Join(processAttrs(c), ", "))
		}
	}

	buf.WriteString("\n")
	for _, c := range d.Cells {
		if c.Shape != diagram.ShapeFlow || c.Source == nil || c.Target == nil {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", c.Source.Cell, c.Target.Cell, strings.Join(flowAttrs(c), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// pin places the centre of a cell. Graphviz's y axis points up.
func pin(c diagram.Cell) string {
	x := c.Position.X + float64(c.Size.Width)/2
	y := c.Position.Y + float64(c.Size.Height)/2
	return fmt.Sprintf("pos=\"%s,%s!\"", inches(x), inches(-y))
}

func geometry(c diagram.Cell) []string {
	return []string{
		pin(c),
		"width=" + inches(float64(c.Size.Width)),
		"height=" + inches(float64(c.Size.Height)),
	}
}

func processAttrs(c diagram.Cell) []string {
	attrs := append([]string{"shape=ellipse", fmt.Sprintf("label=%q", c.Name())}, geometry(c)...)
	if a, ok := c.Attrs.(diagram.ProcessAttrs); ok {
		attrs = append(attrs, stroke(a.Body.Stroke, a.Body.StrokeWidth)...)
		if a.Body.StrokeDasharray != "" {
			attrs = append(attrs, "style=dashed")
		}
	}
	return attrs
}

func boundaryAttrs(c diagram.Cell) []string {
	attrs := append([]string{"shape=box", fmt.Sprintf("label=%q", c.Name())}, geometry(c)...)
	return append(attrs, "style=\"dashed,rounded\"", "color=\"#888888\"", "fontcolor=\"#888888\"", "labelloc=t")
}

func flowAttrs(c diagram.Cell) []string {
	attrs := []string{fmt.Sprintf("label=%q", c.Name())}
	if a, ok := c.Attrs.(diagram.FlowAttrs); ok {
		attrs = append(attrs, stroke(a.Line.Stroke, a.Line.StrokeWidth)...)
		if a.Line.TargetMarker.Name == "" {
			attrs = append(attrs, "arrowhead=none")
		}
	}
	return attrs
}

func stroke(color string, width float64) []string {
	if color == "" {
		return nil
	}
	return []string{fmt.Sprintf("color=%q", color), "penwidth=" + strconv.FormatFloat(width, 'f', -1, 64)}
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 4, 64)
}
