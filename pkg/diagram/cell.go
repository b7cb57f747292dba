package diagram

import (
	"encoding/json"
	"fmt"
)

// Shape discriminates cells.
type Shape string

const (
	ShapeProcess  Shape = "process"
	ShapeFlow     Shape = "flow"
	ShapeBoundary Shape = "trust-boundary-box"
)

// Data types written to CellData.Type.
const (
	DataTypeProcess  = "tm.Process"
	DataTypeFlow     = "tm.Flow"
	DataTypeBoundary = "tm.BoundaryBox"
)

// Position is the top-left corner of a placed cell, in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a placed cell, in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Endpoint references another cell of the same diagram by id.
type Endpoint struct {
	Cell string `json:"cell"`
}

// Attrs holds the visual attributes of a cell. Exactly one concrete type
// exists per shape, so a flow can never carry process styling.
type Attrs interface {
	shape() Shape
}

// Text is a rendered label.
type Text struct {
	Text string `json:"text"`
}

// Body styles the outline of a process.
type Body struct {
	Stroke          string  `json:"stroke"`
	StrokeWidth     float64 `json:"strokeWidth"`
	StrokeDasharray string  `json:"strokeDasharray,omitempty"`
}

// Marker is an arrow head on a flow line.
type Marker struct {
	Name string `json:"name"`
}

// Line styles a flow edge.
type Line struct {
	Stroke          string  `json:"stroke"`
	StrokeWidth     float64 `json:"strokeWidth"`
	SourceMarker    Marker  `json:"sourceMarker"`
	TargetMarker    Marker  `json:"targetMarker"`
	StrokeDasharray string  `json:"strokeDasharray,omitempty"`
}

// ProcessAttrs are the attributes of a process cell.
type ProcessAttrs struct {
	Text Text `json:"text"`
	Body Body `json:"body"`
}

// FlowAttrs are the attributes of a flow cell.
type FlowAttrs struct {
	Line Line `json:"line"`
}

// BoundaryAttrs are the attributes of a trust-boundary box.
type BoundaryAttrs struct {
	HeaderText Text `json:"headerText"`
}

func (ProcessAttrs) shape() Shape  { return ShapeProcess }
func (FlowAttrs) shape() Shape     { return ShapeFlow }
func (BoundaryAttrs) shape() Shape { return ShapeBoundary }

// Threat is a catalog entry materialised on a cell. Number and Score are
// placeholders that Threat Dragon fills in when the model is edited.
type Threat struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Severity    string `json:"severity"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Mitigation  string `json:"mitigation"`
	ModelType   string `json:"modelType"`
	New         bool   `json:"new"`
	Number      int    `json:"number"`
	Score       string `json:"score"`
}

// CellData is the element payload Threat Dragon shows in its side panel.
type CellData struct {
	Type             string   `json:"type"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	OutOfScope       *bool    `json:"outOfScope,omitempty"`
	ReasonOutOfScope *string  `json:"reasonOutOfScope,omitempty"`
	HasOpenThreats   bool     `json:"hasOpenThreats"`
	Threats          []Threat `json:"threats"`
}

// Cell is a renderable graph unit. Position and Size are nil on flows;
// Source, Target and Labels are only set on flows.
type Cell struct {
	Position *Position `json:"position,omitempty"`
	Size     *Size     `json:"size,omitempty"`
	Attrs    Attrs     `json:"attrs,omitempty"`
	Shape    Shape     `json:"shape"`
	ID       string    `json:"id"`
	ZIndex   int       `json:"zIndex"`
	Data     CellData  `json:"data"`
	Source   *Endpoint `json:"source,omitempty"`
	Target   *Endpoint `json:"target,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
}

// Name returns the name of the element the cell was built from.
func (c Cell) Name() string { return c.Data.Name }

// IsPlaced reports whether the layout engine has positioned the cell.
func (c Cell) IsPlaced() bool { return c.Position != nil && c.Size != nil }

// UnmarshalJSON decodes attrs into the concrete type matching the shape.
func (c *Cell) UnmarshalJSON(b []byte) error {
	type plain Cell
	var raw struct {
		plain
		Attrs json.RawMessage `json:"attrs,omitempty"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Cell(raw.plain)
	if len(raw.Attrs) == 0 || string(raw.Attrs) == "null" {
		c.Attrs = nil
		return nil
	}

	var attrs Attrs
	switch c.Shape {
	case ShapeProcess:
		var a ProcessAttrs
		if err := json.Unmarshal(raw.Attrs, &a); err != nil {
			return fmt.Errorf("process attrs: %w", err)
		}
		attrs = a
	case ShapeFlow:
		var a FlowAttrs
		if err := json.Unmarshal(raw.Attrs, &a); err != nil {
			return fmt.Errorf("flow attrs: %w", err)
		}
		attrs = a
	case ShapeBoundary:
		var a BoundaryAttrs
		if err := json.Unmarshal(raw.Attrs, &a); err != nil {
			return fmt.Errorf("boundary attrs: %w", err)
		}
		attrs = a
	default:
		return fmt.Errorf("unknown cell shape %q", c.Shape)
	}
	c.Attrs = attrs
	return nil
}

// Diagram is one laid-out diagram of the threat model document.
type Diagram struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	DiagramType string `json:"diagramType"`
	Placeholder string `json:"placeholder"`
	Thumbnail   string `json:"thumbnail"`
	Version     string `json:"version"`
	Cells       []Cell `json:"cells"`
}

// Cell returns the last cell built from the element with the given name.
func (d Diagram) Cell(name string) (Cell, bool) {
	for i := len(d.Cells) - 1; i >= 0; i-- {
		if d.Cells[i].Data.Name == name {
			return d.Cells[i], true
		}
	}
	return Cell{}, false
}

// CellByID returns the cell with the given id.
func (d Diagram) CellByID(id string) (Cell, bool) {
	for _, c := range d.Cells {
		if c.ID == id {
			return c, true
		}
	}
	return Cell{}, false
}
