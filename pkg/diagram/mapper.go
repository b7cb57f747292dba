package diagram

import "github.com/matzehuels/stridegraph/pkg/model"

const (
	strokeWarning      = "red"
	strokeWidthWarning = 1.5
	strokeNeutral      = "#333333"
	strokeWidthNeutral = 3

	dashOutOfScope = "4 3"
	markerBlock    = "block"

	modelTypeSTRIDE = "STRIDE"
	zIndexNode      = 1
	zIndexBoundary  = 0
)

// MapNode converts one node into a cell. Threat titles are resolved against
// catalog; titles without an entry are dropped. Source and target of flow
// cells are filled in later by [Resolve], positions by [Layout].
func (b *Builder) MapNode(n model.Node, catalog model.Catalog) Cell {
	threats := b.resolveThreats(n, catalog)

	data := CellData{
		Type:             DataTypeProcess,
		Name:             n.Name,
		Description:      n.Description,
		ReasonOutOfScope: new(string),
		HasOpenThreats:   hasOpen(threats),
		Threats:          threats,
	}
	if n.OutOfScope != nil {
		data.OutOfScope = model.Bool(*n.OutOfScope)
	}
	if n.IsFlow() {
		data.Type = DataTypeFlow
	}

	return Cell{
		Attrs:  attrsFor(n, len(threats) > 0),
		Shape:  Shape(n.Kind.String()),
		ID:     b.newID(),
		ZIndex: zIndexNode,
		Data:   data,
	}
}

func attrsFor(n model.Node, warn bool) Attrs {
	stroke, width := strokeNeutral, float64(strokeWidthNeutral)
	if warn {
		stroke, width = strokeWarning, strokeWidthWarning
	}

	if n.IsFlow() {
		return FlowAttrs{Line: Line{
			Stroke:       stroke,
			StrokeWidth:  width,
			SourceMarker: Marker{},
			TargetMarker: Marker{Name: markerBlock},
		}}
	}

	body := Body{Stroke: stroke, StrokeWidth: width}
	if n.IsOutOfScope() {
		body.StrokeDasharray = dashOutOfScope
	}
	return ProcessAttrs{Text: Text{Text: n.Name}, Body: body}
}

// resolveThreats materialises the node's threat titles in reference order.
func (b *Builder) resolveThreats(n model.Node, catalog model.Catalog) []Threat {
	threats := make([]Threat, 0, len(n.Threats))
	for _, title := range n.Threats {
		t, ok := catalog.Lookup(title)
		if !ok {
			b.logger.Debug("threat not in catalog", "node", n.Name, "threat", title)
			continue
		}
		threats = append(threats, Threat{
			ID:          b.newID(),
			Title:       t.Title,
			Status:      string(t.Status),
			Severity:    string(t.Severity),
			Type:        t.Category.String(),
			Description: t.Description,
			Mitigation:  t.Mitigation,
			ModelType:   modelTypeSTRIDE,
			New:         false,
			Number:      1,
			Score:       "",
		})
	}
	return threats
}

func hasOpen(threats []Threat) bool {
	for _, t := range threats {
		if t.Status == string(model.StatusOpen) {
			return true
		}
	}
	return false
}
