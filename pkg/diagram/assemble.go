package diagram

import (
	"maps"
	"slices"

	"github.com/matzehuels/stridegraph/pkg/model"
)

const (
	DiagramType = "STRIDE"
	Thumbnail   = "./public/content/images/thumbnail.stride.jpg"
)

// Build runs mapping, endpoint resolution, layout and boundary synthesis
// over one input diagram. index becomes the diagram id.
func (b *Builder) Build(index int, in model.InputDiagram, catalog model.Catalog, version string) Diagram {
	cells := make([]Cell, 0, len(in.Nodes))
	for _, n := range in.Nodes {
		cells = append(cells, b.MapNode(n, catalog))
	}

	for _, d := range Resolve(cells, in.Nodes) {
		b.logger.Debug("dangling flow endpoint", "diagram", in.Title, "flow", d.Flow, "end", d.End, "node", d.Name)
	}

	Layout(cells, in.Nodes, b.layout)
	cells = append(cells, b.Boundaries(cells, in.Nodes)...)

	return Diagram{
		ID:          index,
		Title:       in.Title,
		DiagramType: DiagramType,
		Placeholder: in.Description,
		Thumbnail:   Thumbnail,
		Version:     version,
		Cells:       cells,
	}
}

// BuildAll expands diagrams with their sub-scope children, builds each one
// with its position in the expanded list as id, and returns them sorted by
// title. When two diagrams share a title the later one wins.
func (b *Builder) BuildAll(diagrams []model.InputDiagram, cfg *model.Config, catalog model.Catalog) []Diagram {
	for _, s := range OrphanScopes(diagrams, cfg) {
		b.logger.Debug("sub-scope parent not found", "scope", s.Name, "parent", s.Parent)
	}

	var version string
	if cfg != nil {
		version = cfg.ThreatDragonVersion
	}

	byTitle := make(map[string]Diagram)
	for i, in := range Expand(diagrams, cfg) {
		if _, dup := byTitle[in.Title]; dup {
			b.logger.Warn("duplicate diagram title, keeping the later one", "title", in.Title, "id", i)
		}
		byTitle[in.Title] = b.Build(i, in, catalog, version)
	}

	out := make([]Diagram, 0, len(byTitle))
	for _, title := range slices.Sorted(maps.Keys(byTitle)) {
		out = append(out, byTitle[title])
	}
	return out
}
