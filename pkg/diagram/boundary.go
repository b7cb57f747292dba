package diagram

import (
	"math"

	"github.com/matzehuels/stridegraph/pkg/model"
)

// Boundaries returns one box cell per trust boundary named by nodes, in
// first-seen order. A boundary is skipped when no cell carries the name of
// its first member or when none of its member cells has been positioned.
func (b *Builder) Boundaries(cells []Cell, nodes []model.Node) []Cell {
	groups := newOrdered[string]()
	for _, n := range nodes {
		if n.TrustBoundary != "" {
			groups.add(n.TrustBoundary, n.Name)
		}
	}

	names := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		names[c.Data.Name] = struct{}{}
	}

	var boxes []Cell
	for _, boundary := range groups.keys {
		members := groups.get(boundary)
		if _, ok := names[members[0]]; !ok {
			b.logger.Debug("skipping trust boundary without cells", "boundary", boundary)
			continue
		}
		pos, size, ok := BoundingBox(cells, members, b.layout.Margin)
		if !ok {
			b.logger.Debug("skipping trust boundary without placed members", "boundary", boundary)
			continue
		}
		boxes = append(boxes, b.boundaryCell(boundary, pos, size))
	}
	return boxes
}

func (b *Builder) boundaryCell(name string, pos Position, size Size) Cell {
	return Cell{
		Position: &pos,
		Size:     &size,
		Attrs:    BoundaryAttrs{HeaderText: Text{Text: name}},
		Shape:    ShapeBoundary,
		ID:       b.newID(),
		ZIndex:   zIndexBoundary,
		Data: CellData{
			Type:    DataTypeBoundary,
			Name:    name,
			Threats: []Threat{},
		},
	}
}

// BoundingBox encloses the placed cells named in members with margin on
// every side. Width is the horizontal spread of top-left corners plus the
// widest member; height likewise. It reports false when no member is placed.
func BoundingBox(cells []Cell, members []string, margin int) (Position, Size, bool) {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	maxW, maxH := 0, 0
	found := false
	for _, c := range cells {
		if _, ok := set[c.Data.Name]; !ok || c.Position == nil {
			continue
		}
		found = true
		minX, maxX = math.Min(minX, c.Position.X), math.Max(maxX, c.Position.X)
		minY, maxY = math.Min(minY, c.Position.Y), math.Max(maxY, c.Position.Y)
		if c.Size != nil {
			maxW = max(maxW, c.Size.Width)
			maxH = max(maxH, c.Size.Height)
		}
	}
	if !found {
		return Position{}, Size{}, false
	}

	m := float64(margin)
	return Position{X: minX - m, Y: minY - m},
		Size{
			Width:  int(maxX-minX) + maxW + 2*margin,
			Height: int(maxY-minY) + maxH + 2*margin,
		},
		true
}
