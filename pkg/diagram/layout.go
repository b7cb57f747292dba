package diagram

import (
	"math"

	"github.com/matzehuels/stridegraph/pkg/model"
)

// Region names with fixed meaning. Every other region is named after a
// trust boundary.
const (
	RegionCenter = "Center"
	RegionSouth  = "South"
)

const (
	DefaultCenterX      = 500.0
	DefaultCenterY      = 500.0
	DefaultRegionRadius = 450.0
	DefaultMemberRadius = 120.0
	DefaultCellWidth    = 140
	DefaultCellHeight   = 140
	DefaultMargin       = 40
)

// LayoutOptions are the geometry constants of the layout engine and the
// boundary synthesizer. Zero fields take their defaults.
type LayoutOptions struct {
	Center       Position
	RegionRadius float64
	MemberRadius float64
	CellSize     Size
	Margin       int
}

// DefaultLayoutOptions returns the standard geometry.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		Center:       Position{X: DefaultCenterX, Y: DefaultCenterY},
		RegionRadius: DefaultRegionRadius,
		MemberRadius: DefaultMemberRadius,
		CellSize:     Size{Width: DefaultCellWidth, Height: DefaultCellHeight},
		Margin:       DefaultMargin,
	}
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	d := DefaultLayoutOptions()
	if o.Center == (Position{}) {
		o.Center = d.Center
	}
	if o.RegionRadius == 0 {
		o.RegionRadius = d.RegionRadius
	}
	if o.MemberRadius == 0 {
		o.MemberRadius = d.MemberRadius
	}
	if o.CellSize.Width == 0 {
		o.CellSize.Width = d.CellSize.Width
	}
	if o.CellSize.Height == 0 {
		o.CellSize.Height = d.CellSize.Height
	}
	if o.Margin == 0 {
		o.Margin = d.Margin
	}
	return o
}

// Region is a named cluster of nodes placed around a common center.
type Region struct {
	Name    string
	Center  Position
	Members []string
}

// RegionOf returns the region a node belongs to.
func RegionOf(n model.Node) string {
	switch {
	case !n.IsOutOfScope():
		return RegionCenter
	case n.TrustBoundary != "":
		return n.TrustBoundary
	default:
		return RegionSouth
	}
}

// Regions groups nodes into regions in first-seen order and computes each
// region's center. Flows are members too and take up an angular slot, even
// though flow cells are never positioned.
func Regions(nodes []model.Node, opts LayoutOptions) []Region {
	opts = opts.withDefaults()

	groups := newOrdered[string]()
	for _, n := range nodes {
		groups.add(RegionOf(n), n.Name)
	}

	total := float64(groups.len())
	regions := make([]Region, 0, groups.len())
	i := 0
	for _, name := range groups.keys {
		r := Region{Name: name, Center: opts.Center, Members: groups.get(name)}
		if name != RegionCenter {
			angle := 2 * math.Pi * float64(i) / total
			r.Center = Position{
				X: opts.Center.X + opts.RegionRadius*math.Cos(angle),
				Y: opts.Center.Y + opts.RegionRadius*math.Sin(angle),
			}
			i++
		}
		regions = append(regions, r)
	}
	return regions
}

// Layout positions and sizes every non-flow cell that matches a node.
// A node name listed twice takes the slot of its last occurrence.
func Layout(cells []Cell, nodes []model.Node, opts LayoutOptions) {
	opts = opts.withDefaults()
	regions := Regions(nodes, opts)

	type slot struct {
		region int
		index  int // 1-based
	}
	slots := make(map[string]slot, len(nodes))
	for ri, r := range regions {
		for k, name := range r.Members {
			slots[name] = slot{region: ri, index: k + 1}
		}
	}

	for i := range cells {
		c := &cells[i]
		if c.Shape == ShapeFlow {
			continue
		}
		s, ok := slots[c.Data.Name]
		if !ok {
			continue
		}
		r := regions[s.region]
		angle := 2 * math.Pi * float64(s.index) / float64(len(r.Members))
		c.Position = &Position{
			X: r.Center.X + opts.MemberRadius*math.Cos(angle),
			Y: r.Center.Y + opts.MemberRadius*math.Sin(angle),
		}
		size := opts.CellSize
		c.Size = &size
	}
}
