package diagram

import "github.com/matzehuels/stridegraph/pkg/model"

// Dangling records a flow endpoint that names no cell.
type Dangling struct {
	Flow string // flow name
	End  string // "source" or "destination"
	Name string // the unresolved node name
}

// Resolve connects flow cells to the cells of their endpoints. For every
// flow node the flow cell of the same name gets its source and target set
// when the endpoint names resolve, and the flow name as its only label.
// Names are compared exactly. Unresolved endpoints stay nil and are
// returned.
func Resolve(cells []Cell, nodes []model.Node) []Dangling {
	ids := make(map[string]string, len(cells))
	for _, c := range cells {
		if c.Shape == ShapeProcess || c.Shape == ShapeFlow {
			ids[c.Data.Name] = c.ID
		}
	}

	var dangling []Dangling
	for _, n := range nodes {
		if !n.IsFlow() {
			continue
		}
		for i := range cells {
			c := &cells[i]
			if c.Shape != ShapeFlow || c.Data.Name != n.Name {
				continue
			}
			if id, ok := ids[n.Source]; ok {
				c.Source = &Endpoint{Cell: id}
			} else {
				dangling = append(dangling, Dangling{Flow: n.Name, End: "source", Name: n.Source})
			}
			if id, ok := ids[n.Destination]; ok {
				c.Target = &Endpoint{Cell: id}
			} else {
				dangling = append(dangling, Dangling{Flow: n.Name, End: "destination", Name: n.Destination})
			}
			c.Labels = []string{n.Name}
		}
	}
	return dangling
}
