package diagram

import "github.com/matzehuels/stridegraph/pkg/model"

// Partition derives the child diagrams that the sub-scope declarations
// attach to parent. Each child holds, in parent order, the non-flow nodes
// named in the declaration followed by the flows whose source and
// destination are both named in it. Declarations naming another parent are
// ignored.
func Partition(parent model.InputDiagram, scopes []model.SubScope) []model.InputDiagram {
	var children []model.InputDiagram
	for _, scope := range scopes {
		if scope.Parent != parent.Title {
			continue
		}
		children = append(children, partition(parent, scope))
	}
	return children
}

func partition(parent model.InputDiagram, scope model.SubScope) model.InputDiagram {
	members := make(map[string]struct{}, len(scope.Nodes))
	for _, name := range scope.Nodes {
		members[name] = struct{}{}
	}
	in := func(name string) bool {
		_, ok := members[name]
		return ok
	}

	nodes := make([]model.Node, 0, len(scope.Nodes))
	for _, n := range parent.Nodes {
		if !n.IsFlow() && in(n.Name) {
			nodes = append(nodes, n)
		}
	}
	for _, n := range parent.Nodes {
		if n.IsFlow() && in(n.Source) && in(n.Destination) {
			nodes = append(nodes, n)
		}
	}

	return model.InputDiagram{
		Title:       scope.Name,
		Description: scope.Description,
		Nodes:       nodes,
	}
}

// Expand returns every diagram followed by its sub-scope children.
func Expand(diagrams []model.InputDiagram, cfg *model.Config) []model.InputDiagram {
	var scopes []model.SubScope
	if cfg != nil {
		scopes = cfg.Diagrams
	}
	out := make([]model.InputDiagram, 0, len(diagrams)+len(scopes))
	for _, d := range diagrams {
		out = append(out, d)
		out = append(out, Partition(d, scopes)...)
	}
	return out
}

// OrphanScopes returns the declarations whose parent is none of diagrams.
func OrphanScopes(diagrams []model.InputDiagram, cfg *model.Config) []model.SubScope {
	if cfg == nil {
		return nil
	}
	titles := make(map[string]struct{}, len(diagrams))
	for _, d := range diagrams {
		titles[d.Title] = struct{}{}
	}
	var orphans []model.SubScope
	for _, s := range cfg.Diagrams {
		if _, ok := titles[s.Parent]; !ok {
			orphans = append(orphans, s)
		}
	}
	return orphans
}
