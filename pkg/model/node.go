package model

import (
	"fmt"
	"strings"
)

// NodeKind discriminates architecture elements.
type NodeKind string

const (
	KindProcess NodeKind = "process"
	KindFlow    NodeKind = "flow"
)

// String returns the lower-case kind name, which is also the cell shape.
func (k NodeKind) String() string { return string(k) }

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k), nil }

// UnmarshalText accepts "process" and "flow" in any letter case.
func (k *NodeKind) UnmarshalText(b []byte) error {
	switch NodeKind(strings.ToLower(strings.TrimSpace(string(b)))) {
	case KindProcess:
		*k = KindProcess
	case KindFlow:
		*k = KindFlow
	default:
		return fmt.Errorf("unknown node type %q", string(b))
	}
	return nil
}

// Node is one architecture element of an input diagram.
// Name is the join key used by flows, trust-boundary grouping and cells.
type Node struct {
	Name          string   `yaml:"name" json:"name" toml:"name" validate:"required"`
	Kind          NodeKind `yaml:"type" json:"type" toml:"type" validate:"required,oneof=process flow"`
	Description   string   `yaml:"description" json:"description" toml:"description"`
	OutOfScope    *bool    `yaml:"outOfScope,omitempty" json:"outOfScope,omitempty" toml:"outOfScope,omitempty"`
	TrustBoundary string   `yaml:"trustBoundary,omitempty" json:"trustBoundary,omitempty" toml:"trustBoundary,omitempty"`
	TrustLevel    string   `yaml:"trustLevel,omitempty" json:"trustLevel,omitempty" toml:"trustLevel,omitempty"`
	Asset         string   `yaml:"asset,omitempty" json:"asset,omitempty" toml:"asset,omitempty"`
	Source        string   `yaml:"source,omitempty" json:"source,omitempty" toml:"source,omitempty" validate:"required_if=Kind flow"`
	Destination   string   `yaml:"destination,omitempty" json:"destination,omitempty" toml:"destination,omitempty" validate:"required_if=Kind flow"`
	Threats       []string `yaml:"threats" json:"threats" toml:"threats"`
}

// IsFlow reports whether the node is a data flow.
func (n Node) IsFlow() bool { return n.Kind == KindFlow }

// IsOutOfScope reports whether the node is explicitly marked out of scope.
// An absent flag means in scope.
func (n Node) IsOutOfScope() bool { return n.OutOfScope != nil && *n.OutOfScope }

// InputDiagram is one source diagram: a titled, ordered list of nodes.
type InputDiagram struct {
	Title       string `yaml:"title" json:"title" toml:"title" validate:"required"`
	Description string `yaml:"description" json:"description" toml:"description"`
	Nodes       []Node `yaml:"nodes" json:"nodes" toml:"nodes" validate:"dive"`
}

// Node returns the last node with the given name.
func (d InputDiagram) Node(name string) (Node, bool) {
	for i := len(d.Nodes) - 1; i >= 0; i-- {
		if d.Nodes[i].Name == name {
			return d.Nodes[i], true
		}
	}
	return Node{}, false
}

// Bool returns a pointer to v, for building nodes in code.
func Bool(v bool) *bool { return &v }
