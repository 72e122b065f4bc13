package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Instance is one visual occurrence of a node: the node as seen under a
// particular parent. Parent is empty for a root occurrence.
//
// Instance is comparable and used directly as a map key for selection,
// expansion and clipboard provenance.
type Instance struct {
	Node   NodeID `json:"node"`
	Parent NodeID `json:"parent,omitempty"`
}

// RootInstance returns the root occurrence of a node.
func RootInstance(id NodeID) Instance {
	return Instance{Node: id}
}

// IsRoot reports whether this is a root occurrence.
func (i Instance) IsRoot() bool {
	return i.Parent == ""
}

// String renders the instance as "node@parent" ("node@" for roots).
// Intended for logs and wire formats only.
func (i Instance) String() string {
	return string(i.Node) + "@" + string(i.Parent)
}

// MarshalText implements encoding.TextMarshaler so instances can be used as
// JSON map keys.
func (i Instance) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Instance) UnmarshalText(text []byte) error {
	inst, err := ParseInstance(string(text))
	if err != nil {
		return err
	}
	*i = inst
	return nil
}

// ParseInstance parses the "node@parent" text form.
// A bare node id (no "@") denotes a root occurrence.
func ParseInstance(s string) (Instance, error) {
	node, parent, _ := strings.Cut(s, "@")
	if node == "" {
		return Instance{}, fmt.Errorf("invalid instance %q: empty node id", s)
	}
	return Instance{Node: NodeID(node), Parent: NodeID(parent)}, nil
}

// CompareInstances orders instances by node id then parent id.
// Used where a deterministic listing is needed (selection dumps, wire output).
func CompareInstances(a, b Instance) int {
	if c := strings.Compare(string(a.Node), string(b.Node)); c != 0 {
		return c
	}
	return strings.Compare(string(a.Parent), string(b.Parent))
}

// SortInstances sorts in place with CompareInstances.
func SortInstances(in []Instance) {
	slices.SortFunc(in, CompareInstances)
}
