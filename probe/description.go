// Package probe implements the probe contract (spec §4.6, component C7):
// structured introspection of a live soma graph without mutating or
// pausing it. Tree assembly is grounded on the teacher's stats package
// (which assembles a tracker map of leaf counters into one reported
// snapshot) generalized into a recursive Description tree, and on
// original_source/probe.rs's reply-sink-cancellation-via-drop contract
// (§3 "Supplemented features").
package probe

// ConstraintKind mirrors axon.Constraint without importing the axon
// package (which itself imports probe to augment descriptions) — kept as
// a string enum here so a Description can be serialized standalone.
type ConstraintKind string

const (
	ConstraintOne      ConstraintKind = "One"
	ConstraintVariadic ConstraintKind = "Variadic"
)

// ConstraintInfo is one entry of an Axon's constraint table, as exposed
// to a probe (spec §3 "Supplemented features": variadic constraints
// report which peers fulfilled them, not just a count).
type ConstraintInfo struct {
	Constraint ConstraintKind `json:"constraint" msg:"constraint"`
	Met        bool           `json:"met" msg:"met"`
	Peers      []string       `json:"peers,omitempty" msg:"peers"`
}

// AxonInfo is attached to a Description by an axon wrapping the
// described soma (spec §4.3, §4.6: "An axon augments the description
// with its constraint table").
type AxonInfo struct {
	Dendrites map[string]ConstraintInfo `json:"dendrites" msg:"dendrites"`
	Terminals map[string]ConstraintInfo `json:"terminals" msg:"terminals"`
}

// Description is the structured self-report every soma in the graph
// produces in response to a Probe (spec §4.6). Organelles assemble one
// per child into a tree; axons attach AxonInfo; plain somas describe
// themselves leaf-like (Children is empty, Axon is nil).
type Description struct {
	SomaID    string       `json:"soma_id" msg:"soma_id"`
	Label     string       `json:"label" msg:"label"`
	IsNucleus bool         `json:"is_nucleus,omitempty" msg:"is_nucleus"`
	Axon      *AxonInfo    `json:"axon,omitempty" msg:"axon"`
	Children  []Description `json:"children,omitempty" msg:"children"`
}

// Leaf builds the Description a soma with no children and no axon
// wrapper reports for itself.
func Leaf(somaID, label string) Description {
	return Description{SomaID: somaID, Label: label}
}

// Assemble builds an organelle's own Description from its children's
// reports, marking the nucleus exactly once (spec §9 Open Question:
// "once, marked as nucleus" — not duplicated as both nucleus and a
// generic child).
func Assemble(selfID, label, nucleusID string, children []Description) Description {
	d := Description{SomaID: selfID, Label: label, Children: children}
	for i := range d.Children {
		if d.Children[i].SomaID == nucleusID {
			d.Children[i].IsNucleus = true
		}
	}
	return d
}
