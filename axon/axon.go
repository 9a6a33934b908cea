// Package axon implements the arity-constraint wrapper soma (spec §4.3,
// component C4). Grounded on xact/xreg.go's Renewable registry, which
// tracks one fulfilment record per registered kind and rejects a second
// registration the way an axon rejects a second AddDendrite/AddTerminal
// of a One-constrained kind.
package axon

import (
	"context"
	"fmt"

	"github.com/somaproj/organelle/cos"
	"github.com/somaproj/organelle/debug"
	"github.com/somaproj/organelle/ids"
	"github.com/somaproj/organelle/nlog"
	"github.com/somaproj/organelle/probe"
	"github.com/somaproj/organelle/soma"
	"github.com/somaproj/organelle/synapse"
)

// Constraint is the arity an Axon enforces for one kind (spec §3 "Axon
// state").
type Constraint int

const (
	One Constraint = iota
	Variadic
)

func (c Constraint) String() string {
	if c == Variadic {
		return "Variadic"
	}
	return "One"
}

func (c Constraint) probeKind() probe.ConstraintKind {
	if c == Variadic {
		return probe.ConstraintVariadic
	}
	return probe.ConstraintOne
}

// fulfilment is the private bookkeeping record per kind: Unmet (zero
// value), MetOne (peer set, metOne=true), or MetVariadic (peers
// accumulated).
type fulfilment struct {
	metOne bool
	peer   string   // valid iff metOne
	peers  []string // valid for Variadic
}

func (f *fulfilment) met() bool { return f.metOne || len(f.peers) > 0 }

func (f *fulfilment) info(c Constraint) probe.ConstraintInfo {
	ci := probe.ConstraintInfo{Constraint: c.probeKind(), Met: f.met()}
	switch {
	case f.metOne:
		ci.Peers = []string{f.peer}
	case len(f.peers) > 0:
		ci.Peers = append([]string(nil), f.peers...)
	}
	return ci
}

// Axon wraps a Soma[K], intercepting AddDendrite/AddTerminal/Start to
// enforce the arity constraints declared at construction (spec §4.3); any
// other impulse, including Probe, passes through to the inner soma
// unchanged (Probe additionally has its reply augmented with the
// constraint table on the way back out).
type Axon[K synapse.Kind] struct {
	inner  soma.Soma[K]
	selfID string
	label  string

	dendriteConstraints map[K]Constraint
	terminalConstraints map[K]Constraint
	dendriteFulfil      map[K]*fulfilment
	terminalFulfil      map[K]*fulfilment

	// dendriteByHash/terminalByHash index the same kinds by the xxhash
	// of their String() tag (ids.HashKind), so a caller holding only a
	// kind's serialized string label — a probe consumer that never had a
	// live K value to use as a map key — can still resolve its
	// constraint info (see ConstraintByHash). Only kinds with a
	// non-trivial String() are indexed.
	dendriteByHash map[uint64]K
	terminalByHash map[uint64]K
}

// New wraps inner with the given required-dendrite/required-terminal
// constraint tables. label is used purely for probe/log readability.
func New[K synapse.Kind](inner soma.Soma[K], label string, dendrites, terminals map[K]Constraint) *Axon[K] {
	a := &Axon[K]{
		inner:               inner,
		label:               label,
		dendriteConstraints: dendrites,
		terminalConstraints: terminals,
		dendriteFulfil:      make(map[K]*fulfilment, len(dendrites)),
		terminalFulfil:      make(map[K]*fulfilment, len(terminals)),
		dendriteByHash:      make(map[uint64]K, len(dendrites)),
		terminalByHash:      make(map[uint64]K, len(terminals)),
	}
	for k := range dendrites {
		a.dendriteFulfil[k] = &fulfilment{}
		a.indexByHash(a.dendriteByHash, k)
	}
	for k := range terminals {
		a.terminalFulfil[k] = &fulfilment{}
		a.indexByHash(a.terminalByHash, k)
	}
	return a
}

// indexByHash records k under the hash of its String() tag, warning
// instead of overwriting on a genuine hash collision (two distinct kinds
// sharing one bucket) so the earlier-registered kind stays resolvable.
func (a *Axon[K]) indexByHash(idx map[uint64]K, k K) {
	s := k.String()
	if s == "" {
		return
	}
	h := ids.HashKind(s)
	if existing, ok := idx[h]; ok && existing != k {
		nlog.Warningf("axon %s: kind %q collides with %q on hash %d, keeping the first", a.label, s, existing.String(), h)
		return
	}
	idx[h] = k
}

// ConstraintByHash resolves a kind's constraint info from the xxhash of
// its String() tag rather than from a live K value (spec §3 "Supplemented
// features": probe output only carries string labels, so a consumer that
// never had the concrete kind type still needs a way back to its
// constraint state). Reports ok=false for an unindexed or empty-string
// kind, or a hash with no registered kind.
func (a *Axon[K]) ConstraintByHash(h uint64) (info probe.ConstraintInfo, ok bool) {
	if k, found := a.dendriteByHash[h]; found {
		return a.dendriteFulfil[k].info(a.dendriteConstraints[k]), true
	}
	if k, found := a.terminalByHash[h]; found {
		return a.terminalFulfil[k].info(a.terminalConstraints[k]), true
	}
	return probe.ConstraintInfo{}, false
}

// Update implements soma.Soma[K]. It has a pointer receiver but follows
// the consuming-self convention of the soma contract: it copies itself
// (shallow — the fulfilment maps are reused, since the old Axon value is
// never touched again, spec §4.2) before mutating constraint state, and
// returns a pointer to the copy.
func (a *Axon[K]) Update(ctx context.Context, imp soma.Impulse[K]) (soma.Soma[K], error) {
	next := *a

	switch imp.Variant {
	case soma.AddDendrite:
		if err := next.addDendrite(imp); err != nil {
			return nil, err
		}
	case soma.AddTerminal:
		if err := next.addTerminal(imp); err != nil {
			return nil, err
		}
	case soma.Start:
		if err := next.checkRequired(); err != nil {
			return nil, err
		}
	case soma.Probe:
		imp.ReplySink = next.interceptSink(imp.ReplySink)
	case soma.Stop, soma.Error:
		return nil, fmt.Errorf("axon %s: %s impulse delivered inbound — programming error", next.label, imp.Variant)
	}

	innerNext, err := next.inner.Update(ctx, imp)
	if err != nil {
		return nil, err
	}
	next.inner = innerNext
	return &next, nil
}

func (a *Axon[K]) addDendrite(imp soma.Impulse[K]) error {
	c, ok := a.dendriteConstraints[imp.SynKind]
	if !ok {
		err := cos.NewErrInvalidSynapse(imp.SynKind.String(), "no constraint for kind")
		nlog.Warningf("axon %s: %v", a.label, err)
		return err
	}
	f := a.dendriteFulfil[imp.SynKind]
	debug.Assert(f != nil) // every constrained kind gets a fulfilment record in New
	if err := f.fulfil(c, imp.PeerID, imp.SynKind.String()); err != nil {
		nlog.Warningf("axon %s: %v", a.label, err)
		return err
	}
	return nil
}

func (a *Axon[K]) addTerminal(imp soma.Impulse[K]) error {
	c, ok := a.terminalConstraints[imp.SynKind]
	if !ok {
		err := cos.NewErrInvalidSynapse(imp.SynKind.String(), "no constraint for kind")
		nlog.Warningf("axon %s: %v", a.label, err)
		return err
	}
	f := a.terminalFulfil[imp.SynKind]
	debug.Assert(f != nil)
	if err := f.fulfil(c, imp.PeerID, imp.SynKind.String()); err != nil {
		nlog.Warningf("axon %s: %v", a.label, err)
		return err
	}
	return nil
}

func (f *fulfilment) fulfil(c Constraint, peer, kindLabel string) error {
	switch c {
	case One:
		if f.metOne {
			return cos.NewErrInvalidSynapse(kindLabel, "expected only one synapse for this kind")
		}
		f.metOne = true
		f.peer = peer
		return nil
	default: // Variadic
		f.peers = append(f.peers, peer)
		return nil
	}
}

// checkRequired implements I4: "An Axon signals MissingSynapse on Start
// iff some One constraint is Unmet."
func (a *Axon[K]) checkRequired() error {
	for k, c := range a.dendriteConstraints {
		if c == One && !a.dendriteFulfil[k].met() {
			err := cos.NewErrMissingSynapse(k.String())
			nlog.Warningf("axon %s: Start: %v", a.label, err)
			return err
		}
	}
	for k, c := range a.terminalConstraints {
		if c == One && !a.terminalFulfil[k].met() {
			err := cos.NewErrMissingSynapse(k.String())
			nlog.Warningf("axon %s: Start: %v", a.label, err)
			return err
		}
	}
	return nil
}

// interceptSink wraps a Probe's reply sink so that when the inner soma
// replies with a probe.Description, the axon's constraint table is
// attached before the reply reaches the original sink (spec §4.6: "An
// axon augments the description with its constraint table").
func (a *Axon[K]) interceptSink(inner soma.ReplySink) soma.ReplySink {
	return axonSink[K]{axon: a, inner: inner}
}

type axonSink[K synapse.Kind] struct {
	axon  *Axon[K]
	inner soma.ReplySink
}

func (s axonSink[K]) Done() <-chan struct{} { return s.inner.Done() }

func (s axonSink[K]) Send(desc any) {
	d, ok := desc.(probe.Description)
	if !ok {
		s.inner.Send(desc)
		return
	}
	info := &probe.AxonInfo{
		Dendrites: make(map[string]probe.ConstraintInfo, len(s.axon.dendriteConstraints)),
		Terminals: make(map[string]probe.ConstraintInfo, len(s.axon.terminalConstraints)),
	}
	for k, c := range s.axon.dendriteConstraints {
		info.Dendrites[k.String()] = s.axon.dendriteFulfil[k].info(c)
	}
	for k, c := range s.axon.terminalConstraints {
		info.Terminals[k.String()] = s.axon.terminalFulfil[k].info(c)
	}
	d.Axon = info
	s.inner.Send(d)
}
