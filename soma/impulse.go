// Package soma implements the impulse protocol (spec §3/§4.2, component
// C2) and the soma contract (§4.2, component C3): the stateful fold that
// is the unit of composition. Grounded on the teacher's transport/api.go,
// which splits a typed stream into addressing metadata (ObjHdr, carrying
// an Opcode used for a reserved range of internal control values) and a
// payload (Obj) — generalized here from "bytes over a stream" to "one of
// a small closed set of lifecycle/control variants over a soma's inbox".
package soma

import (
	"fmt"

	"github.com/somaproj/organelle/sched"
	"github.com/somaproj/organelle/synapse"
)

// Variant identifies which of the Impulse sum type's cases a value holds
// (spec §3 "Impulse (I<K>)").
type Variant int

const (
	AddDendrite Variant = iota
	AddTerminal
	Start
	Stop
	Error
	Probe
)

func (v Variant) String() string {
	switch v {
	case AddDendrite:
		return "AddDendrite"
	case AddTerminal:
		return "AddTerminal"
	case Start:
		return "Start"
	case Stop:
		return "Stop"
	case Error:
		return "Error"
	case Probe:
		return "Probe"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Sender is the control-channel handle a soma is given on Start, used to
// send Stop/Error/Probe impulses upward to its parent (organelle or
// driver). Implementations are expected to be fire-and-forget-safe: a
// send on a sender whose receiving end has gone away during teardown must
// not panic (§7 "Transport errors").
type Sender[K synapse.Kind] interface {
	Send(Impulse[K])
}

// ReplySink is the capability a Probe impulse carries for delivering a
// structured description back to the prober (§4.6, component C7).
// Implementations typically accept exactly one Send before going inert,
// and are closed by the issuer if the probe is cancelled (§5
// "Cancellation": "caller's responsibility... drop the reply sink" —
// here, explicitly closing it, since Go has no implicit drop).
type ReplySink interface {
	Send(description any)
	// Done reports cancellation: a closed soma's Probe handling should
	// stop doing work (but need not — replying to a cancelled sink is
	// simply discarded) once Done is closed.
	Done() <-chan struct{}
}

// Impulse is the tagged union exchanged between the driver/organelle and
// every soma (spec §3). Only the fields relevant to Variant are
// populated; constructors below are the only supported way to build one,
// so a soma never needs to guess which fields are live.
type Impulse[K synapse.Kind] struct {
	Variant Variant

	// AddDendrite / AddTerminal
	PeerID   string
	SynKind  K
	Dendrite synapse.Dendrite
	Terminal synapse.Terminal

	// Start
	SelfID  string
	Control Sender[K]
	Sched   sched.Handle

	// Error
	Err error

	// Probe
	Request   any
	ReplySink ReplySink
}

func NewAddDendrite[K synapse.Kind](peerID string, kind K, d synapse.Dendrite) Impulse[K] {
	return Impulse[K]{Variant: AddDendrite, PeerID: peerID, SynKind: kind, Dendrite: d}
}

func NewAddTerminal[K synapse.Kind](peerID string, kind K, t synapse.Terminal) Impulse[K] {
	return Impulse[K]{Variant: AddTerminal, PeerID: peerID, SynKind: kind, Terminal: t}
}

func NewStart[K synapse.Kind](selfID string, ctrl Sender[K], h sched.Handle) Impulse[K] {
	return Impulse[K]{Variant: Start, SelfID: selfID, Control: ctrl, Sched: h}
}

func NewStop[K synapse.Kind]() Impulse[K] {
	return Impulse[K]{Variant: Stop}
}

func NewError[K synapse.Kind](err error) Impulse[K] {
	return Impulse[K]{Variant: Error, Err: err}
}

func NewProbe[K synapse.Kind](request any, sink ReplySink) Impulse[K] {
	return Impulse[K]{Variant: Probe, Request: request, ReplySink: sink}
}

// ChanSender is the common Sender implementation: a buffered Go channel.
// Once Done is closed, a Send that cannot proceed (the channel is full at
// shutdown) returns without sending, matching §7's "send on a closed
// channel during shutdown is... normal teardown, not a failure": a send
// to a channel whose receiver has already exited would otherwise block
// forever — ChanSender instead uses a select against Done so a stuck send
// cannot wedge the sender. Channels it sends on are never closed by the
// engine; with a nil Done, Send is a plain blocking channel send.
type ChanSender[K synapse.Kind] struct {
	Ch   chan<- Impulse[K]
	Done <-chan struct{}
}

func (s ChanSender[K]) Send(imp Impulse[K]) {
	if s.Done == nil {
		s.Ch <- imp
		return
	}
	select {
	case s.Ch <- imp:
	case <-s.Done:
	}
}
