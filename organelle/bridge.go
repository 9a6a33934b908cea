package organelle

import (
	"context"

	"github.com/somaproj/organelle/soma"
	"github.com/somaproj/organelle/synapse"
)

// Bridge adapts a soma whose native Kind differs from its host
// organelle's Kind, translating every impulse's kind tag across the
// boundary via a synapse.KindConverter (spec §4.1 "Cross-kind
// conversion", §4.4 "Nesting"). Wrap a child in a Bridge before AddSoma
// whenever its Kind isn't identical to the parent's; same-kind children
// need no wrapping.
//
// Grounded on original_source/src/organelle.rs's create_soma_channel,
// which spawned one task translating Impulse<T::Role> to Impulse<R>
// inbound, plus a second task translating the child's own
// control-channel sends from R back to T::Role outbound. Go's Sender is
// a plain interface method, not a separate polling task, so the outbound
// half collapses into bridgeSender below instead of a second goroutine.
type Bridge[Outer synapse.Kind, Inner synapse.Kind] struct {
	inner soma.Soma[Inner]
	conv  synapse.KindConverter[Outer, Inner]
}

// NewBridge wraps inner, whose native kind is Inner, for hosting inside
// an organelle whose kind is Outer.
func NewBridge[Outer, Inner synapse.Kind](inner soma.Soma[Inner], conv synapse.KindConverter[Outer, Inner]) *Bridge[Outer, Inner] {
	return &Bridge[Outer, Inner]{inner: inner, conv: conv}
}

func (b *Bridge[Outer, Inner]) Update(ctx context.Context, imp soma.Impulse[Outer]) (soma.Soma[Outer], error) {
	innerImp, ok := convertInbound[Outer, Inner](b.conv, imp)
	if !ok {
		// No inner counterpart for this kind: drop rather than forward,
		// per KindConverter.ToInner's doc comment.
		return b, nil
	}
	innerNext, err := b.inner.Update(ctx, innerImp)
	if err != nil {
		return nil, err
	}
	return &Bridge[Outer, Inner]{inner: innerNext, conv: b.conv}, nil
}

func convertInbound[Outer, Inner synapse.Kind](conv synapse.KindConverter[Outer, Inner], imp soma.Impulse[Outer]) (soma.Impulse[Inner], bool) {
	switch imp.Variant {
	case soma.AddDendrite:
		k, ok := conv.ToInner(imp.SynKind)
		if !ok {
			return soma.Impulse[Inner]{}, false
		}
		return soma.NewAddDendrite[Inner](imp.PeerID, k, imp.Dendrite), true
	case soma.AddTerminal:
		k, ok := conv.ToInner(imp.SynKind)
		if !ok {
			return soma.Impulse[Inner]{}, false
		}
		return soma.NewAddTerminal[Inner](imp.PeerID, k, imp.Terminal), true
	case soma.Start:
		// Start's kind is never converted (spec §4.1): only its Control
		// sender needs bridging, so the child's own upward sends land
		// back on the outer kind set.
		return soma.NewStart[Inner](imp.SelfID, bridgeSender[Outer, Inner]{conv: conv, out: imp.Control}, imp.Sched), true
	case soma.Stop:
		return soma.NewStop[Inner](), true
	case soma.Error:
		return soma.NewError[Inner](imp.Err), true
	case soma.Probe:
		return soma.NewProbe[Inner](imp.Request, imp.ReplySink), true
	default:
		return soma.Impulse[Inner]{}, false
	}
}

// bridgeSender wraps the outer Sender so a bridged child's own upward
// Stop/Error, or a self-directed AddDendrite/AddTerminal (e.g. a nested
// organelle's nucleus wiring itself), lands back on the outer kind set
// before reaching the real control channel.
type bridgeSender[Outer, Inner synapse.Kind] struct {
	conv synapse.KindConverter[Outer, Inner]
	out  soma.Sender[Outer]
}

func (s bridgeSender[Outer, Inner]) Send(imp soma.Impulse[Inner]) {
	switch imp.Variant {
	case soma.AddDendrite:
		s.out.Send(soma.NewAddDendrite[Outer](imp.PeerID, s.conv.ToOuter(imp.SynKind), imp.Dendrite))
	case soma.AddTerminal:
		s.out.Send(soma.NewAddTerminal[Outer](imp.PeerID, s.conv.ToOuter(imp.SynKind), imp.Terminal))
	case soma.Stop:
		s.out.Send(soma.NewStop[Outer]())
	case soma.Error:
		s.out.Send(soma.NewError[Outer](imp.Err))
	case soma.Probe:
		s.out.Send(soma.NewProbe[Outer](imp.Request, imp.ReplySink))
	}
}
