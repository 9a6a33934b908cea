package axon_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/somaproj/organelle/axon"
	"github.com/somaproj/organelle/cos"
	"github.com/somaproj/organelle/ids"
	"github.com/somaproj/organelle/probe"
	"github.com/somaproj/organelle/sched"
	"github.com/somaproj/organelle/soma"
	"github.com/somaproj/organelle/synapse"
)

// kind is the trivial synapse kind these tests wire through an Axon: a
// single required ("one") channel kind and a single unbounded
// ("variadic") one.
type kind int

const (
	oneKind      kind = iota
	variadicKind
)

func (k kind) String() string {
	if k == variadicKind {
		return "Variadic"
	}
	return "One"
}

func (kind) Split() (synapse.Terminal, synapse.Dendrite) {
	return synapse.NewChanSynapse[int](1)
}

// noopSoma is the plainest possible inner soma: it never inspects an
// impulse and always reports success, so every test below exercises only
// the Axon's own constraint bookkeeping.
type noopSoma struct{}

func (s noopSoma) Update(context.Context, soma.Impulse[kind]) (soma.Soma[kind], error) {
	return s, nil
}

var _ = Describe("MissingRequiredSynapse", func() {
	// P4 / I4, first half: a One constraint never fulfilled fails Start.
	It("fails Start with ErrMissingSynapse when the One dendrite was never added", func() {
		a := axon.New[kind](noopSoma{}, "axon", map[kind]axon.Constraint{oneKind: axon.One}, nil)

		_, err := a.Update(context.Background(), soma.NewStart[kind]("self", soma.ChanSender[kind]{}, sched.New(context.Background())))
		Expect(err).To(HaveOccurred())

		var missing *cos.ErrMissingSynapse
		Expect(asErrMissingSynapse(err, &missing)).To(BeTrue())
		Expect(missing.Kind).To(Equal(oneKind.String()))
	})
})

var _ = Describe("DuplicateRequiredSynapse", func() {
	// P4, second half: a second add against an already-fulfilled One
	// constraint fails immediately with ErrInvalidSynapse.
	It("fails the second AddDendrite for an already-fulfilled One kind", func() {
		a := axon.New[kind](noopSoma{}, "axon", map[kind]axon.Constraint{oneKind: axon.One}, nil)
		_, dendrite := oneKind.Split()

		next, err := a.Update(context.Background(), soma.NewAddDendrite[kind]("peer-1", oneKind, dendrite))
		Expect(err).NotTo(HaveOccurred())

		_, dendrite2 := oneKind.Split()
		_, err = next.Update(context.Background(), soma.NewAddDendrite[kind]("peer-2", oneKind, dendrite2))
		Expect(err).To(HaveOccurred())

		var invalid *cos.ErrInvalidSynapse
		Expect(asErrInvalidSynapse(err, &invalid)).To(BeTrue())
		Expect(invalid.Kind).To(Equal(oneKind.String()))
	})
})

var _ = Describe("VariadicSynapse", func() {
	// P5: a Variadic constraint accepts zero or more adds and never fails
	// Start for that kind.
	It("accepts any number of adds and never fails Start", func() {
		a := axon.New[kind](noopSoma{}, "axon", map[kind]axon.Constraint{variadicKind: axon.Variadic}, nil)

		var cur soma.Soma[kind] = a
		for i := 0; i < 3; i++ {
			_, dendrite := variadicKind.Split()
			next, err := cur.Update(context.Background(), soma.NewAddDendrite[kind]("peer", variadicKind, dendrite))
			Expect(err).NotTo(HaveOccurred())
			cur = next
		}

		_, err := cur.Update(context.Background(), soma.NewStart[kind]("self", soma.ChanSender[kind]{}, sched.New(context.Background())))
		Expect(err).NotTo(HaveOccurred())
	})

	It("never fails Start when zero adds were made", func() {
		a := axon.New[kind](noopSoma{}, "axon", map[kind]axon.Constraint{variadicKind: axon.Variadic}, nil)
		_, err := a.Update(context.Background(), soma.NewStart[kind]("self", soma.ChanSender[kind]{}, sched.New(context.Background())))
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("ProbeAugmentation", func() {
	// spec §4.6: an Axon attaches its constraint table to the inner
	// soma's description on the way back out through Probe.
	It("attaches the constraint table to the inner description", func() {
		a := axon.New[kind](describingSoma{}, "axon", map[kind]axon.Constraint{oneKind: axon.One}, nil)
		_, dendrite := oneKind.Split()
		next, err := a.Update(context.Background(), soma.NewAddDendrite[kind]("peer", oneKind, dendrite))
		Expect(err).NotTo(HaveOccurred())

		sink := probe.NewOnce(context.Background())
		_, err = next.Update(context.Background(), soma.NewProbe[kind](nil, sink))
		Expect(err).NotTo(HaveOccurred())

		reply, err := sink.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		d, ok := reply.(probe.Description)
		Expect(ok).To(BeTrue())
		Expect(d.Axon).NotTo(BeNil())
		Expect(d.Axon.Dendrites[oneKind.String()].Met).To(BeTrue())
		Expect(d.Axon.Dendrites[oneKind.String()].Peers).To(ConsistOf("peer"))
	})
})

var _ = Describe("ConstraintByHash", func() {
	It("resolves a kind's constraint info from the hash of its string tag", func() {
		a := axon.New[kind](noopSoma{}, "axon", map[kind]axon.Constraint{oneKind: axon.One}, nil)
		_, dendrite := oneKind.Split()
		next, err := a.Update(context.Background(), soma.NewAddDendrite[kind]("peer", oneKind, dendrite))
		Expect(err).NotTo(HaveOccurred())

		info, ok := next.(*axon.Axon[kind]).ConstraintByHash(ids.HashKind(oneKind.String()))
		Expect(ok).To(BeTrue())
		Expect(info.Met).To(BeTrue())
		Expect(info.Peers).To(ConsistOf("peer"))
	})

	It("reports ok=false for an unregistered hash", func() {
		a := axon.New[kind](noopSoma{}, "axon", map[kind]axon.Constraint{oneKind: axon.One}, nil)
		_, ok := a.ConstraintByHash(ids.HashKind("nonexistent"))
		Expect(ok).To(BeFalse())
	})
})

// describingSoma replies to Probe with a bare leaf Description, the way a
// real soma would, so ProbeAugmentation has something for the Axon to
// attach its constraint table onto.
type describingSoma struct{}

func (s describingSoma) Update(_ context.Context, imp soma.Impulse[kind]) (soma.Soma[kind], error) {
	if imp.Variant == soma.Probe && imp.ReplySink != nil {
		imp.ReplySink.Send(probe.Leaf("inner", "describing"))
	}
	return s, nil
}

func asErrMissingSynapse(err error, target **cos.ErrMissingSynapse) bool {
	e, ok := err.(*cos.ErrMissingSynapse)
	if ok {
		*target = e
	}
	return ok
}

func asErrInvalidSynapse(err error, target **cos.ErrInvalidSynapse) bool {
	e, ok := err.(*cos.ErrInvalidSynapse)
	if ok {
		*target = e
	}
	return ok
}
