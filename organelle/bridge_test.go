package organelle_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/somaproj/organelle/organelle"
	"github.com/somaproj/organelle/sched"
	"github.com/somaproj/organelle/soma"
	"github.com/somaproj/organelle/synapse"
)

// outerKind is a host organelle's kind set, distinct from tickKind, used
// only to exercise Bridge's cross-kind translation (spec §4.1).
type outerKind int

const outerIncrement outerKind = 0

func (outerKind) String() string { return "OuterIncrement" }
func (outerKind) Split() (synapse.Terminal, synapse.Dendrite) {
	return synapse.NewChanSynapse[int](8)
}

type tickConverter struct{}

func (tickConverter) ToInner(k outerKind) (tickKind, bool) {
	if k == outerIncrement {
		return incrementKind, true
	}
	return 0, false
}

func (tickConverter) ToOuter(k tickKind) outerKind { return outerIncrement }

// capturingSender records every impulse Send receives, for bridgeSender's
// outbound-translation half to be checked against directly.
type capturingSender struct {
	log *[]soma.Impulse[outerKind]
}

func (s capturingSender) Send(imp soma.Impulse[outerKind]) { *s.log = append(*s.log, imp) }

var _ = Describe("Bridge", func() {
	It("translates AddDendrite's kind inbound and passes the endpoint through unchanged", func() {
		counter, _ := newCounter(1, new(int))
		b := organelle.NewBridge[outerKind, tickKind](counter, tickConverter{})
		_, dendrite := incrementKind.Split()

		next, err := b.Update(context.Background(), soma.NewAddDendrite[outerKind]("peer", outerIncrement, dendrite))
		Expect(err).NotTo(HaveOccurred())
		Expect(next).NotTo(BeNil())
		Expect(next).NotTo(Equal(b)) // applied to the inner counter, not dropped
	})

	It("wraps Start's Control sender so the child's own upward Stop reaches the outer sender translated", func() {
		inner := stopSendingSoma{}
		b := organelle.NewBridge[outerKind, tickKind](inner, tickConverter{})

		var log []soma.Impulse[outerKind]
		outer := capturingSender{log: &log}

		_, err := b.Update(context.Background(), soma.NewStart[outerKind]("self", outer, sched.New(context.Background())))
		Expect(err).NotTo(HaveOccurred())

		Expect(log).To(HaveLen(1))
		Expect(log[0].Variant).To(Equal(soma.Stop))
	})

	It("drops an impulse whose outer kind has no inner counterpart", func() {
		counter, _ := newCounter(1, new(int))
		b := organelle.NewBridge[outerKind, tickKind](counter, tickConverter{})
		_, dendrite := incrementKind.Split()

		next, err := b.Update(context.Background(), soma.NewAddDendrite[outerKind]("peer", outerKind(99), dendrite))
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(b)) // unchanged: the impulse was dropped, not applied
	})
})

// stopSendingSoma sends Stop on its own control sender as soon as it sees
// Start — used to exercise bridgeSender's outbound Stop translation.
type stopSendingSoma struct{}

func (s stopSendingSoma) Update(_ context.Context, imp soma.Impulse[tickKind]) (soma.Soma[tickKind], error) {
	if imp.Variant == soma.Start {
		imp.Control.Send(soma.NewStop[tickKind]())
	}
	return s, nil
}
