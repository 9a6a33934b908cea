package organelle_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/somaproj/organelle/driver"
	"github.com/somaproj/organelle/organelle"
	"github.com/somaproj/organelle/soma"
)

// recordingSoma appends every impulse Variant it sees (in delivery order)
// to a shared, mutex-guarded log — used to check P1 (pending-connection
// replay ordering) and P8 (per-sender ordering) directly against what a
// child actually observed.
type recordingSoma struct {
	mu  *sync.Mutex
	log *[]soma.Variant
}

func newRecordingSoma() *recordingSoma {
	return &recordingSoma{mu: &sync.Mutex{}, log: &[]soma.Variant{}}
}

func (s *recordingSoma) Update(_ context.Context, imp soma.Impulse[tickKind]) (soma.Soma[tickKind], error) {
	s.mu.Lock()
	*s.log = append(*s.log, imp.Variant)
	s.mu.Unlock()
	next := *s
	return &next, nil
}

func (s *recordingSoma) snapshot() []soma.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]soma.Variant(nil), *s.log...)
}

var _ = Describe("PendingConnectionReplay", func() {
	// P1: a connect() issued before Start is delivered (as AddTerminal to
	// the producer, AddDendrite to the consumer) strictly before that
	// soma's own Start.
	It("delivers the buffered wiring before Start on both ends", func() {
		producer := newRecordingSoma()
		consumer := newRecordingSoma()

		org := organelle.New[tickKind](newIncrementer(0), "root")
		producerID, err := org.AddSoma(producer, "producer")
		Expect(err).NotTo(HaveOccurred())
		consumerID, err := org.AddSoma(consumer, "consumer")
		Expect(err).NotTo(HaveOccurred())

		// Connect before Start: buffered as a pendingConn, replayed on
		// start() before the Start fan-out.
		Expect(org.Connect(producerID, consumerID, incrementKind)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go driver.Run(ctx, org)

		Eventually(func() []soma.Variant { return producer.snapshot() }).Should(Equal([]soma.Variant{soma.AddTerminal, soma.Start}))
		Eventually(func() []soma.Variant { return consumer.snapshot() }).Should(Equal([]soma.Variant{soma.AddDendrite, soma.Start}))
	})
})
