package organelle_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/somaproj/organelle/driver"
	"github.com/somaproj/organelle/organelle"
)

// runTimeout bounds every scenario below: the fixtures are deterministic
// and finish in microseconds, so a generous ceiling only guards against a
// genuine deadlock hanging the suite.
const runTimeout = 5 * time.Second

var _ = Describe("CounterIncrementer", func() {
	// spec scenario 1: an incrementer (nucleus) connected directly to a
	// counter; the counter stops the run once it has seen 5 ticks.
	It("delivers every tick and stops cleanly", func() {
		var count int
		counter, done := newCounter(5, &count)

		org := organelle.New[tickKind](newIncrementer(5), "root")
		counterID, err := org.AddSoma(counter, "counter")
		Expect(err).NotTo(HaveOccurred())
		Expect(org.Connect(org.Nucleus(), counterID, incrementKind)).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- driver.Run(ctx, org) }()

		select {
		case <-done:
		case <-ctx.Done():
			Fail("timed out waiting for the counter to see 5 ticks")
		}

		Eventually(runErr, runTimeout).Should(Receive(BeNil()))
		Expect(count).To(Equal(5))
	})
})

var _ = Describe("ForwarderChain", func() {
	// spec scenario 2: incrementer -> forwarder -> counter, exercising a
	// child that is neither the nucleus nor directly wired to it.
	It("relays ticks through the forwarder unchanged", func() {
		var count int
		counter, done := newCounter(5, &count)

		org := organelle.New[tickKind](newIncrementer(5), "root")
		forwarderID, err := org.AddSoma(newForwarder(), "forwarder")
		Expect(err).NotTo(HaveOccurred())
		counterID, err := org.AddSoma(counter, "counter")
		Expect(err).NotTo(HaveOccurred())

		Expect(org.Connect(org.Nucleus(), forwarderID, incrementKind)).To(Succeed())
		Expect(org.Connect(forwarderID, counterID, incrementKind)).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- driver.Run(ctx, org) }()

		select {
		case <-done:
		case <-ctx.Done():
			Fail("timed out waiting for the counter to see 5 ticks")
		}

		Eventually(runErr, runTimeout).Should(Receive(BeNil()))
		Expect(count).To(Equal(5))
	})
})

var _ = Describe("NestedOrganelle", func() {
	// spec scenario 3: an inner organelle (forwarder as nucleus, counter
	// as a plain child) nested as a child of an outer organelle (whose
	// own nucleus is the incrementer) — nucleus promotion lets the outer
	// Connect address the inner organelle exactly like any leaf soma.
	It("promotes the inner nucleus through nesting", func() {
		var count int
		counter, done := newCounter(5, &count)

		inner := organelle.New[tickKind](newForwarder(), "inner")
		innerCounterID, err := inner.AddSoma(counter, "counter")
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.Connect(inner.Nucleus(), innerCounterID, incrementKind)).To(Succeed())

		outer := organelle.New[tickKind](newIncrementer(5), "outer")
		innerID, err := outer.AddSoma(inner, "inner-organelle")
		Expect(err).NotTo(HaveOccurred())
		Expect(outer.Connect(outer.Nucleus(), innerID, incrementKind)).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- driver.Run(ctx, outer) }()

		select {
		case <-done:
		case <-ctx.Done():
			Fail("timed out waiting for the nested counter to see 5 ticks")
		}

		Eventually(runErr, runTimeout).Should(Receive(BeNil()))
		Expect(count).To(Equal(5))
	})
})

var _ = Describe("Describe", func() {
	// Exercises the probe contract (spec §4.6) directly: a running
	// organelle's Describe assembles a tree with the nucleus marked and
	// every registered child present, even ones added after New.
	It("assembles a tree with the nucleus marked", func() {
		org := organelle.New[tickKind](newIncrementer(0), "root")
		counter, _ := newCounter(1, new(int))
		counterID, err := org.AddSoma(counter, "counter")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- driver.Run(ctx, org) }()

		Eventually(func() bool {
			d, derr := org.Describe(ctx)
			if derr != nil || len(d.Children) != 2 {
				return false
			}
			for _, c := range d.Children {
				if c.SomaID == counterID && c.IsNucleus {
					return false // the counter is not the nucleus
				}
				if c.IsNucleus && c.SomaID != org.Nucleus() {
					return false
				}
			}
			return true
		}, runTimeout).Should(BeTrue())

		cancel()
		Eventually(runErr, runTimeout).Should(Receive())
	})
})
