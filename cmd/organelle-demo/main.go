// Command organelle-demo wires a tiny two-soma graph (an incrementer
// feeding a counter through an axon-enforced required synapse) and drives
// it to completion, printing the final tally and a probe snapshot of the
// graph it ran. It exists purely to exercise the public API end to end —
// the same role cmd/xmeta plays for the teacher's on-disk metadata
// formats, scaled down to this engine's in-process graphs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/somaproj/organelle/axon"
	"github.com/somaproj/organelle/driver"
	"github.com/somaproj/organelle/nlog"
	"github.com/somaproj/organelle/organelle"
	"github.com/somaproj/organelle/probe"
	"github.com/somaproj/organelle/soma"
	"github.com/somaproj/organelle/stats"
	"github.com/somaproj/organelle/synapse"
)

func main() {
	n := flag.Int("n", 5, "number of ticks the incrementer produces")
	flag.Parse()

	reg := stats.New("organelle_demo")

	count := 0
	countDone := make(chan struct{})
	counter := axon.New[tickKind](
		newCounterSoma(*n, &count, countDone),
		"counter",
		map[tickKind]axon.Constraint{incrementKind: axon.One},
		nil,
	)

	root := organelle.New[tickKind](newIncrementerSoma(*n), "root").WithStats(reg)
	counterID, err := root.AddSoma(counter, "counter")
	if err != nil {
		nlog.Errorf("organelle-demo: add counter: %v", err)
		os.Exit(1)
	}
	if err := root.Connect(root.Nucleus(), counterID, incrementKind); err != nil {
		nlog.Errorf("organelle-demo: connect: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- driver.Run(ctx, root) }()

	select {
	case <-countDone:
	case <-ctx.Done():
		nlog.Errorf("organelle-demo: timed out waiting for %d ticks", *n)
		os.Exit(1)
	}

	// Describe while the graph is still demonstrably alive: the counter
	// only closes countDone, it never stops the run itself, so there is
	// no teardown race between this Probe and any child's own adapter
	// loop exiting — cancel below is the only thing that ends the run.
	if d, derr := root.Describe(ctx); derr == nil {
		if encoded, jerr := probe.EncodeJSON(d); jerr == nil {
			fmt.Printf("graph: %s\n", encoded)
		}
	}

	cancel()
	<-runErr

	fmt.Printf("counted %d ticks\n", count)
}

// tickKind is the single synapse kind this demo wires: an int-valued
// channel carrying increment "ticks" (same shape as the engine's own
// scenario tests — see organelle/fixtures_test.go).
type tickKind int

const incrementKind tickKind = 0

func (tickKind) String() string { return "Increment" }
func (tickKind) Split() (synapse.Terminal, synapse.Dendrite) {
	return synapse.NewChanSynapse[int](8)
}

type incrementerSoma struct {
	n        int
	terminal synapse.ChanTerminal[int]
}

func newIncrementerSoma(n int) *incrementerSoma { return &incrementerSoma{n: n} }

func (s *incrementerSoma) Update(ctx context.Context, imp soma.Impulse[tickKind]) (soma.Soma[tickKind], error) {
	next := *s
	switch imp.Variant {
	case soma.AddTerminal:
		next.terminal = imp.Terminal.(synapse.ChanTerminal[int])
	case soma.Start:
		term, n := next.terminal, next.n
		go func() {
			for i := 0; i < n; i++ {
				select {
				case term.Send <- i:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return &next, nil
}

type counterSoma struct {
	stopAt   int
	dendrite synapse.ChanDendrite[int]
	count    *int
	done     chan struct{}
}

func newCounterSoma(stopAt int, count *int, done chan struct{}) *counterSoma {
	return &counterSoma{stopAt: stopAt, count: count, done: done}
}

func (s *counterSoma) Update(ctx context.Context, imp soma.Impulse[tickKind]) (soma.Soma[tickKind], error) {
	next := *s
	switch imp.Variant {
	case soma.AddDendrite:
		next.dendrite = imp.Dendrite.(synapse.ChanDendrite[int])
	case soma.Start:
		dendrite, stopAt, count, done := next.dendrite, next.stopAt, next.count, next.done
		go func() {
			seen := 0
			for {
				select {
				case _, ok := <-dendrite.Recv:
					if !ok {
						return
					}
					seen++
					*count = seen
					if seen >= stopAt {
						close(done)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return &next, nil
}
