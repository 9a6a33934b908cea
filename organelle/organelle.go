// Package organelle implements the composite soma (spec §4.4, component
// C5): a soma that hosts child somas, wires synapses between them,
// fans lifecycle impulses out to the whole graph, and exposes one child
// (the nucleus) as its own external surface. Grounded on
// original_source/src/organelle.rs's create_soma_channel/add_soma/
// connect/start_all, translated from one-goroutine-per-child futures
// plumbing into one Go goroutine per child reading a dedicated inbox
// channel, and on the teacher's transport/bundle preference for a
// persistent goroutine per live endpoint rather than a task spawned per
// message.
package organelle

import (
	"context"
	"fmt"
	"sync"

	"github.com/somaproj/organelle/cos"
	"github.com/somaproj/organelle/debug"
	"github.com/somaproj/organelle/ids"
	"github.com/somaproj/organelle/nlog"
	"github.com/somaproj/organelle/probe"
	"github.com/somaproj/organelle/sched"
	"github.com/somaproj/organelle/soma"
	"github.com/somaproj/organelle/stats"
	"github.com/somaproj/organelle/synapse"
)

const (
	// childInboxCap bounds a single child's control inbox. Connections
	// and lifecycle impulses for one soma are rare and small in number,
	// so a small buffer is enough to keep connect()/forwarding
	// fire-and-forget without blocking the caller on a slow child.
	childInboxCap = 16

	// mainCap bounds the organelle's own upward control channel. Per
	// the project's resolution of the "upward error backpressure" open
	// question (DESIGN.md): first-arrival wins once full, since an
	// organelle only ever needs to report the first fatal error to its
	// parent before it is torn down anyway.
	mainCap = 8
)

type child[K synapse.Kind] struct {
	id    string
	label string
	inbox chan soma.Impulse[K]
}

type pendingConn[K synapse.Kind] struct {
	producer, consumer string
	kind               K
}

// Organelle is the composite soma (spec §3 "Organelle state"). Unlike
// Axon, it is not copied on every Update: it owns long-lived per-child
// goroutines and channels that a value copy would only alias, so its
// Update returns the same receiver, mutating only its concurrency-safe
// bookkeeping (the mutex-guarded child table and pending list). The
// consuming-self convention (soma.Soma's doc comment) still holds for
// every *child* it hosts.
type Organelle[K synapse.Kind] struct {
	label string

	mu        sync.Mutex
	children  map[string]*child[K]
	order     []string
	nucleusID string
	pending   []pendingConn[K]
	started   bool

	main      chan soma.Impulse[K]
	selfID    string
	outerCtrl soma.Sender[K]
	sched     sched.Handle

	stats *stats.Registry
}

// New creates an organelle whose nucleus is nucleus — the organelle's own
// external synapse surface (spec §3: "the distinguished child that
// represents the organelle's own synapse surface externally").
func New[K synapse.Kind](nucleus soma.Soma[K], label string) *Organelle[K] {
	o := &Organelle[K]{
		label:    label,
		children: make(map[string]*child[K]),
		main:     make(chan soma.Impulse[K], mainCap),
	}
	id, err := o.AddSoma(nucleus, "nucleus")
	if err != nil {
		// cannot happen: o.started is false immediately after New.
		panic(err)
	}
	o.nucleusID = id
	return o
}

// WithStats attaches a metrics registry; every AddSoma, Start/teardown,
// impulse delivered to a child, and probe fan-out reports into it from
// then on. Returns o for chaining onto New. An Organelle with no
// registry attached behaves exactly as before — every call site below
// guards on o.stats being non-nil.
func (o *Organelle[K]) WithStats(r *stats.Registry) *Organelle[K] {
	o.stats = r
	return o
}

// Nucleus returns the id of the organelle's nucleus soma (spec §4.4
// "nucleus()").
func (o *Organelle[K]) Nucleus() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nucleusID
}

// AddSoma registers a new child soma, starting its adapter goroutine
// immediately so buffered pre-Start traffic (AddDendrite/AddTerminal from
// an early connect()) has somewhere to land. Returns the fresh soma id.
// Adding a soma after Start returns an error: dynamic reconfiguration of
// a running graph is out of scope (spec Non-goals).
func (o *Organelle[K]) AddSoma(s soma.Soma[K], label string) (string, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return "", fmt.Errorf("organelle %s: cannot add soma %q after Start", o.label, label)
	}
	id := ids.NewSomaID()
	c := &child[K]{id: id, label: label, inbox: make(chan soma.Impulse[K], childInboxCap)}
	o.children[id] = c
	o.order = append(o.order, id)
	st := o.stats
	o.mu.Unlock()

	if st != nil {
		st.SomasRegistered.Inc()
	}
	nlog.Infof("organelle %s: registered soma %s (%s)", o.label, id, label)
	go o.runChild(c, s)
	return id, nil
}

// Connect wires a Terminal/Dendrite pair of the given kind between an
// already-registered producer and consumer (spec §4.4 "connect()"). If
// called before Start, the request is buffered and replayed once the
// organelle starts (spec §3 "pending connection records",
// "Pending-connections replay").
func (o *Organelle[K]) Connect(producerID, consumerID string, kind K) error {
	o.mu.Lock()
	if !o.started {
		o.pending = append(o.pending, pendingConn[K]{producer: producerID, consumer: consumerID, kind: kind})
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	return o.deliverConnection(producerID, consumerID, kind)
}

func (o *Organelle[K]) deliverConnection(producerID, consumerID string, kind K) error {
	o.mu.Lock()
	producer, ok := o.children[producerID]
	if !ok {
		o.mu.Unlock()
		nlog.Warningf("organelle %s: connect: unknown producer soma %s", o.label, producerID)
		return fmt.Errorf("organelle %s: connect: unknown producer soma %s", o.label, producerID)
	}
	consumer, ok := o.children[consumerID]
	if !ok {
		o.mu.Unlock()
		nlog.Warningf("organelle %s: connect: unknown consumer soma %s", o.label, consumerID)
		return fmt.Errorf("organelle %s: connect: unknown consumer soma %s", o.label, consumerID)
	}
	o.mu.Unlock()

	terminal, dendrite := kind.Split()
	nlog.Infof("organelle %s: connect %s -> %s (%s)", o.label, producerID, consumerID, kind)
	producer.inbox <- soma.NewAddTerminal[K](consumerID, kind, terminal)
	consumer.inbox <- soma.NewAddDendrite[K](producerID, kind, dendrite)
	return nil
}

// Update implements soma.Soma[K] (spec §4.4 "Organelle as a Soma").
func (o *Organelle[K]) Update(ctx context.Context, imp soma.Impulse[K]) (soma.Soma[K], error) {
	switch imp.Variant {
	case soma.AddDendrite, soma.AddTerminal:
		o.forwardToNucleus(imp)
		return o, nil
	case soma.Start:
		return o.start(imp)
	case soma.Probe:
		return o.probe(ctx, imp)
	case soma.Stop, soma.Error:
		return nil, fmt.Errorf("organelle %s: %s impulse delivered inbound — programming error", o.label, imp.Variant)
	default:
		return o, nil
	}
}

// forwardToNucleus implements "Nucleus promotion" (spec §4.4): the
// organelle's own external synapse surface is exactly its nucleus's
// surface, so wiring addressed to the organelle itself is routed there.
func (o *Organelle[K]) forwardToNucleus(imp soma.Impulse[K]) {
	o.mu.Lock()
	nucleus := o.children[o.nucleusID]
	o.mu.Unlock()
	debug.Assert(nucleus != nil)
	nucleus.inbox <- imp
}

// start implements spec §4.4's three-step Start handling, plus the
// pending-connection replay. The replay runs before the per-child Start
// fan-out rather than after, despite spec §3's "replayed... after
// children are started": replaying on the same FIFO inbox a child's
// Start has already been enqueued on would let that Start arrive before
// the synapse it depends on, which is exactly what I2 forbids. Replaying
// first is the only order that actually delivers the guarantee the spec
// text credits to this mechanism (see DESIGN.md).
func (o *Organelle[K]) start(imp soma.Impulse[K]) (soma.Soma[K], error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, fmt.Errorf("organelle %s: Start delivered twice", o.label)
	}
	o.started = true
	o.selfID = imp.SelfID
	o.outerCtrl = imp.Control
	o.sched = imp.Sched
	pending := o.pending
	o.pending = nil
	childIDs := append([]string(nil), o.order...)
	o.mu.Unlock()

	if o.stats != nil {
		o.stats.OrganellesActive.Inc()
	}

	// 1 & 2: record self_uuid (above) and pipe our own main_rx into the
	// outer control sender for the lifetime of this run.
	o.sched.Go(func() error {
		defer func() {
			if o.stats != nil {
				o.stats.OrganellesActive.Dec()
			}
		}()
		for {
			select {
			case imp, ok := <-o.main:
				if !ok {
					return nil
				}
				o.outerCtrl.Send(imp)
			case <-o.sched.Context().Done():
				return nil
			}
		}
	})

	for _, pc := range pending {
		if err := o.deliverConnection(pc.producer, pc.consumer, pc.kind); err != nil {
			return nil, cos.NewErrSoma(o.selfID, err)
		}
	}

	// 3: emit Start to every child concurrently via the shared scheduler.
	mine := soma.ChanSender[K]{Ch: o.main, Done: o.sched.Context().Done()}
	o.mu.Lock()
	children := make([]*child[K], 0, len(childIDs))
	for _, id := range childIDs {
		children = append(children, o.children[id])
	}
	o.mu.Unlock()
	debug.Assert(len(children) == len(childIDs))
	nlog.Infof("organelle %s: starting %d children", o.label, len(children))
	for _, c := range children {
		c := c
		o.sched.Go(func() error {
			c.inbox <- soma.NewStart[K](c.id, mine, o.sched)
			return nil
		})
	}

	return o, nil
}

// probe implements the organelle's half of the probe contract (spec
// §4.6): fan Probe out to every child concurrently, await all replies,
// assemble a tree with the nucleus marked, and complete the caller's
// reply sink. (spec §4.4's one-line "Probe: forwarded to the nucleus
// only" is superseded here by §4.6's fuller description of the probe
// contract — see DESIGN.md for why.)
func (o *Organelle[K]) probe(ctx context.Context, imp soma.Impulse[K]) (soma.Soma[K], error) {
	o.mu.Lock()
	order := append([]string(nil), o.order...)
	refs := make(map[string]*child[K], len(o.children))
	for id, c := range o.children {
		refs[id] = c
	}
	nucleusID := o.nucleusID
	selfID := o.selfID
	label := o.label
	o.mu.Unlock()
	debug.Assert(refs[nucleusID] != nil)

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if imp.ReplySink != nil {
		go func() {
			select {
			case <-imp.ReplySink.Done():
				cancel()
			case <-gctx.Done():
			}
		}()
	}

	var descs []probe.Description
	var errs *cos.Errs
	gather := func() {
		descs, errs = probe.Gather(gctx, order, func(id string, sink *probe.Once) {
			refs[id].inbox <- soma.NewProbe[K](imp.Request, sink)
		})
	}
	if o.stats != nil {
		o.stats.ObserveProbe(gather)
	} else {
		gather()
	}
	if cnt, err := errs.JoinErr(); cnt > 0 {
		nlog.Warningf("organelle %s: probe: %d of %d children did not report: %v", label, cnt, len(order), err)
	}
	assembled := probe.Assemble(selfID, label, nucleusID, descs)
	if imp.ReplySink != nil {
		imp.ReplySink.Send(assembled)
	}
	return o, nil
}

// Describe is a convenience wrapper around the probe contract for
// callers (tests, cmd/organelle-demo) that want a synchronous snapshot
// without building their own Impulse/reply sink.
func (o *Organelle[K]) Describe(ctx context.Context) (probe.Description, error) {
	sink := probe.NewOnce(ctx)
	if _, err := o.Update(ctx, soma.NewProbe[K](nil, sink)); err != nil {
		return probe.Description{}, err
	}
	reply, err := sink.Wait(ctx)
	if err != nil {
		return probe.Description{}, err
	}
	d, _ := reply.(probe.Description)
	return d, nil
}

// runChild is the per-child adapter loop (spec §4.4's create_soma_channel
// generalized from one task per translated message to one goroutine per
// live child): it owns cur/state exclusively, so no synchronization is
// needed beyond the channel read itself.
//
// Once a child has seen its own Start, its loop also selects on the run's
// scheduler context: cancelling that context (which the driver does as
// soon as it returns, on a Stop or a fatal Error) wakes every still-live
// child adapter goroutine so it exits promptly instead of blocking on its
// inbox forever — without this, a child that is never individually told
// to Stop would leak (spec P3: "after the driver returns Ok, every child
// adapter task has terminated").
func (o *Organelle[K]) runChild(c *child[K], initial soma.Soma[K]) {
	cur := initial
	st := soma.Configuring
	ctx := context.Background()
	var done <-chan struct{}

	for {
		select {
		case imp, ok := <-c.inbox:
			if !ok {
				return
			}
			next, err := st.Advance(imp.Variant)
			if err != nil {
				wrapped := fmt.Errorf("organelle %s: child %s (%s): %w", o.label, c.id, c.label, err)
				nlog.Errorf("%v", wrapped)
				o.reportError(wrapped, done)
				return
			}
			st = next
			if imp.Variant == soma.Start {
				ctx = imp.Sched.Context()
				done = ctx.Done()
			}
			if o.stats != nil {
				o.stats.ImpulsesDelivered.WithLabelValues(imp.Variant.String()).Inc()
			}

			updated, err := cur.Update(ctx, imp)
			if err != nil {
				wrapped := cos.NewErrSoma(c.id, err)
				nlog.Errorf("organelle %s: %v", o.label, wrapped)
				o.reportError(wrapped, done)
				return
			}
			cur = updated

			if st == soma.Terminated {
				nlog.Infof("organelle %s: child %s (%s) terminated (%s)", o.label, c.id, c.label, imp.Variant)
				return
			}
		case <-done:
			return
		}
	}
}

// reportError delivers a child's fatal error onto the organelle's own
// main channel. Before Start, nothing is draining main yet; the channel
// buffers up to mainCap, and the pipe task spawned by start() drains
// whatever accumulated once the organelle itself starts. A full channel
// suspends the reporting child until there is room, or until done (the
// run's context, once the child has seen Start) is closed.
func (o *Organelle[K]) reportError(err error, done <-chan struct{}) {
	select {
	case o.main <- soma.NewError[K](err):
	case <-done:
	}
}
