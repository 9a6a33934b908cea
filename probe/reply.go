package probe

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/somaproj/organelle/cos"
	"github.com/somaproj/organelle/soma"
)

// Request is the request_descriptor a Probe impulse carries (spec §3).
// It is intentionally almost empty: the core places no constraints on
// what a prober wants to know beyond "describe yourself"; callers that
// need filtering build their own richer request and type-assert it out of
// soma.Impulse.Request.
type Request struct {
	// Ctx is carried as request data only. Once does not read it: a
	// sink's Done channel follows the context passed to NewOnce (or to
	// Wait), not this field.
	Ctx context.Context
}

// Once is the canonical soma.ReplySink: accepts exactly one Send, and
// exposes cancellation via Done (spec §4.6/§5, supplemented per
// original_source/probe.rs — see SPEC_FULL.md §3).
type Once struct {
	ch     chan any
	cancel chan struct{}
	once   sync.Once
}

var _ soma.ReplySink = (*Once)(nil)

// NewOnce builds a reply sink. If ctx is non-nil, cancelling it closes
// the sink's Done channel, signalling an in-progress Probe handler that
// its answer is no longer wanted.
func NewOnce(ctx context.Context) *Once {
	o := &Once{ch: make(chan any, 1), cancel: make(chan struct{})}
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				o.once.Do(func() { close(o.cancel) })
			case <-o.cancel:
			}
		}()
	}
	return o
}

// Send delivers the reply. Only the first call has any effect; later
// calls (a misbehaving soma, or a retry) are silently discarded, matching
// "accepts exactly one Send before going inert" from the soma.ReplySink
// doc comment.
func (o *Once) Send(desc any) {
	select {
	case o.ch <- desc:
	default:
	}
}

func (o *Once) Done() <-chan struct{} { return o.cancel }

// Wait blocks for a reply, for cancellation of ctx, or for the sink's own
// cancellation, whichever comes first.
func (o *Once) Wait(ctx context.Context) (any, error) {
	select {
	case d := <-o.ch:
		return d, nil
	case <-o.cancel:
		return nil, context.Canceled
	case <-ctx.Done():
		o.once.Do(func() { close(o.cancel) })
		return nil, ctx.Err()
	}
}

// Gather issues one Probe impulse per child via send, concurrently awaits
// every reply with errgroup (spec §9 "Probe as tree gather": "organelle
// issues probes concurrently to all children, awaits join, assembles"),
// and type-asserts each reply to a Description — a child whose reply
// isn't a Description (or never arrives because ctx is cancelled first)
// is omitted from the tree, so one slow/misbehaving child cannot block
// the rest of it from being reported. Every omission is still recorded
// into the returned Errs (deduplicated, capped — see cos.Errs) instead of
// being silently dropped, so a caller can report every child that failed
// to answer rather than truncating to the first.
func Gather(ctx context.Context, childIDs []string, send func(id string, sink *Once)) ([]Description, *cos.Errs) {
	results := make([]Description, len(childIDs))
	ok := make([]bool, len(childIDs))
	errs := &cos.Errs{}

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range childIDs {
		i, id := i, id
		g.Go(func() error {
			sink := NewOnce(gctx)
			send(id, sink)
			reply, err := sink.Wait(gctx)
			if err != nil {
				errs.Add(fmt.Errorf("probe %s: %w", id, err))
				return nil // cancellation/timeout: omit, don't fail the whole gather
			}
			d, isDesc := reply.(Description)
			if !isDesc {
				errs.Add(fmt.Errorf("probe %s: reply was not a Description", id))
				return nil
			}
			results[i] = d
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Description, 0, len(childIDs))
	for i, present := range ok {
		if present {
			out = append(out, results[i])
		}
	}
	return out, errs
}
