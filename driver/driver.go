// Package driver implements the top-level cooperative event loop (spec
// §4.5, component C6): the only piece of the engine that isn't itself a
// soma. Grounded on original_source/src/organelle.rs's Soma::run, which
// bootstraps by sending itself its own Start impulse through its own
// channel and then drains that channel uniformly — Stop breaks the loop,
// Error propagates as a failure, anything else is dispatched through
// update. Generalized here to drive any soma.Soma[K], not just an
// Organelle, matching spec §4.5's "Run(root: Soma<K>)".
package driver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/somaproj/organelle/cos"
	"github.com/somaproj/organelle/ids"
	"github.com/somaproj/organelle/nlog"
	"github.com/somaproj/organelle/sched"
	"github.com/somaproj/organelle/soma"
)

// mainCap bounds the driver's own control channel. A driver only ever
// expects to see its own bootstrap Start followed, much later, by a
// single Stop or Error bubbling up from the whole graph — 8 gives ample
// slack without the unbounded buffering a misbehaving soma could exploit.
const mainCap = 8

// Run drives root to completion, blocking until root (or one of its
// descendants, if root is an Organelle) sends Stop or a fatal Error, or
// ctx is cancelled. It returns nil on a clean Stop, and a wrapped error
// — via pkg/errors, so the original cause survives alongside a run-id
// stack frame — on Error or a soma.Update failure.
func Run[K soma.Kind](ctx context.Context, root soma.Soma[K]) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun() // wakes every still-live child adapter goroutine (P3) once this run ends, however it ends

	sc := sched.New(runCtx)
	main := make(chan soma.Impulse[K], mainCap)
	ctrl := soma.ChanSender[K]{Ch: main, Done: sc.Context().Done()}

	runID := ids.NewRunID()
	nlog.Infof("driver: run %s: starting", runID)

	// Bootstrap: address ourselves our own Start through our own
	// channel, so it is processed by the very same loop below as every
	// later impulse, instead of being special-cased.
	ctrl.Send(soma.NewStart[K](runID, ctrl, sc))

	cur := root
	st := soma.Configuring

	for {
		select {
		case imp, ok := <-main:
			if !ok {
				return nil
			}
			switch imp.Variant {
			case soma.Stop:
				nlog.Infof("driver: run %s: stop", runID)
				return nil
			case soma.Error:
				nlog.Errorf("driver: run %s: fatal error: %v", runID, imp.Err)
				return errors.Wrapf(cos.NewErrSoma(runID, imp.Err), "driver: run %s", runID)
			default:
				next, err := st.Advance(imp.Variant)
				if err != nil {
					return errors.Wrapf(err, "driver: run %s", runID)
				}
				st = next

				updated, err := cur.Update(sc.Context(), imp)
				if err != nil {
					return errors.Wrapf(cos.NewErrSoma(runID, err), "driver: run %s", runID)
				}
				cur = updated

				if st == soma.Terminated {
					return nil
				}
			}
		case <-sc.Context().Done():
			if err := sc.Wait(); err != nil {
				return errors.Wrapf(err, "driver: run %s", runID)
			}
			return ctx.Err()
		}
	}
}
