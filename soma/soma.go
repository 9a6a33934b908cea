package soma

import (
	"context"

	"github.com/somaproj/organelle/synapse"
)

// Kind is re-exported for callers that want to write `soma.Kind` instead
// of importing synapse directly; it is the identical constraint used by
// Impulse.
type Kind = synapse.Kind

// Soma is the stateful fold at the heart of the engine (spec §4.2,
// component C3): `update(self, impulse) -> Future<self, error>`. Go has
// no affine types, so "consumed and reproduced" (spec §3 "Lifetimes &
// ownership") is a convention rather than something the compiler
// enforces: implement Update with a value receiver, or with a pointer
// receiver that copies the receiver before changing anything, and return
// a (possibly different) value of the same concrete type; never retain or
// mutate the receiver after returning. A driver/organelle must likewise never use a
// Soma value again after passing it to Update — it only ever holds the
// most recently returned one. This is the Go analogue of the teacher's
// and the Rust original's `Option<Soma>`-stash idiom (spec §9
// "Consuming-self update"): here the "stash" is simply the caller's local
// variable that gets reassigned on every Update call.
type Soma[K Kind] interface {
	Update(ctx context.Context, imp Impulse[K]) (Soma[K], error)
}
