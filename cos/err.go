// Package cos provides the small common error and utility types shared
// across the composition engine: the error kinds surfaced across the
// library boundary (see spec §6/§7) plus a bounded multi-error
// accumulator for callers (e.g. probes) that want to report more than one
// failure without truncating to the first.
package cos

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrMissingSynapse is returned by an Axon's Start handling when a
// required (One) synapse of some kind was never added (I4).
type ErrMissingSynapse struct {
	Kind string
}

func NewErrMissingSynapse(kind string) *ErrMissingSynapse { return &ErrMissingSynapse{Kind: kind} }

func (e *ErrMissingSynapse) Error() string {
	return fmt.Sprintf("missing required synapse: %s", e.Kind)
}

// ErrInvalidSynapse is returned by an Axon's AddDendrite/AddTerminal
// handling when a kind has no constraint, or a One constraint is
// fulfilled a second time (I4).
type ErrInvalidSynapse struct {
	Kind   string
	Reason string
}

func NewErrInvalidSynapse(kind, reason string) *ErrInvalidSynapse {
	return &ErrInvalidSynapse{Kind: kind, Reason: reason}
}

func (e *ErrInvalidSynapse) Error() string {
	return fmt.Sprintf("invalid synapse %s: %s", e.Kind, e.Reason)
}

// ErrSoma wraps an error returned by a soma's Update, the way it is
// carried upward as an Error impulse (§7 "Update errors").
type ErrSoma struct {
	SomaID string
	Inner  error
}

func NewErrSoma(somaID string, inner error) *ErrSoma {
	return &ErrSoma{SomaID: somaID, Inner: inner}
}

func (e *ErrSoma) Error() string {
	if e.SomaID == "" {
		return fmt.Sprintf("soma error: %v", e.Inner)
	}
	return fmt.Sprintf("soma %s: %v", e.SomaID, e.Inner)
}

func (e *ErrSoma) Unwrap() error { return e.Inner }

// Errs is a bounded multi-error accumulator: duplicates (by message) are
// collapsed and at most maxErrs distinct errors are retained, favoring the
// ones that arrived first.
type Errs struct {
	errs []error
	cnt  int64
	mu   sync.Mutex
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		atomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(atomic.LoadInt64(&e.cnt)) }

// JoinErr joins every retained error into one via errors.Join, along with
// the count of retained distinct errors. That count never exceeds maxErrs:
// distinct errors added once the cap is hit are neither kept nor counted.
func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...)
		e.mu.Unlock()
	}
	return
}

func (e *Errs) Error() (s string) {
	cnt := e.Cnt()
	if cnt == 0 {
		return
	}
	e.mu.Lock()
	var err error
	if n := len(e.errs); n > 0 {
		err = e.errs[0]
		cnt = n
	}
	e.mu.Unlock()
	if err == nil {
		return
	}
	if cnt > 1 {
		err = fmt.Errorf("%v (and %d more error%s)", err, cnt-1, Plural(cnt-1))
	}
	return err.Error()
}

func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
