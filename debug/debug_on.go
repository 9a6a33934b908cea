//go:build debug

package debug

import (
	"fmt"
	"reflect"
	"sync"
)

func ON() bool { return true }

func Assert(cond bool, args ...any) {
	if cond {
		return
	}
	if len(args) == 0 {
		panic("assertion failed")
	}
	panic(fmt.Sprint(args...))
}

func AssertFunc(f func() bool, args ...any) { Assert(f(), args...) }

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(fmt.Sprintf(format, args...))
}

// AssertMutexLocked panics unless m is currently held. Relies on the fact
// that a held sync.Mutex cannot be re-locked from the same goroutine
// without deadlocking, so we probe via TryLock semantics emulated through
// reflection on the internal state word; kept deliberately conservative.
func AssertMutexLocked(m *sync.Mutex) {
	v := reflect.ValueOf(m).Elem().FieldByName("state")
	Assert(v.Int()&1 == 1, "mutex not locked")
}

func AssertRWMutexLocked(m *sync.RWMutex) {
	v := reflect.ValueOf(m).Elem().FieldByName("w")
	AssertMutexLocked((*sync.Mutex)(v.Addr().UnsafePointer()))
}

func AssertRWMutexRLocked(m *sync.RWMutex) {
	v := reflect.ValueOf(m).Elem().FieldByName("readerCount")
	Assert(v.Int() > 0 || v.Int() < 0, "rwmutex not rlocked")
}
