//go:build !debug

// Package debug provides build-tag gated assertions for the composition
// engine. Built without the `debug` tag, every call is a no-op so that
// production builds pay nothing for invariant checks; built with it
// (`go test -tags debug ./...`), the same calls panic on violation.
package debug

import "sync"

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func AssertFunc(_ func() bool, _ ...any) {}
func AssertNoErr(_ error)                {}
func Assertf(_ bool, _ string, _ ...any) {}

func AssertMutexLocked(_ *sync.Mutex)      {}
func AssertRWMutexLocked(_ *sync.RWMutex)  {}
func AssertRWMutexRLocked(_ *sync.RWMutex) {}
