//go:build !debug

// Package debug provides cheap, compile-time-gated invariant checks.
//
// Build without the "debug" tag (the default) and every call here
// compiles down to nothing; build with -tags debug to turn them into
// real assertions. The ring's Link consumer acknowledgement and the
// scheduler's sort call into this package instead of branching on a
// runtime flag.
package debug

import "sync"

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func Assertf(_ bool, _ string, _ ...any) {}
func AssertNoErr(_ error)                {}
func AssertFunc(_ func() bool, _ ...any) {}
func Func(_ func())                      {}

func AssertMutexLocked(_ *sync.Mutex)     {}
func AssertRWMutexLocked(_ *sync.RWMutex) {}
