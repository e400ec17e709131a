// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package channel

import "sync/atomic"

// CancelSignal is a local cancel event polled at defined checkpoints
type CancelSignal interface {
	Cancelled() bool
}

// CancelFunc adapts a function to CancelSignal
type CancelFunc func() bool

// Cancelled calls f
func (f CancelFunc) Cancelled() bool { return f() }

// Never is a CancelSignal that never fires
var Never CancelSignal = CancelFunc(func() bool { return false })

// CancelFlag is a CancelSignal set from another goroutine, such as a key watcher
type CancelFlag struct {
	set atomic.Bool
}

// Cancel raises the flag
func (f *CancelFlag) Cancel() { f.set.Store(true) }

// Cancelled reports whether Cancel was called
func (f *CancelFlag) Cancelled() bool { return f.set.Load() }
