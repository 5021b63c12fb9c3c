//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// Hosted builds have no interrupts; input producers run as goroutines, so the
// critical section is a plain mutex.
var criticalSection sync.Mutex

// disableInterrupts enters the critical section
func disableInterrupts() State {
	criticalSection.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state State) {
	criticalSection.Unlock()
}
