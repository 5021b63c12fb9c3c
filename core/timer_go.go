//go:build !tinygo

package core

import "sync/atomic"

// overflowCounter holds the overflow count and the enable flag. Hosted
// builds drive Overflow from a goroutine, so both fields are atomic.
type overflowCounter struct {
	count atomic.Uint32
	on    atomic.Bool
}

func (c *overflowCounter) load() uint32 {
	return c.count.Load()
}

func (c *overflowCounter) store(v uint32) {
	c.count.Store(v)
}

func (c *overflowCounter) inc() {
	c.count.Add(1)
}

func (c *overflowCounter) enabled() bool {
	return c.on.Load()
}

func (c *overflowCounter) setEnabled(v bool) {
	c.on.Store(v)
}
