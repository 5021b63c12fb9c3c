//go:build tinygo

package core

import "sync/atomic"

// overflowCounter holds the overflow count and the enable flag. The count is
// written from the timer interrupt, so access goes through sync/atomic.
type overflowCounter struct {
	count uint32
	on    uint32
}

func (c *overflowCounter) load() uint32 {
	return atomic.LoadUint32(&c.count)
}

func (c *overflowCounter) store(v uint32) {
	atomic.StoreUint32(&c.count, v)
}

func (c *overflowCounter) inc() {
	atomic.AddUint32(&c.count, 1)
}

func (c *overflowCounter) enabled() bool {
	return atomic.LoadUint32(&c.on) != 0
}

func (c *overflowCounter) setEnabled(v bool) {
	if v {
		atomic.StoreUint32(&c.on, 1)
	} else {
		atomic.StoreUint32(&c.on, 0)
	}
}
