package api

import (
	"sync/atomic"
	"time"
)

// eventClock hands out strictly increasing unix-nano timestamps.
type eventClock struct {
	last atomic.Int64
}

func (c *eventClock) next() int64 {
	for {
		now := time.Now().UnixNano()
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
