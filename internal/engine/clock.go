package engine

import "sync/atomic"

// Clock hands out ingestion sequence numbers within a run.
//
// Sequence numbers are strictly increasing and unique even when ingestions
// run concurrently. They order the ingestion log for persistence and replay;
// they say nothing about which ingestion observed which graph state.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
