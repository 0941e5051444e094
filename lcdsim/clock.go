// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is a fake clock for bit-banged drivers. Sleep returns immediately
// after advancing the clock, and every requested duration is recorded.
//
// Share one Clock between the driver and the Sim so the Sim sees the bus
// timing the driver produced.
type Clock struct {
	*clockwork.FakeClock

	mu    sync.Mutex
	slept []time.Duration
}

// NewClock returns a Clock starting at an arbitrary fixed time.
func NewClock() *Clock {
	return &Clock{FakeClock: clockwork.NewFakeClock()}
}

// Sleep implements clockwork.Clock.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	if d > 0 {
		c.Advance(d)
	}
}

// Slept returns the durations passed to Sleep, in call order.
func (c *Clock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// Total returns the sum of all recorded sleeps.
func (c *Clock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var t time.Duration
	for _, d := range c.slept {
		t += d
	}
	return t
}

// Forget drops the recorded sleeps. The clock keeps its current time.
func (c *Clock) Forget() {
	c.mu.Lock()
	c.slept = nil
	c.mu.Unlock()
}

var _ clockwork.Clock = &Clock{}
