package session

import (
	"time"

	"github.com/nagendrasomala/quizy-gateway/internal/model"
)

// The countdown is wall-clock anchored: remaining time is always re-derived
// from the schedule window, never decremented from a cached value, so a
// reload lands on the correct remaining time instead of restarting a stale
// countdown.

// runCountdown ticks once per second until the session leaves its interactive
// states or the controller is closed.
func (c *Controller) runCountdown() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.tick() {
				return
			}
		}
	}
}

// tick evaluates the clock once. It returns true when ticking should stop.
// Expiry fires exactly once: the first tick observing zero remaining requests
// termination with reason time-up through the central transition path.
func (c *Controller) tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case model.StateAwaitingFullscreen, model.StateActive:
		// Ticking states.
	default:
		return true
	}

	if c.remainingLocked() > 0 {
		return false
	}
	if c.expired {
		return true
	}
	c.expired = true
	c.transitionLocked(model.StateTerminating, model.ReasonTimeUp, "")
	return true
}

// remainingLocked computes windowEnd − max(now, windowStart), clamped to zero
// so no negative time is ever surfaced.
func (c *Controller) remainingLocked() time.Duration {
	anchor := c.now()
	if anchor.Before(c.windowStart) {
		anchor = c.windowStart
	}
	remaining := c.windowEnd.Sub(anchor)
	if remaining < 0 {
		return 0
	}
	return remaining
}
