// Package switcher implements the monitor switch policy: deciding when
// the active capturer should move to a different display based on cursor
// residence, with hysteresis so a transient cursor flick across a screen
// edge never triggers a switch.
package switcher

import "time"

// Policy tracks cursor-residence state and decides when to switch the
// active display. It is not safe for concurrent use from more than one
// goroutine — the producer that owns it calls MaybeSwitch from a single loop.
type Policy struct {
	CheckInterval time.Duration

	current        int
	pendingDisplay int
	pendingSet     bool
	pendingCount   int
	lastCheck      time.Time
}

// DefaultCheckInterval decouples switch-decision rate from frame rate.
const DefaultCheckInterval = time.Second

// requiredSightings is the number of consecutive observations on a
// different display required before committing to a switch.
const requiredSightings = 2

// New creates a Policy starting on the given display.
func New(initialDisplay int, checkInterval time.Duration) *Policy {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	return &Policy{
		CheckInterval: checkInterval,
		current:       initialDisplay,
	}
}

// Current returns the currently active display index.
func (p *Policy) Current() int {
	return p.current
}

// MaybeSwitch evaluates the policy against the current cursor display and
// wall-clock time, returning the new display index and true if a switch
// should happen now.
func (p *Policy) MaybeSwitch(now time.Time, cursorDisplay int) (int, bool) {
	if !p.lastCheck.IsZero() && now.Sub(p.lastCheck) < p.CheckInterval {
		return 0, false
	}
	p.lastCheck = now

	if cursorDisplay == p.current {
		p.pendingSet = false
		p.pendingCount = 0
		return 0, false
	}

	if p.pendingSet && cursorDisplay == p.pendingDisplay {
		p.pendingCount++
		if p.pendingCount >= requiredSightings {
			p.current = cursorDisplay
			p.pendingSet = false
			p.pendingCount = 0
			return p.current, true
		}
		return 0, false
	}

	p.pendingDisplay = cursorDisplay
	p.pendingSet = true
	p.pendingCount = 1
	return 0, false
}
