package engine

import "time"

// Clock provides the current time for state stamps and timeout detection
type Clock func() time.Time

// Now returns the current wall time from the engine's configured clock
func (e *Engine) Now() time.Time {
	return e.clock()
}

// SetClock replaces the engine's time source. Used by tests to control
// timeout detection
func (e *Engine) SetClock(clock Clock) {
	e.clock = clock
}
