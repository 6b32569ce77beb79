package util

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Used in tests so that
// order timestamps (and therefore price-time priority) are scriptable.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
