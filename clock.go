package mlmd

import "github.com/sile/mlmd/internal/clock"

// Clock supplies the current time; the store calls Now() once per operation
// to stamp create/update timestamps. Tests should inject FixedClock.
type Clock = clock.Clock

// FixedClock is a deterministic Clock for tests.
type FixedClock = clock.Fixed

func nowMillis(c Clock) int64 { return clock.NowMillis(c) }
