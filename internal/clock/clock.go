// Package clock provides the injectable time source spec §5 requires:
// wall-clock milliseconds by default, a fixed clock for deterministic tests.
package clock

import "time"

// Clock supplies the current time; NowMillis converts it to milliseconds
// since the Unix epoch.
type Clock interface {
	Now() time.Time
}

// System is the default Clock, backed by time.Now().
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a deterministic Clock for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// NowMillis converts t to milliseconds since the Unix epoch, the unit every
// timestamp column in the persisted schema uses.
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}
