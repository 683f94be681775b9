package logger

import (
	"time"
	_ "time/tzdata"
)

// SetClock replaces the time source and returns a func restoring it.
func SetClock(now func() time.Time) func() {
	prev := clock
	clock = now
	install()
	return func() {
		clock = prev
		install()
	}
}
