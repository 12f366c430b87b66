package domain

import (
	"fmt"
	"time"
)

// Resolution is the time-bucket size of a bar series. The zero value is the
// special tick granularity. Resolutions name on-disk cache directories, so
// their string mapping is exact and stable.
type Resolution time.Duration

const (
	ResolutionTick  Resolution = 0
	ResolutionSec   Resolution = Resolution(time.Second)
	ResolutionMin   Resolution = Resolution(time.Minute)
	ResolutionHour  Resolution = Resolution(time.Hour)
	ResolutionDaily Resolution = Resolution(24 * time.Hour)
)

// Duration returns the resolution as a time.Duration.
func (r Resolution) Duration() time.Duration { return time.Duration(r) }

// IsTick reports whether this is the tick granularity.
func (r Resolution) IsTick() bool { return r == ResolutionTick }

// IsDaily reports whether this is the daily resolution.
func (r Resolution) IsDaily() bool { return r == ResolutionDaily }

// Seconds returns the resolution length in whole seconds.
func (r Resolution) Seconds() int64 { return int64(time.Duration(r) / time.Second) }

// String returns the stable cache-directory token for the resolution.
func (r Resolution) String() string {
	d := time.Duration(r)
	switch {
	case d == 0:
		return "tick"
	case d == time.Second:
		return "1 sec"
	case d < time.Minute:
		return fmt.Sprintf("%d secs", d/time.Second)
	case d == time.Minute:
		return "1 min"
	case d < time.Hour:
		return fmt.Sprintf("%d mins", d/time.Minute)
	case d == time.Hour:
		return "1 hour"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return "daily"
	}
}
