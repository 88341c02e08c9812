package integration

import "time"

// timeNowMinusHours returns the instant h hours before now
func timeNowMinusHours(h int) time.Time {
	return time.Now().Add(-time.Duration(h) * time.Hour)
}
