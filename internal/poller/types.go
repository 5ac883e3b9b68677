// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/vallox-bridge/internal/device"
)

// PollResult is what one poll cycle (or a confirmed write) publishes.
type PollResult struct {
	UnitID string
	At     time.Time
	Took   time.Duration

	// Snapshot is the device snapshot with pending writes overlaid.
	Snapshot device.Snapshot

	// Err is the cycle failure. Snapshot then still carries the last good
	// values and Stale is set.
	Err   error
	Stale bool

	// Pending is the number of writes the device has not confirmed yet.
	Pending int

	// Written names the variable whose write produced this result.
	// Empty for poll cycles.
	Written string
}
