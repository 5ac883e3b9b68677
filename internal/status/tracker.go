// internal/status/tracker.go
package status

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tamzrod/vallox-bridge/internal/bus"
	"github.com/tamzrod/vallox-bridge/internal/device"
)

// CodeFor maps a poll error onto a last-error code.
func CodeFor(err error) uint16 {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, bus.ErrConnection):
		return CodeConnection
	case errors.Is(err, bus.ErrSlotTimeout):
		return CodeSlotTimeout
	case errors.Is(err, bus.ErrFrameTimeout):
		return CodeFrameTimeout
	case errors.Is(err, device.ErrNoData):
		return CodeNoData
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	}
	return CodeGeneric
}

// Tracker owns the health state of one unit. It is driven by poll results
// and a 1 Hz tick and is not safe for concurrent use.
type Tracker struct {
	snap Snapshot
}

func NewTracker(name string) *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown, Name: name}}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one poll outcome into the state. stale means an older
// snapshot is still being served. changed reports whether the block differs.
func (t *Tracker) Observe(err error, stale bool, took time.Duration, pending int) (Snapshot, bool) {
	prev := t.snap

	t.snap.PollMillis = saturate(took.Milliseconds())
	t.snap.PendingWrites = saturate(int64(pending))

	if err == nil {
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = CodeNone
		t.snap.SecondsInError = 0
	} else {
		t.snap.Health = HealthError
		if stale {
			t.snap.Health = HealthStale
		}
		// seconds in error only advance on Tick
		t.snap.LastErrorCode = CodeFor(err)
	}
	return t.snap, t.snap != prev
}

// Tick advances SecondsInError while the unit is not healthy.
func (t *Tracker) Tick() (Snapshot, bool) {
	if t.snap.Health == HealthOK {
		return t.snap, false
	}
	if t.snap.SecondsInError == math.MaxUint16 {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

func saturate(v int64) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
