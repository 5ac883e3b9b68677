// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/device"
	"github.com/tamzrod/vallox-bridge/internal/registers"
)

type fakeDevice struct {
	mu     sync.Mutex
	values device.Snapshot
	fail   error
	reject bool

	active, maxActive int
}

func (f *fakeDevice) enter() {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
}

func (f *fakeDevice) leave() {
	f.mu.Lock()
	f.active--
	f.mu.Unlock()
}

func (f *fakeDevice) ReadAll(context.Context) (device.Snapshot, error) {
	f.enter()
	defer f.leave()
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return f.values.Clone(), nil
}

// Write accepts the value but does not apply it; tests set what the
// device reports on the next poll.
func (f *fakeDevice) Write(context.Context, string, any) bool {
	f.enter()
	defer f.leave()
	time.Sleep(2 * time.Millisecond)
	return !f.reject
}

func (f *fakeDevice) Table() *registers.Table { return registers.Default() }

func (f *fakeDevice) set(k string, v any) {
	f.mu.Lock()
	f.values[k] = v
	f.mu.Unlock()
}

func newPoller(t *testing.T, dev *fakeDevice) *Poller {
	t.Helper()
	p, err := New(Config{UnitID: "ak", Interval: time.Second}, dev, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return p
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, &fakeDevice{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected unit id error")
	}
	if _, err := New(Config{UnitID: "ak", Interval: -time.Second}, &fakeDevice{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected interval error")
	}
	p, err := New(Config{UnitID: "ak"}, &fakeDevice{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if p.cfg.Interval != DefaultInterval {
		t.Fatalf("interval=%v want %v", p.cfg.Interval, DefaultInterval)
	}
}

func TestPollOnce_Success(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 3}}
	p := newPoller(t, dev)

	res := p.PollOnce(context.Background())
	if res.Err != nil || res.Stale {
		t.Fatalf("PollOnce err=%v stale=%v", res.Err, res.Stale)
	}
	if res.UnitID != "ak" || res.Snapshot["fanspeed"] != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPollOnce_FailureKeepsPreviousSnapshot(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 3}}
	p := newPoller(t, dev)
	p.PollOnce(context.Background())

	dev.fail = errors.New("no quiet slot")
	res := p.PollOnce(context.Background())
	if res.Err == nil || !res.Stale {
		t.Fatalf("expected stale failure, got err=%v stale=%v", res.Err, res.Stale)
	}
	if res.Snapshot["fanspeed"] != 3 {
		t.Fatalf("previous snapshot not republished: %v", res.Snapshot)
	}
	if p.Snapshot()["fanspeed"] != 3 {
		t.Fatalf("Snapshot() lost values")
	}
}

func TestOverlay_Lifecycle(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 2}}
	p := newPoller(t, dev)
	ctx := context.Background()
	p.PollOnce(ctx)

	if !p.Write(ctx, "fanspeed", 5) {
		t.Fatalf("write failed")
	}
	if got := p.Snapshot()["fanspeed"]; got != 5 {
		t.Fatalf("overlay not visible immediately: %v", got)
	}

	// device still reports the old value: overlay keeps overriding
	res := p.PollOnce(ctx)
	if res.Snapshot["fanspeed"] != 5 || res.Pending != 1 {
		t.Fatalf("overlay dropped early: %v pending=%d", res.Snapshot["fanspeed"], res.Pending)
	}

	// device confirms: overlay removed
	dev.set("fanspeed", 5)
	res = p.PollOnce(ctx)
	if res.Pending != 0 {
		t.Fatalf("overlay not confirmed, pending=%d", res.Pending)
	}

	// device changes later on its own: authoritative value shows
	dev.set("fanspeed", 1)
	if res := p.PollOnce(ctx); res.Snapshot["fanspeed"] != 1 {
		t.Fatalf("device value hidden: %v", res.Snapshot["fanspeed"])
	}
}

func TestOverlay_BitTokensCanonicalised(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"power_state": false}}
	p := newPoller(t, dev)
	ctx := context.Background()
	p.PollOnce(ctx)

	if !p.TurnOn(ctx, "power_state") {
		t.Fatalf("TurnOn failed")
	}
	if got := p.Snapshot()["power_state"]; got != true {
		t.Fatalf("power_state=%v want true", got)
	}

	dev.set("power_state", true)
	if res := p.PollOnce(ctx); res.Pending != 0 {
		t.Fatalf("bool overlay not confirmed by bool poll")
	}

	if !p.TurnOff(ctx, "power_state") {
		t.Fatalf("TurnOff failed")
	}
	if got := p.Snapshot()["power_state"]; got != false {
		t.Fatalf("power_state=%v want false", got)
	}
}

func TestWrite_RejectedLeavesSnapshot(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 2}, reject: true}
	p := newPoller(t, dev)
	p.PollOnce(context.Background())

	if p.Write(context.Background(), "fanspeed", 4) {
		t.Fatalf("expected rejected write")
	}
	if p.Snapshot()["fanspeed"] != 2 {
		t.Fatalf("rejected write changed snapshot")
	}
}

func TestSubscribe(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 2}}
	p := newPoller(t, dev)
	ctx := context.Background()

	var got []PollResult
	id := p.Subscribe(func(r PollResult) { got = append(got, r) })

	p.PollOnce(ctx)
	p.Write(ctx, "fanspeed", 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[1].Snapshot["fanspeed"] != 3 {
		t.Fatalf("write notification snapshot=%v", got[1].Snapshot)
	}

	// subscribers get their own copy
	got[0].Snapshot["fanspeed"] = 99
	if p.Snapshot()["fanspeed"] == 99 {
		t.Fatalf("subscriber mutated published snapshot")
	}

	p.Unsubscribe(id)
	p.PollOnce(ctx)
	if len(got) != 2 {
		t.Fatalf("notified after unsubscribe")
	}
}

func TestPollsAndWritesNeverInterleave(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 2}}
	p := newPoller(t, dev)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); p.PollOnce(ctx) }()
		go func() { defer wg.Done(); p.Write(ctx, "fanspeed", 4) }()
	}
	wg.Wait()

	if dev.maxActive != 1 {
		t.Fatalf("device saw %d concurrent operations", dev.maxActive)
	}
}

func TestRun_PollsImmediatelyAndStops(t *testing.T) {
	dev := &fakeDevice{values: device.Snapshot{"fanspeed": 2}}
	p, err := New(Config{UnitID: "ak", Interval: time.Hour}, dev, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() { p.Run(ctx, out); close(done) }()

	select {
	case res := <-out:
		if res.Snapshot["fanspeed"] != 2 {
			t.Fatalf("unexpected first result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("first poll did not happen before the first tick")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
	if p.Status().UnitID != "ak" {
		t.Fatalf("Status() not populated")
	}
}
