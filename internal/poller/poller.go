// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/device"
	"github.com/tamzrod/vallox-bridge/internal/registers"
)

// DefaultInterval is the full read period.
const DefaultInterval = 59 * time.Second

// Device is the part of device.Client the poller uses.
type Device interface {
	ReadAll(ctx context.Context) (device.Snapshot, error)
	Write(ctx context.Context, name string, value any) bool
	Table() *registers.Table
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
}

// Poller serializes all access to one device, polls it on a clock and
// overlays unconfirmed writes on what it publishes.
type Poller struct {
	cfg Config
	dev Device
	log zerolog.Logger

	// op is held for a whole poll or write.
	op sync.Mutex

	mu      sync.Mutex
	values  device.Snapshot
	overlay map[string]any
	last    PollResult
	subs    map[uuid.UUID]func(PollResult)
}

// New creates a poller with immutable config.
func New(cfg Config, dev Device, log zerolog.Logger) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if dev == nil {
		return nil, errors.New("poller: device required")
	}
	return &Poller{
		cfg:     cfg,
		dev:     dev,
		log:     log.With().Str("component", "poller").Str("unit", cfg.UnitID).Logger(),
		overlay: make(map[string]any),
		subs:    make(map[uuid.UUID]func(PollResult)),
	}, nil
}

// PollOnce performs exactly one full read and publishes the result.
// A failed cycle republishes the previous snapshot marked stale.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	p.op.Lock()
	start := time.Now()
	snap, err := p.dev.ReadAll(ctx)
	took := time.Since(start)
	p.op.Unlock()

	p.mu.Lock()
	res := PollResult{UnitID: p.cfg.UnitID, At: time.Now(), Took: took}
	if err != nil {
		res.Err = err
		res.Stale = true
		p.log.Warn().Err(err).Msg("poll failed, keeping previous snapshot")
	} else {
		for name, want := range p.overlay {
			if got, ok := snap[name]; ok && got == want {
				delete(p.overlay, name)
				p.log.Debug().Str("variable", name).Msg("write confirmed")
			}
		}
		p.values = snap
	}
	res.Snapshot = p.mergedLocked()
	res.Pending = len(p.overlay)
	p.last = res
	subs := p.subscribersLocked()
	p.mu.Unlock()

	notify(subs, res)
	return res
}

// Write writes one variable. On success the value is shown immediately and
// keeps overriding polled values until a poll reads it back.
func (p *Poller) Write(ctx context.Context, name string, value any) bool {
	p.op.Lock()
	defer p.op.Unlock()

	if !p.dev.Write(ctx, name, value) {
		return false
	}
	v, err := p.dev.Table().Canonical(name, value)
	if err != nil {
		return true
	}

	p.mu.Lock()
	p.overlay[name] = v
	res := PollResult{
		UnitID:   p.cfg.UnitID,
		At:       time.Now(),
		Snapshot: p.mergedLocked(),
		Err:      p.last.Err,
		Stale:    p.last.Stale,
		Pending:  len(p.overlay),
		Written:  name,
	}
	p.last.Snapshot = res.Snapshot
	p.last.Pending = res.Pending
	subs := p.subscribersLocked()
	p.mu.Unlock()

	notify(subs, res)
	return true
}

// Table is the register table of the polled device.
func (p *Poller) Table() *registers.Table { return p.dev.Table() }

func (p *Poller) TurnOn(ctx context.Context, name string) bool  { return p.Write(ctx, name, 1) }
func (p *Poller) TurnOff(ctx context.Context, name string) bool { return p.Write(ctx, name, 0) }

// Snapshot returns the current published values.
func (p *Poller) Snapshot() device.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mergedLocked()
}

// Status returns the last published result.
func (p *Poller) Status() PollResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := p.last
	res.Snapshot = res.Snapshot.Clone()
	return res
}

// Subscribe registers fn for every published result. fn runs on the
// publishing goroutine and must not block.
func (p *Poller) Subscribe(fn func(PollResult)) uuid.UUID {
	id := uuid.New()
	p.mu.Lock()
	p.subs[id] = fn
	p.mu.Unlock()
	return id
}

func (p *Poller) Unsubscribe(id uuid.UUID) {
	p.mu.Lock()
	delete(p.subs, id)
	p.mu.Unlock()
}

func (p *Poller) mergedLocked() device.Snapshot {
	out := p.values.Clone()
	if out == nil {
		out = device.Snapshot{}
	}
	for k, v := range p.overlay {
		out[k] = v
	}
	return out
}

func (p *Poller) subscribersLocked() []func(PollResult) {
	out := make([]func(PollResult), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(PollResult), res PollResult) {
	for _, fn := range subs {
		r := res
		r.Snapshot = res.Snapshot.Clone()
		fn(r)
	}
}
