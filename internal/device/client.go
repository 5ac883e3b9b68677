// internal/device/client.go
package device

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/bus"
	"github.com/tamzrod/vallox-bridge/internal/registers"
	"github.com/tamzrod/vallox-bridge/internal/telegram"
)

// Defaults for retry and write pacing.
const (
	DefaultMaxAttempts = 10
	DefaultJitterAfter = 5
	DefaultWriteGap    = 800 * time.Millisecond
)

// ErrNoData means a full read produced no value at all.
var ErrNoData = errors.New("device: no variable could be read")

// Bus is the part of the transport the client drives.
// *bus.Transport satisfies it.
type Bus interface {
	Connect(ctx context.Context) error
	Disconnect() error
	AwaitQuietSlot() error
	Send(tg telegram.Telegram) error
	Receive(m telegram.Match) (byte, error)
}

// Snapshot maps variable names to decoded values (int or bool) plus the
// derived fields.
type Snapshot map[string]any

func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Client is the session object for one mainboard. Every exported operation
// holds the client lock from connect to disconnect.
type Client struct {
	bus   Bus
	table *registers.Table
	log   zerolog.Logger

	sender   byte
	receiver byte

	maxAttempts int
	jitterAfter int
	writeGap    time.Duration

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration

	mu        sync.Mutex
	cache     map[byte]byte
	values    Snapshot
	lastWrite time.Time
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("component", "device").Logger() }
}

// WithAddresses overrides the controller (sender) and mainboard (receiver)
// bus addresses.
func WithAddresses(sender, receiver byte) Option {
	return func(c *Client) {
		c.sender = sender
		c.receiver = receiver
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

func WithWriteGap(d time.Duration) Option {
	return func(c *Client) { c.writeGap = d }
}

// WithClock replaces time.Now and the context-aware sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.now = now
		c.sleep = sleep
	}
}

// WithJitter replaces the random back-off used after DefaultJitterAfter failures.
func WithJitter(f func() time.Duration) Option {
	return func(c *Client) { c.jitter = f }
}

// New creates a client for table on b.
func New(b Bus, table *registers.Table, opts ...Option) (*Client, error) {
	if b == nil {
		return nil, errors.New("device: bus required")
	}
	if table == nil || table.Len() == 0 {
		return nil, errors.New("device: register table required")
	}

	c := &Client{
		bus:         b,
		table:       table,
		log:         zerolog.Nop(),
		sender:      bus.AddrController,
		receiver:    bus.AddrMainboard,
		maxAttempts: DefaultMaxAttempts,
		jitterAfter: DefaultJitterAfter,
		writeGap:    DefaultWriteGap,
		now:         time.Now,
		sleep:       sleepCtx,
		jitter:      randomJitter,
		cache:       make(map[byte]byte),
		values:      Snapshot{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.maxAttempts < 1 {
		return nil, errors.New("device: max attempts must be >= 1")
	}
	return c, nil
}

func (c *Client) Table() *registers.Table { return c.table }

// Values returns a copy of the last known values.
func (c *Client) Values() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// ReadSingle reads one variable from the bus. The cached raw byte for its
// register is dropped first so the value is always fresh.
// ok is false when the variable is unknown or every attempt failed.
func (c *Client) ReadSingle(ctx context.Context, name string) (any, bool) {
	d, found := c.table.Lookup(name)
	if !found {
		c.log.Error().Str("variable", name).Msg("read of unknown variable")
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bus.Connect(ctx); err != nil {
		c.log.Error().Err(err).Str("variable", name).Msg("read failed")
		return nil, false
	}
	defer c.disconnect()

	delete(c.cache, d.ID)
	raw, err := c.readRaw(ctx, d)
	if err != nil {
		c.log.Error().Err(err).Str("variable", name).Msg("read failed")
		return nil, false
	}

	v := d.Decode(raw)
	c.values[name] = v
	return v, true
}

// ReadAll walks the table in order and returns a fresh snapshot with the
// derived fields attached. Variables that cannot be read are left out.
// The error is only non-nil when nothing at all was read.
func (c *Client) ReadAll(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	if err := c.bus.Connect(ctx); err != nil {
		c.log.Error().Err(err).Msg("full read failed")
		return nil, err
	}
	defer c.disconnect()

	clear(c.cache)
	snap := make(Snapshot, c.table.Len())
	failed := 0
	for _, d := range c.table.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, cached := c.cache[d.ID]
		if !cached || d.Type != registers.Bit {
			var err error
			raw, err = c.readRaw(ctx, d)
			if err != nil {
				failed++
				c.log.Error().Err(err).Str("variable", d.Name).Msg("read failed")
				continue
			}
		}
		snap[d.Name] = d.Decode(raw)
	}

	if len(snap) == 0 {
		return nil, fmt.Errorf("%w (%d variables failed)", ErrNoData, failed)
	}

	Derive(snap)
	c.values = snap.Clone()

	c.log.Info().
		Dur("took", c.now().Sub(start)).
		Int("variables", len(snap)).
		Int("failed", failed).
		Msg("full read done")
	return snap, nil
}

// Write validates and writes one variable, then waits for the mainboard's
// acknowledgement. Consecutive writes are spaced by the write gap.
func (c *Client) Write(ctx context.Context, name string, value any) bool {
	d, v, err := c.table.ValidateWrite(name, value)
	if err != nil {
		ev := c.log.Error()
		if errors.Is(err, registers.ErrForbiddenRegister) {
			ev = c.log.WithLevel(zerolog.FatalLevel)
		}
		ev.Err(err).Str("variable", name).Interface("value", value).Msg("write rejected")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastWrite.IsZero() {
		if wait := c.writeGap - c.now().Sub(c.lastWrite); wait > 0 {
			if err := c.sleep(ctx, wait); err != nil {
				c.log.Error().Err(err).Str("variable", name).Msg("write cancelled")
				return false
			}
		}
	}

	if err := c.bus.Connect(ctx); err != nil {
		c.log.Error().Err(err).Str("variable", name).Msg("write failed")
		return false
	}
	defer c.disconnect()

	if d.Type == registers.Bit {
		delete(c.cache, d.ID)
		if raw, err := c.readRaw(ctx, d); err != nil {
			c.log.Warn().Err(err).Str("variable", name).Msg("pre-write read failed")
		} else {
			c.cache[d.ID] = raw
		}
	}

	current, haveCurrent := c.cache[d.ID]
	if d.Type == registers.Bit && !haveCurrent {
		c.log.Error().Str("variable", name).Msg("write failed: current register byte unknown")
		return false
	}

	raw, err := d.Encode(v, current)
	if err != nil {
		c.log.Error().Err(err).Str("variable", name).Interface("value", value).Msg("write rejected")
		return false
	}

	if err := c.bus.AwaitQuietSlot(); err != nil {
		c.log.Error().Err(err).Str("variable", name).Msg("write failed")
		return false
	}
	sent := c.now()
	if err := c.bus.Send(telegram.Telegram{Sender: c.sender, Receiver: c.receiver, Register: d.ID, Value: raw}); err != nil {
		c.log.Error().Err(err).Str("variable", name).Msg("write failed")
		return false
	}

	// The mainboard echoes the write. The next exchange fails unless it is consumed.
	if _, err := c.bus.Receive(telegram.Match{Sender: c.receiver, Receiver: c.sender, Register: d.ID}); err != nil {
		c.log.Warn().Err(err).Str("variable", name).Msg("write not acknowledged")
		return false
	}

	c.lastWrite = sent
	c.cache[d.ID] = raw
	c.values[name] = v
	c.log.Info().Str("variable", name).Interface("value", v).Msg("written")
	return true
}

// readRaw requests one register, retrying up to maxAttempts times.
// Callers hold c.mu and a connection.
func (c *Client) readRaw(ctx context.Context, d registers.Definition) (byte, error) {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var raw byte
		raw, err = c.exchange(d.ID)
		if err == nil {
			if attempt > 2 {
				c.log.Info().Str("variable", d.Name).Int("retries", attempt-1).Msg("read needed retries")
			}
			c.cache[d.ID] = raw
			return raw, nil
		}
		c.log.Debug().Err(err).Str("variable", d.Name).Int("attempt", attempt).Msg("read attempt failed")

		if errors.Is(err, bus.ErrConnection) {
			// bytes cached on the dropped connection are no longer trusted
			c.disconnect()
			if cerr := c.bus.Connect(ctx); cerr != nil {
				err = cerr
			}
		}

		if attempt == c.jitterAfter && attempt < c.maxAttempts {
			// Pollers sharing one bus collide in lockstep until one backs off.
			if serr := c.sleep(ctx, c.jitter()); serr != nil {
				return 0, serr
			}
		} else if cerr := ctx.Err(); cerr != nil {
			return 0, cerr
		}
	}
	return 0, fmt.Errorf("device: %s: %d attempts: %w", d.Name, c.maxAttempts, err)
}

func (c *Client) exchange(id byte) (byte, error) {
	if err := c.bus.AwaitQuietSlot(); err != nil {
		return 0, err
	}
	if err := c.bus.Send(telegram.Telegram{Sender: c.sender, Receiver: c.receiver, Register: 0x00, Value: id}); err != nil {
		return 0, err
	}
	return c.bus.Receive(telegram.Match{Sender: c.receiver, Receiver: c.sender, Register: id})
}

func (c *Client) disconnect() {
	if err := c.bus.Disconnect(); err != nil {
		c.log.Debug().Err(err).Msg("disconnect")
	}
	clear(c.cache)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// randomJitter returns 1 to 5 whole seconds.
func randomJitter() time.Duration {
	return time.Duration(1+rand.Intn(5)) * time.Second
}
