// internal/bus/bus.go
package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/telegram"
	"github.com/tamzrod/vallox-bridge/internal/trace"
)

// Logical bus addresses.
const (
	AddrAllMainboards byte = 0x10
	AddrMainboard     byte = 0x11
	AddrAllPanels     byte = 0x20
	AddrPanel         byte = 0x21
	AddrController    byte = 0x2F
)

// Timing defaults.
const (
	DefaultDialTimeout    = 1500 * time.Millisecond
	DefaultReceiveTimeout = 1500 * time.Millisecond
	DefaultSlotWindow     = 7 * time.Millisecond
	DefaultSlotTimeout    = time.Second
	DefaultReadBuffer     = 1024
)

var (
	ErrConnection   = errors.New("bus: connection failure")
	ErrSlotTimeout  = errors.New("bus: no quiet slot")
	ErrFrameTimeout = errors.New("bus: no matching telegram")
)

// Conn is the byte stream the transport drives. net.Conn satisfies it.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Config is minimal transport config. Exactly one of Endpoint or Serial is used.
type Config struct {
	Endpoint string
	Serial   *SerialConfig

	DialTimeout    time.Duration
	ReceiveTimeout time.Duration
	SlotWindow     time.Duration
	SlotTimeout    time.Duration
	ReadBuffer     int
}

func (c *Config) applyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	if c.SlotWindow <= 0 {
		c.SlotWindow = DefaultSlotWindow
	}
	if c.SlotTimeout <= 0 {
		c.SlotTimeout = DefaultSlotTimeout
	}
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = DefaultReadBuffer
	}
}

// Dialer opens a fresh connection to the bus.
type Dialer func(ctx context.Context) (Conn, error)

// Transport owns one bus connection. It is not safe for concurrent use;
// the device client serializes access.
type Transport struct {
	cfg  Config
	dial Dialer
	conn Conn
	log  zerolog.Logger
	rec  trace.Recorder
}

type Option func(*Transport)

func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.log = l.With().Str("component", "bus").Logger() }
}

func WithRecorder(r trace.Recorder) Option {
	return func(t *Transport) { t.rec = r }
}

// WithDialer replaces the TCP/serial dialer derived from Config.
func WithDialer(d Dialer) Option {
	return func(t *Transport) { t.dial = d }
}

// New creates a transport. No connection is made until Connect.
func New(cfg Config, opts ...Option) (*Transport, error) {
	cfg.applyDefaults()

	t := &Transport{cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(t)
	}

	if t.dial == nil {
		switch {
		case cfg.Serial != nil:
			sc := *cfg.Serial
			t.dial = func(context.Context) (Conn, error) { return dialSerial(sc, cfg.SlotWindow) }
		case cfg.Endpoint != "":
			t.dial = func(ctx context.Context) (Conn, error) { return dialTCP(ctx, cfg) }
		default:
			return nil, errors.New("bus: endpoint or serial port required")
		}
	}
	return t, nil
}

// Connect reuses a live connection or opens a new one.
func (t *Transport) Connect(ctx context.Context) error {
	if t.conn != nil {
		if alive(t.conn) {
			return nil
		}
		t.log.Debug().Msg("stale connection, reconnecting")
		_ = t.conn.Close()
		t.conn = nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	t.conn = conn
	t.log.Debug().Msg("connected")
	return nil
}

// Disconnect closes and forgets the connection.
func (t *Transport) Disconnect() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.log.Debug().Msg("disconnected")
	return err
}

func (t *Transport) Connected() bool { return t.conn != nil }

// AwaitQuietSlot waits for one full silent window on the bus.
// Any byte seen restarts the wait. Gives up with ErrSlotTimeout after
// SlotTimeout.
func (t *Transport) AwaitQuietSlot() error {
	if t.conn == nil {
		return fmt.Errorf("%w: not connected", ErrConnection)
	}

	var b [1]byte
	deadline := time.Now().Add(t.cfg.SlotTimeout)
	for time.Now().Before(deadline) {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.cfg.SlotWindow)); err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		n, err := t.conn.Read(b[:])
		if n > 0 {
			continue // bus busy
		}
		if err == nil {
			continue
		}
		if isTimeout(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	t.record(trace.Event{Kind: trace.KindSlotTimeout})
	return ErrSlotTimeout
}

// Send writes one telegram.
func (t *Transport) Send(tg telegram.Telegram) error {
	if t.conn == nil {
		return fmt.Errorf("%w: not connected", ErrConnection)
	}
	frame := tg.Bytes()
	if err := writeAll(t.conn, frame); err != nil {
		return fmt.Errorf("%w: send: %v", ErrConnection, err)
	}
	t.log.Trace().Str("telegram", tg.String()).Msg("tx")
	t.record(trace.Event{Kind: trace.KindSend, Frame: frame, Register: tg.Register})
	return nil
}

// Receive scans the stream byte by byte until a telegram matching m
// arrives or ReceiveTimeout elapses.
func (t *Transport) Receive(m telegram.Match) (byte, error) {
	if t.conn == nil {
		return 0, fmt.Errorf("%w: not connected", ErrConnection)
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReceiveTimeout)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	sc := telegram.NewScanner(m)
	var b [1]byte
	for {
		n, err := t.conn.Read(b[:])
		if n == 1 {
			if v, ok := sc.Feed(b[0]); ok {
				w := sc.Window()
				t.record(trace.Event{Kind: trace.KindReceive, Frame: w[:], Register: m.Register})
				return v, nil
			}
		}
		if err == nil {
			continue
		}
		if isTimeout(err) {
			t.record(trace.Event{Kind: trace.KindFrameTimeout, Register: m.Register})
			return 0, ErrFrameTimeout
		}
		return 0, fmt.Errorf("%w: receive: %v", ErrConnection, err)
	}
}

func (t *Transport) record(e trace.Event) {
	if t.rec == nil {
		return
	}
	e.At = time.Now()
	t.rec.Record(e)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
