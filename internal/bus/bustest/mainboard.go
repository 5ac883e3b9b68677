// internal/bus/bustest/mainboard.go

// Package bustest provides a simulated ventilation mainboard that speaks the
// telegram protocol over a loopback TCP listener.
package bustest

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/vallox-bridge/internal/telegram"
)

const mainboardAddr = 0x11

// Write is one write telegram the mainboard accepted.
type Write struct {
	Register byte
	Value    byte
	At       time.Time
}

// Mainboard answers read requests from its register map and applies writes,
// acknowledging each by echoing the telegram back.
type Mainboard struct {
	ln net.Listener

	mu       sync.Mutex
	regs     map[byte]byte
	writes   []Write
	requests int
	drop     int
	noise    []byte
	chatter  bool
	conns    map[net.Conn]struct{}
	accepted int

	wg sync.WaitGroup
}

// Start listens on 127.0.0.1 and stops when the test ends.
func Start(tb testing.TB) *Mainboard {
	tb.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("bustest: listen: %v", err)
	}
	m := &Mainboard{
		ln:    ln,
		regs:  make(map[byte]byte),
		conns: make(map[net.Conn]struct{}),
	}
	m.wg.Add(1)
	go m.accept()
	tb.Cleanup(m.Close)
	return m
}

func (m *Mainboard) Addr() string { return m.ln.Addr().String() }

func (m *Mainboard) Close() {
	_ = m.ln.Close()
	m.mu.Lock()
	for c := range m.conns {
		_ = c.Close()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Mainboard) Set(reg, val byte) {
	m.mu.Lock()
	m.regs[reg] = val
	m.mu.Unlock()
}

func (m *Mainboard) Get(reg byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg]
}

// DropReplies makes the next n requests go unanswered.
func (m *Mainboard) DropReplies(n int) {
	m.mu.Lock()
	m.drop = n
	m.mu.Unlock()
}

// SetNoise prefixes every reply with b, as if another participant talked first.
func (m *Mainboard) SetNoise(b []byte) {
	m.mu.Lock()
	m.noise = append([]byte(nil), b...)
	m.mu.Unlock()
}

// SetChatter keeps the line busy with a byte every millisecond.
func (m *Mainboard) SetChatter(on bool) {
	m.mu.Lock()
	m.chatter = on
	m.mu.Unlock()
}

func (m *Mainboard) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

func (m *Mainboard) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// Connections counts accepted connections.
func (m *Mainboard) Connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

func (m *Mainboard) accept() {
	defer m.wg.Done()
	for {
		c, err := m.ln.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns[c] = struct{}{}
		m.accepted++
		m.mu.Unlock()

		m.wg.Add(2)
		go m.serve(c)
		go m.chat(c)
	}
}

func (m *Mainboard) chat(c net.Conn) {
	defer m.wg.Done()
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for range t.C {
		m.mu.Lock()
		on := m.chatter
		_, open := m.conns[c]
		m.mu.Unlock()
		if !open {
			return
		}
		if on {
			if _, err := c.Write([]byte{0x55}); err != nil {
				return
			}
		}
	}
}

func (m *Mainboard) serve(c net.Conn) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.conns, c)
		m.mu.Unlock()
		_ = c.Close()
	}()

	var buf []byte
	chunk := make([]byte, 64)
	for {
		n, err := c.Read(chunk)
		buf = append(buf, chunk[:n]...)
		for len(buf) >= telegram.Size {
			tg, derr := telegram.Decode(buf[:telegram.Size])
			if derr != nil {
				buf = buf[1:]
				continue
			}
			buf = buf[telegram.Size:]
			if reply, ok := m.handle(tg); ok {
				if _, werr := c.Write(reply); werr != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (m *Mainboard) handle(tg telegram.Telegram) ([]byte, bool) {
	if tg.Receiver != mainboardAddr {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	reg, val := tg.Value, byte(0)
	if tg.Register == 0x00 {
		val = m.regs[reg]
	} else {
		reg, val = tg.Register, tg.Value
		m.regs[reg] = val
		m.writes = append(m.writes, Write{Register: reg, Value: val, At: time.Now()})
	}

	if m.drop > 0 {
		m.drop--
		return nil, false
	}

	f := telegram.Encode(mainboardAddr, tg.Sender, reg, val)
	out := append([]byte(nil), m.noise...)
	return append(out, f[:]...), true
}
