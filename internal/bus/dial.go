// internal/bus/dial.go
package bus

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/goburrow/serial"
)

func dialTCP(ctx context.Context, cfg Config) (Conn, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 15 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
		_ = tc.SetReadBuffer(cfg.ReadBuffer)
		if err := setUserTimeout(tc, cfg.ReceiveTimeout); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// SerialConfig describes a directly attached RS485 adapter.
type SerialConfig struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

func dialSerial(c SerialConfig, window time.Duration) (Conn, error) {
	cfg := serial.Config{
		Address:  c.Address,
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		Parity:   c.Parity,
		Timeout:  window,
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = 8
	}
	if cfg.StopBits == 0 {
		cfg.StopBits = 1
	}
	if cfg.Parity == "" {
		cfg.Parity = "N"
	}

	p, err := serial.Open(&cfg)
	if err != nil {
		return nil, err
	}
	return &serialConn{port: p}, nil
}

// serialConn adds read deadlines on top of a port opened with a short
// per-read timeout: reads are retried until the deadline passes.
type serialConn struct {
	port     io.ReadWriteCloser
	deadline time.Time
}

func (c *serialConn) Read(b []byte) (int, error) {
	for {
		n, err := c.port.Read(b)
		if !errors.Is(err, serial.ErrTimeout) {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
		if !c.deadline.IsZero() && !time.Now().Before(c.deadline) {
			return 0, os.ErrDeadlineExceeded
		}
	}
}

func (c *serialConn) Write(b []byte) (int, error) { return c.port.Write(b) }

func (c *serialConn) Close() error { return c.port.Close() }

func (c *serialConn) SetReadDeadline(t time.Time) error {
	c.deadline = t
	return nil
}
