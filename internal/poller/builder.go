// internal/poller/builder.go
package poller

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/bus"
	cfg "github.com/tamzrod/vallox-bridge/internal/config"
	"github.com/tamzrod/vallox-bridge/internal/device"
	"github.com/tamzrod/vallox-bridge/internal/trace"
)

// Build wires transport, device client and poller for the configured device.
// Nothing is dialled here; every operation connects on its own.
// rec may be nil.
func Build(c *cfg.Config, log zerolog.Logger, rec trace.Recorder) (*Poller, *device.Client, *bus.Transport, error) {
	d := c.Device

	table, err := cfg.Table(d)
	if err != nil {
		return nil, nil, nil, err
	}

	bc := bus.Config{
		Endpoint:       d.Endpoint,
		ReceiveTimeout: time.Duration(d.ReceiveTimeoutMs) * time.Millisecond,
	}
	if s := d.Serial; s != nil {
		bc.Serial = &bus.SerialConfig{
			Address:  s.Address,
			BaudRate: s.BaudRate,
			DataBits: s.DataBits,
			StopBits: s.StopBits,
			Parity:   s.Parity,
		}
	}

	opts := []bus.Option{bus.WithLogger(log)}
	if rec != nil {
		opts = append(opts, bus.WithRecorder(rec))
	}
	tr, err := bus.New(bc, opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := device.New(tr, table, device.WithLogger(log))
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := New(
		Config{
			UnitID:   d.ID,
			Interval: time.Duration(d.PollIntervalMs) * time.Millisecond,
		},
		client,
		log,
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, client, tr, nil
}
