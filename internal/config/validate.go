// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/tamzrod/vallox-bridge/internal/registers"
	"github.com/tamzrod/vallox-bridge/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	d := cfg.Device

	if d.ID == "" {
		return errors.New("device: id required")
	}
	for i := 0; i < len(d.Name); i++ {
		if d.Name[i] > 0x7F {
			return fmt.Errorf("device %q: name must contain ASCII characters only", d.ID)
		}
	}

	switch {
	case d.Endpoint == "" && d.Serial == nil:
		return fmt.Errorf("device %q: endpoint or serial required", d.ID)
	case d.Endpoint != "" && d.Serial != nil:
		return fmt.Errorf("device %q: endpoint and serial are mutually exclusive", d.ID)
	case d.Serial != nil && d.Serial.Address == "":
		return fmt.Errorf("device %q: serial.address required", d.ID)
	}

	if d.PollIntervalMs < 0 {
		return fmt.Errorf("device %q: poll_interval_ms must be >= 0", d.ID)
	}
	if d.ReceiveTimeoutMs < 0 {
		return fmt.Errorf("device %q: receive_timeout_ms must be >= 0", d.ID)
	}

	if _, err := Table(d); err != nil {
		return fmt.Errorf("device %q: %w", d.ID, err)
	}

	if e := cfg.Export; e != nil {
		if err := validateExport(e, d); err != nil {
			return err
		}
	}

	if cfg.Metrics != nil && cfg.Metrics.Listen == "" {
		return errors.New("metrics: listen required")
	}
	if cfg.NATS != nil && cfg.NATS.URL == "" {
		return errors.New("nats: url required")
	}
	if cfg.Trace != nil && cfg.Trace.Path == "" {
		return errors.New("trace: path required")
	}
	return nil
}

func validateExport(e *ExportConfig, d DeviceConfig) error {
	if e.Endpoint == "" {
		return errors.New("export: endpoint required")
	}
	if e.TimeoutMs < 0 {
		return errors.New("export: timeout_ms must be >= 0")
	}

	if e.StatusSlot == nil {
		return nil
	}

	// The status block must not overlap the value block.
	table, _ := Table(d)
	fields := ExportFields(table)

	start := uint32(e.Address)
	end := start + uint32(len(fields)) - 1
	sStart := uint32(*e.StatusSlot) * status.SlotsPerDevice
	sEnd := sStart + status.SlotsPerDevice - 1

	if sEnd > 0xFFFF || end > 0xFFFF {
		return fmt.Errorf("export: register block exceeds address space")
	}
	if !(end < sStart || start > sEnd) {
		return fmt.Errorf(
			"export: value block %d-%d overlaps status block %d-%d (status_slot=%d)",
			start, end, sStart, sEnd, *e.StatusSlot,
		)
	}
	return nil
}

// Table builds the register table: the built-in definitions extended by
// the configured ones.
func Table(d DeviceConfig) (*registers.Table, error) {
	if len(d.Registers) == 0 {
		return registers.Default(), nil
	}

	extra := make([]registers.Definition, 0, len(d.Registers))
	for _, r := range d.Registers {
		typ, err := registers.ParseType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", r.Name, err)
		}
		extra = append(extra, registers.Definition{
			Name:     r.Name,
			ID:       r.ID,
			Type:     typ,
			Writable: r.Writable,
			Bit:      r.Bit,
			Divisor:  r.Divisor,
		})
	}
	return registers.Default().Extend(extra)
}

// ExportFields lists, in order, the snapshot keys exported as holding
// registers: every table variable followed by the numeric derived values.
func ExportFields(t *registers.Table) []string {
	defs := t.All()
	out := make([]string, 0, len(defs)+4)
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return append(out,
		registers.FieldTemperatureGain,
		registers.FieldTemperatureReduction,
		registers.FieldTemperatureBalance,
		registers.FieldEfficiency,
	)
}
