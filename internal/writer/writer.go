// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/vallox-bridge/internal/poller"
)

// Modbus areas the writer targets.
const (
	areaCoils            byte = 1
	areaHoldingRegisters byte = 3
)

// NotAvailable is written for a variable the last poll could not read.
const NotAvailable uint16 = 0x8000

// endpointClient is the exact contract the writer uses.
type endpointClient interface {
	WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

type modbusWriter struct {
	plan    Plan
	clients map[string]endpointClient
}

func New(plan Plan, clients map[string]endpointClient) Writer {
	return &modbusWriter{
		plan:    plan,
		clients: clients,
	}
}

// Write delivers the snapshot of a successful poll or of a confirmed write.
// Failed polls are reported through the status block only.
func (w *modbusWriter) Write(res poller.PollResult) error {
	if res.Err != nil && res.Written == "" {
		return nil
	}

	cli := w.clients[w.plan.Endpoint]
	if cli == nil {
		return fmt.Errorf("writer: missing client for endpoint %s", w.plan.Endpoint)
	}

	var errs []string

	regs := EncodeRegisters(w.plan.Fields, res.Snapshot)
	if len(regs) > 0 {
		if err := cli.WriteRegisters(areaHoldingRegisters, w.plan.SlaveID, w.plan.Address, regs); err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: ep=%s unit=%d addr=%d err=%v",
				w.plan.Endpoint, w.plan.SlaveID, w.plan.Address, err,
			))
		}
	}

	if cp := w.plan.Coils; cp != nil && len(cp.Fields) > 0 {
		bits := make([]bool, len(cp.Fields))
		for i, name := range cp.Fields {
			bits[i], _ = res.Snapshot[name].(bool)
		}
		if err := cli.WriteBits(areaCoils, w.plan.SlaveID, cp.Address, bits); err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: ep=%s unit=%d coils addr=%d err=%v",
				w.plan.Endpoint, w.plan.SlaveID, cp.Address, err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// EncodeRegisters maps snapshot values onto one register each:
// ints as 16-bit two's complement, bools as 0/1, anything else or absent
// as NotAvailable.
func EncodeRegisters(fields []string, snap map[string]any) []uint16 {
	out := make([]uint16, len(fields))
	for i, name := range fields {
		switch v := snap[name].(type) {
		case int:
			out[i] = uint16(int16(v))
		case bool:
			if v {
				out[i] = 1
			}
		default:
			out[i] = NotAvailable
		}
	}
	return out
}
