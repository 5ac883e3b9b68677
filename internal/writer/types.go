// internal/writer/types.go
package writer

import "github.com/tamzrod/vallox-bridge/internal/poller"

// Plan is the fully-built export plan for one unit.
type Plan struct {
	UnitID   string
	Endpoint string
	SlaveID  uint8

	// Address is the first holding register; Fields[i] lands at Address+i.
	Address uint16
	Fields  []string

	// Coils is nil unless bit variables are mirrored into coils.
	Coils *CoilPlan

	// Status is nil when the health block is disabled.
	Status *StatusPlan
}

type CoilPlan struct {
	Address uint16
	Fields  []string
}

type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Writer writes poll results into the target.
type Writer interface {
	Write(res poller.PollResult) error
}
