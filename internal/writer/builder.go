// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	"github.com/tamzrod/vallox-bridge/internal/config"
	"github.com/tamzrod/vallox-bridge/internal/registers"
	wmodbus "github.com/tamzrod/vallox-bridge/internal/writer/modbus"
)

// BuildPlan converts the export config into a Plan.
// Assumes config has already passed validation.
func BuildPlan(cfg *config.Config, table *registers.Table) (Plan, error) {
	if cfg == nil || cfg.Export == nil {
		return Plan{}, errors.New("writer: export not configured")
	}
	if cfg.Device.ID == "" {
		return Plan{}, errors.New("writer: device.id required")
	}
	e := cfg.Export

	plan := Plan{
		UnitID:   cfg.Device.ID,
		Endpoint: e.Endpoint,
		SlaveID:  e.UnitID,
		Address:  e.Address,
		Fields:   config.ExportFields(table),
	}

	if e.CoilAddress != nil {
		cp := &CoilPlan{Address: *e.CoilAddress}
		for _, d := range table.All() {
			if d.Type == registers.Bit {
				cp.Fields = append(cp.Fields, d.Name)
			}
		}
		plan.Coils = cp
	}

	if e.StatusSlot != nil {
		plan.Status = &StatusPlan{
			Endpoint:   e.Endpoint,
			UnitID:     e.UnitID,
			BaseSlot:   *e.StatusSlot,
			DeviceName: cfg.Device.Name,
		}
	}

	return plan, nil
}

// BuildEndpointClients creates the single client the plan writes through.
func BuildEndpointClients(plan Plan, timeout time.Duration) (map[string]endpointClient, func() error, error) {
	c, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: plan.Endpoint,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return map[string]endpointClient{plan.Endpoint: c}, c.Close, nil
}
