// internal/config/normalize.go
package config

import "strings"

const (
	DefaultPollIntervalMs = 59000
	DefaultExportTimeout  = 1000
	DefaultNATSSubject    = "vallox"
	DeviceNameMaxChars    = 16
)

// Normalize applies defaults. It is allowed to mutate configuration and
// MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Device
	if d.PollIntervalMs == 0 {
		d.PollIntervalMs = DefaultPollIntervalMs
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if len(d.Name) > DeviceNameMaxChars {
		d.Name = d.Name[:DeviceNameMaxChars]
	}
	for i := range d.Registers {
		d.Registers[i].Type = strings.ToLower(strings.TrimSpace(d.Registers[i].Type))
	}

	if cfg.Export != nil && cfg.Export.TimeoutMs == 0 {
		cfg.Export.TimeoutMs = DefaultExportTimeout
	}
	if cfg.NATS != nil && cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject + "." + d.ID
	}
}
