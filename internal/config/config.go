// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device  DeviceConfig   `yaml:"device"`
	Export  *ExportConfig  `yaml:"export"`
	Metrics *MetricsConfig `yaml:"metrics"`
	NATS    *NATSConfig    `yaml:"nats"`
	Trace   *TraceConfig   `yaml:"trace"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// exactly one of Endpoint / Serial
	Endpoint string        `yaml:"endpoint"`
	Serial   *SerialConfig `yaml:"serial"`

	PollIntervalMs   int `yaml:"poll_interval_ms"`
	ReceiveTimeoutMs int `yaml:"receive_timeout_ms"`

	Registers []RegisterConfig `yaml:"registers"`
}

type SerialConfig struct {
	Address  string `yaml:"address"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// RegisterConfig extends or overrides the built-in register table.
type RegisterConfig struct {
	Name     string `yaml:"name"`
	ID       uint8  `yaml:"id"`
	Type     string `yaml:"type"`
	Writable bool   `yaml:"writable"`
	Bit      uint8  `yaml:"bit"`
	Divisor  int    `yaml:"divisor"`
}

// ---- EXPORT (Modbus target) ----

type ExportConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// Address is the first holding register of the value block.
	Address uint16 `yaml:"address"`

	// CoilAddress, when set, mirrors bit variables into coils.
	CoilAddress *uint16 `yaml:"coil_address"`

	// StatusSlot, when set, enables the health block at StatusSlot*20.
	StatusSlot *uint16 `yaml:"status_slot"`
}

// ---- OPTIONAL SINKS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`

	// CommandSubject receives write requests; empty disables them.
	CommandSubject string `yaml:"command_subject"`
}

type TraceConfig struct {
	Path string `yaml:"path"`
}

// Load reads and decodes a YAML file. Unknown keys are rejected.
// It does not validate.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}
