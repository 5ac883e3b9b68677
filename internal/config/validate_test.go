// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tamzrod/vallox-bridge/internal/registers"
)

func u16(v uint16) *uint16 { return &v }

// helper to build a valid config quickly
func base() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:       "ak",
			Name:     "Vallox AK",
			Endpoint: "192.168.1.50:502",
		},
	}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	if err := Validate(base()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_TransportExclusive(t *testing.T) {
	cfg := base()
	cfg.Device.Serial = &SerialConfig{Address: "/dev/ttyUSB0"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for endpoint+serial, got nil")
	}

	cfg.Device.Endpoint = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("serial only: unexpected error: %v", err)
	}

	cfg.Device.Serial = nil
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for no transport, got nil")
	}
}

func TestValidate_NonASCIIName(t *testing.T) {
	cfg := base()
	cfg.Device.Name = "Lüftung"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected ASCII error, got nil")
	}
}

func TestValidate_RegisterExtension(t *testing.T) {
	cfg := base()
	cfg.Device.Registers = []RegisterConfig{
		{Name: "summer_mode", ID: 0xAA, Type: "bit", Bit: 3, Writable: true},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Device.Registers[0].Type = "float"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected unknown type error, got nil")
	}

	cfg.Device.Registers[0].Type = "bit"
	cfg.Device.Registers[0].Bit = 9
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected bit range error, got nil")
	}
}

func TestValidate_StatusBlockOverlap(t *testing.T) {
	cfg := base()
	cfg.Export = &ExportConfig{Endpoint: "127.0.0.1:502", Address: 0, StatusSlot: u16(1)} // 20-39
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}

	cfg.Export.StatusSlot = u16(10) // 200-219
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_StatusBlockTouchingAllowed(t *testing.T) {
	n := uint16(len(ExportFields(mustTable(t, base().Device))))

	cfg := base()
	cfg.Export = &ExportConfig{Endpoint: "ep", Address: 100 - n, StatusSlot: u16(5)} // status 100-119
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := base()
	cfg.Device.Name = ""
	cfg.Export = &ExportConfig{Endpoint: "ep"}
	cfg.NATS = &NATSConfig{URL: "nats://localhost:4222"}

	Normalize(cfg)

	if cfg.Device.PollIntervalMs != DefaultPollIntervalMs {
		t.Fatalf("poll interval=%d", cfg.Device.PollIntervalMs)
	}
	if cfg.Device.Name != "ak" {
		t.Fatalf("name=%q want id", cfg.Device.Name)
	}
	if cfg.Export.TimeoutMs != DefaultExportTimeout {
		t.Fatalf("export timeout=%d", cfg.Export.TimeoutMs)
	}
	if cfg.NATS.Subject != "vallox.ak" {
		t.Fatalf("subject=%q", cfg.NATS.Subject)
	}
}

func TestNormalize_TruncatesName(t *testing.T) {
	cfg := base()
	cfg.Device.Name = "Vallox Digit SE upstairs"
	Normalize(cfg)
	if len(cfg.Device.Name) != DeviceNameMaxChars {
		t.Fatalf("name=%q", cfg.Device.Name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vallox.yaml")
	body := `
device:
  id: ak
  name: Vallox AK
  endpoint: 192.168.1.50:502
  poll_interval_ms: 30000
  registers:
    - {name: summer_mode, id: 0xAA, type: bit, bit: 3, writable: true}
export:
  endpoint: 127.0.0.1:502
  unit_id: 1
  address: 0
  status_slot: 10
metrics:
  listen: ":9108"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Device.Registers[0].ID != 0xAA || cfg.Export.StatusSlot == nil || *cfg.Export.StatusSlot != 10 {
		t.Fatalf("decoded config=%+v export=%+v", cfg.Device, cfg.Export)
	}
	if cfg.Metrics.Listen != ":9108" {
		t.Fatalf("metrics listen=%q", cfg.Metrics.Listen)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("device:\n  id: ak\n  port: 502\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field error, got nil")
	}
}

func mustTable(t *testing.T, d DeviceConfig) *registers.Table {
	t.Helper()
	tbl, err := Table(d)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}
