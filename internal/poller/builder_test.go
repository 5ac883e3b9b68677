// internal/poller/builder_test.go
package poller

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tamzrod/vallox-bridge/internal/bus/bustest"
	"github.com/tamzrod/vallox-bridge/internal/config"
)

func TestBuild_AgainstSimulatedMainboard(t *testing.T) {
	mb := bustest.Start(t)
	mb.Set(0x29, 0x03)

	c := &config.Config{Device: config.DeviceConfig{
		ID:       "ak",
		Endpoint: mb.Addr(),
		Registers: []config.RegisterConfig{
			{Name: "summer_mode", ID: 0xAA, Type: "bit", Bit: 3, Writable: true},
		},
	}}
	if err := config.Validate(c); err != nil {
		t.Fatal(err)
	}
	config.Normalize(c)

	p, client, tr, err := Build(c, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.Connected() {
		t.Fatalf("Build must not dial")
	}
	if _, ok := client.Table().Lookup("summer_mode"); !ok {
		t.Fatalf("configured register missing from table")
	}

	ctx := context.Background()
	res := p.PollOnce(ctx)
	if res.Err != nil {
		t.Fatalf("PollOnce: %v", res.Err)
	}
	if res.Snapshot["fanspeed"] != 2 {
		t.Fatalf("fanspeed=%v", res.Snapshot["fanspeed"])
	}

	if !p.Write(ctx, "summer_mode", true) {
		t.Fatalf("write failed")
	}
	if mb.Get(0xAA) != 0x08 {
		t.Fatalf("register 0xAA=0x%02x", mb.Get(0xAA))
	}
	if tr.Connected() {
		t.Fatalf("connection left open after write")
	}
}
