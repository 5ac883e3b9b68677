// internal/device/integration_test.go
package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/vallox-bridge/internal/bus"
	"github.com/tamzrod/vallox-bridge/internal/bus/bustest"
	"github.com/tamzrod/vallox-bridge/internal/device"
	"github.com/tamzrod/vallox-bridge/internal/registers"
)

func newClient(t *testing.T, mb *bustest.Mainboard) *device.Client {
	t.Helper()
	tr, err := bus.New(bus.Config{
		Endpoint:       mb.Addr(),
		ReceiveTimeout: 200 * time.Millisecond,
		SlotTimeout:    200 * time.Millisecond,
	})
	require.NoError(t, err)

	c, err := device.New(tr, registers.Default(),
		device.WithJitter(func() time.Duration { return 10 * time.Millisecond }))
	require.NoError(t, err)
	return c
}

func TestClient_OverLoopback(t *testing.T) {
	mb := bustest.Start(t)
	mb.Set(0x29, 0x03)
	mb.Set(0xA3, 0x01)

	c := newClient(t, mb)
	ctx := context.Background()

	v, ok := c.ReadSingle(ctx, registers.VarFanSpeed)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	snap, err := c.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, snap["power_state"])
	// untouched sensors all read the same raw byte, so indoor equals outdoor
	assert.Equal(t, 100, snap[registers.FieldEfficiency])

	// every operation opens and closes its own connection
	assert.Equal(t, 2, mb.Connections())
}

func TestClient_WriteSpacingOnTheWire(t *testing.T) {
	mb := bustest.Start(t)
	c := newClient(t, mb)
	ctx := context.Background()

	require.True(t, c.Write(ctx, registers.VarFanSpeed, 4))
	require.True(t, c.Write(ctx, "power_state", true))

	w := mb.Writes()
	require.Len(t, w, 2)
	assert.Equal(t, byte(0x0F), w[0].Value)
	assert.Equal(t, byte(0x01), w[1].Value)
	assert.GreaterOrEqual(t, w[1].At.Sub(w[0].At), 800*time.Millisecond)
}

func TestClient_RetriesDroppedReplies(t *testing.T) {
	mb := bustest.Start(t)
	mb.Set(0x36, 5)
	mb.DropReplies(6)

	c := newClient(t, mb)
	v, ok := c.ReadSingle(context.Background(), registers.VarFaultNumber)
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, 7, mb.Requests())
}
