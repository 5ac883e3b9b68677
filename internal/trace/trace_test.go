// internal/trace/trace_test.go
package trace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorder_AppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.cbor")

	rec, err := NewFileRecorder(path)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	rec.Record(Event{At: at, Kind: KindSend, Frame: []byte{1, 0x2F, 0x11, 0, 0x32, 0x73}, Register: 0x32})
	rec.Record(Event{At: at.Add(time.Millisecond), Kind: KindFrameTimeout, Register: 0x32})
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	// recording after close is a no-op
	rec.Record(Event{Kind: KindReceive})

	// a second recorder appends
	rec2, err := NewFileRecorder(path)
	require.NoError(t, err)
	rec2.Record(Event{At: at, Kind: KindReceive, Frame: []byte{1, 0x11, 0x2F, 0x32, 0x64, 0xD7}, Register: 0x32})
	require.NoError(t, rec2.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	events, err := ReadAll(f)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, KindSend, events[0].Kind)
	assert.True(t, at.Equal(events[0].At))
	assert.Equal(t, []byte{1, 0x2F, 0x11, 0, 0x32, 0x73}, events[0].Frame)
	assert.Equal(t, KindFrameTimeout, events[1].Kind)
	assert.Empty(t, events[1].Frame)
	assert.Equal(t, KindReceive, events[2].Kind)
	assert.Equal(t, byte(0x32), events[2].Register)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "tx", KindSend.String())
	assert.Equal(t, "rx", KindReceive.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
