// internal/trace/trace.go
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Kind classifies a bus event.
type Kind uint8

const (
	KindSend Kind = iota + 1
	KindReceive
	KindSlotTimeout
	KindFrameTimeout
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "tx"
	case KindReceive:
		return "rx"
	case KindSlotTimeout:
		return "slot-timeout"
	case KindFrameTimeout:
		return "frame-timeout"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Event is one recorded bus exchange step. Integer keys keep the file compact.
type Event struct {
	At    time.Time `cbor:"1,keyasint"`
	Kind  Kind      `cbor:"2,keyasint"`
	Frame []byte    `cbor:"3,keyasint,omitempty"`

	// Register is the register the exchange was about.
	Register byte `cbor:"4,keyasint"`
}

// Recorder receives bus events. Implementations must not block the bus.
type Recorder interface {
	Record(Event)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

// FileRecorder appends CBOR-encoded events to a file.
// Safe for concurrent use; Close may be called more than once.
type FileRecorder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	closed bool
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	return &FileRecorder{file: f, enc: encMode.NewEncoder(f)}, nil
}

// Record drops encoding errors: tracing must never disturb the bus.
func (r *FileRecorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	_ = r.enc.Encode(e)
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

var _ Recorder = (*FileRecorder)(nil)

// ReadAll decodes every event in r until EOF.
func ReadAll(r io.Reader) ([]Event, error) {
	dec := decMode.NewDecoder(r)
	var out []Event
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("trace: decode event %d: %w", len(out), err)
		}
		out = append(out, e)
	}
}
