// internal/telegram/telegram.go
package telegram

import (
	"errors"
	"fmt"
)

// Wire layout of one telegram:
//
//	0  start     (always 0x01)
//	1  sender
//	2  receiver
//	3  register
//	4  value
//	5  checksum  (sum of bytes 0..4 mod 256)
const (
	Size  = 6
	Start = 0x01
)

var (
	ErrShortFrame = errors.New("telegram: short frame")
	ErrBadStart   = errors.New("telegram: bad start byte")
	ErrChecksum   = errors.New("telegram: checksum mismatch")
)

// Telegram is one fixed-size bus message.
type Telegram struct {
	Sender   byte
	Receiver byte
	Register byte
	Value    byte
}

// Checksum sums b[0..4] modulo 256.
// Only the first five bytes are considered; a shorter slice is summed as-is.
func Checksum(b []byte) byte {
	var sum byte
	for i := 0; i < len(b) && i < Size-1; i++ {
		sum += b[i]
	}
	return sum
}

// Encode returns the 6-byte wire form.
func Encode(sender, receiver, register, value byte) [Size]byte {
	f := [Size]byte{Start, sender, receiver, register, value, 0}
	f[5] = Checksum(f[:])
	return f
}

// Bytes is Encode for an already assembled Telegram.
func (t Telegram) Bytes() []byte {
	f := Encode(t.Sender, t.Receiver, t.Register, t.Value)
	return f[:]
}

func (t Telegram) String() string {
	return fmt.Sprintf("%02x->%02x reg=%02x val=%02x", t.Sender, t.Receiver, t.Register, t.Value)
}

// Decode parses one aligned frame. It is the strict counterpart of Scanner:
// any defect is an error.
func Decode(b []byte) (Telegram, error) {
	if len(b) < Size {
		return Telegram{}, ErrShortFrame
	}
	if b[0] != Start {
		return Telegram{}, ErrBadStart
	}
	if b[5] != Checksum(b) {
		return Telegram{}, fmt.Errorf("%w: got=0x%02x want=0x%02x", ErrChecksum, b[5], Checksum(b))
	}
	return Telegram{Sender: b[1], Receiver: b[2], Register: b[3], Value: b[4]}, nil
}
