// internal/registers/types.go
package registers

import (
	"errors"
	"fmt"
	"strings"
)

// Type selects the conversion applied to a register byte.
type Type uint8

const (
	Temperature Type = iota + 1
	FanSpeed
	Bit
	Decimal
)

func (t Type) String() string {
	switch t {
	case Temperature:
		return "temperature"
	case FanSpeed:
		return "fanspeed"
	case Bit:
		return "bit"
	case Decimal:
		return "dec"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType accepts the names used in configuration files.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temperature":
		return Temperature, nil
	case "fanspeed":
		return FanSpeed, nil
	case "bit":
		return Bit, nil
	case "dec", "decimal":
		return Decimal, nil
	}
	return 0, fmt.Errorf("registers: unknown type %q", s)
}

// ForbiddenID is never written, whatever a table says about it.
const ForbiddenID byte = 0x06

// Definition describes one variable on the mainboard.
type Definition struct {
	Name     string
	ID       byte
	Type     Type
	Writable bool

	// Bit is the bit position for Bit definitions (0..7).
	Bit byte

	// Divisor scales Decimal values: raw = value*Divisor, value = raw/Divisor.
	// 0 or 1 means passthrough.
	Divisor int
}

var (
	ErrConversion = errors.New("registers: conversion failed")

	ErrUnknownVariable   = errors.New("registers: unknown variable")
	ErrForbiddenRegister = errors.New("registers: register is write-forbidden")
	ErrReadOnly          = errors.New("registers: variable is read-only")
	ErrValueType         = errors.New("registers: value type mismatch")
)

// IsValidation reports whether err rejects a write before it reaches the bus.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownVariable) ||
		errors.Is(err, ErrForbiddenRegister) ||
		errors.Is(err, ErrReadOnly) ||
		errors.Is(err, ErrValueType)
}
