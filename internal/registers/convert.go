// internal/registers/convert.go
package registers

import "fmt"

// DecodeTemperature looks a raw sensor code up in the NTC table.
func DecodeTemperature(raw byte) int {
	return ntc5k[raw]
}

// EncodeTemperature returns the first raw code that decodes to celsius.
func EncodeTemperature(celsius int) (byte, error) {
	for i, v := range ntc5k {
		if v == celsius {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %d°C not in NTC table", ErrConversion, celsius)
}

// DecodeFanSpeed returns 1 for raw patterns that are not in the map.
func DecodeFanSpeed(raw byte) int {
	if s, ok := fanSpeeds[raw]; ok {
		return s
	}
	return 1
}

// EncodeFanSpeed returns 0 for speeds outside 1..8.
func EncodeFanSpeed(speed int) byte {
	return fanSpeedRaw[speed]
}

func DecodeBit(raw, pos byte) bool {
	return raw>>(pos&7)&0x01 == 1
}

// EncodeBit sets or clears bit pos in current, leaving all other bits alone.
func EncodeBit(set bool, current, pos byte) byte {
	mask := byte(1) << (pos & 7)
	if set {
		return current | mask
	}
	return current &^ mask
}

// Decode converts a raw register byte to its typed value:
// int for Temperature, FanSpeed and Decimal; bool for Bit.
func (d Definition) Decode(raw byte) any {
	switch d.Type {
	case Temperature:
		return DecodeTemperature(raw)
	case FanSpeed:
		return DecodeFanSpeed(raw)
	case Bit:
		return DecodeBit(raw, d.Bit)
	case Decimal:
		if d.Divisor > 1 {
			return int(raw) / d.Divisor
		}
		return int(raw)
	}
	return nil
}

// Encode converts a canonical value back into a raw byte. current is the
// live register byte and only matters for Bit definitions.
func (d Definition) Encode(v any, current byte) (byte, error) {
	switch d.Type {
	case Bit:
		b, ok := v.(bool)
		if !ok {
			return 0, fmt.Errorf("%w: %s wants bool, got %T", ErrValueType, d.Name, v)
		}
		return EncodeBit(b, current, d.Bit), nil
	case Temperature, FanSpeed, Decimal:
		n, ok := v.(int)
		if !ok {
			return 0, fmt.Errorf("%w: %s wants int, got %T", ErrValueType, d.Name, v)
		}
		switch d.Type {
		case Temperature:
			return EncodeTemperature(n)
		case FanSpeed:
			return EncodeFanSpeed(n), nil
		default:
			if d.Divisor > 1 {
				n *= d.Divisor
			}
			if n < 0 || n > 0xFF {
				return 0, fmt.Errorf("%w: %s value %d out of byte range", ErrConversion, d.Name, n)
			}
			return byte(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %s has unknown type %d", ErrConversion, d.Name, d.Type)
}
