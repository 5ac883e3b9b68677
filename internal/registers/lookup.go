// internal/registers/lookup.go
package registers

// ntc5k maps a raw sensor code to degrees Celsius for the NTC 5k thermistors
// fitted to the Vallox/Helios mainboards. Index = raw byte.
var ntc5k = [256]int{
	-74, -70, -66, -62, -59, -56, -54, -52, -50, -48, -47, -46, -44, -43, -42, -41,
	-40, -39, -38, -37, -36, -35, -34, -33, -33, -32, -31, -30, -30, -29, -28, -28,
	-27, -27, -26, -25, -25, -24, -24, -23, -23, -22, -22, -21, -21, -20, -20, -19,
	-19, -19, -18, -18, -17, -17, -16, -16, -16, -15, -15, -14, -14, -14, -13, -13,
	-12, -12, -12, -11, -11, -11, -10, -10, -9, -9, -9, -8, -8, -8, -7, -7,
	-7, -6, -6, -6, -5, -5, -5, -4, -4, -4, -3, -3, -3, -2, -2, -2,
	-1, -1, -1, -1, 0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3,
	4, 4, 4, 5, 5, 5, 5, 6, 6, 6, 7, 7, 7, 8, 8, 8,
	9, 9, 9, 10, 10, 10, 11, 11, 11, 12, 12, 12, 13, 13, 13, 14,
	14, 14, 15, 15, 15, 16, 16, 16, 17, 17, 18, 18, 18, 19, 19, 19,
	20, 20, 21, 21, 21, 22, 22, 22, 23, 23, 24, 24, 24, 25, 25, 26,
	26, 27, 27, 27, 28, 28, 29, 29, 30, 30, 31, 31, 32, 32, 33, 33,
	34, 34, 35, 35, 36, 36, 37, 37, 38, 38, 39, 40, 40, 41, 41, 42,
	43, 43, 44, 45, 45, 46, 47, 48, 48, 49, 50, 51, 52, 53, 53, 54,
	55, 56, 57, 59, 60, 61, 62, 63, 65, 66, 68, 69, 71, 73, 75, 77,
	79, 81, 82, 86, 90, 93, 97, 100, 100, 100, 100, 100, 100, 100, 100, 100,
}

// fanSpeeds maps the relay pattern byte to speed steps 1..8.
var fanSpeeds = map[byte]int{
	0x01: 1,
	0x03: 2,
	0x07: 3,
	0x0F: 4,
	0x1F: 5,
	0x3F: 6,
	0x7F: 7,
	0xFF: 8,
}

var fanSpeedRaw = func() map[int]byte {
	m := make(map[int]byte, len(fanSpeeds))
	for raw, speed := range fanSpeeds {
		m[speed] = raw
	}
	return m
}()

var faultTexts = map[int]string{
	5:  "Supply air sensor fault",
	6:  "Carbon dioxide alarm",
	7:  "Outdoor air sensor fault",
	8:  "Extract air sensor fault",
	9:  "Water radiator danger of freezing",
	10: "Exhaust air sensor fault",
}

// FaultText returns the description for a mainboard fault number, "-" if unknown.
func FaultText(code int) string {
	if s, ok := faultTexts[code]; ok {
		return s
	}
	return "-"
}
