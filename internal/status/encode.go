// internal/status/encode.go
package status

// Encode converts a Snapshot into a full status block.
// No IO.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotPollMillis] = s.PollMillis
	regs[SlotPendingWrites] = s.PendingWrites

	name := []byte(s.Name)
	if len(name) > DeviceNameMaxChars {
		name = name[:DeviceNameMaxChars]
	}
	for i, c := range name {
		if c > 0x7F {
			c = '?'
		}
		slot := SlotDeviceNameStart + i/2
		if i%2 == 0 {
			regs[slot] |= uint16(c) << 8
		} else {
			regs[slot] |= uint16(c)
		}
	}

	return regs
}
