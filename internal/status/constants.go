// internal/status/constants.go
package status

// Bus health block layout. Fixed; not configurable.

// SlotsPerDevice is the size of the block in holding registers.
const SlotsPerDevice = 20

const (
	SlotHealthCode     = 0
	SlotLastErrorCode  = 1
	SlotSecondsInError = 2

	// SlotPollMillis holds the duration of the last full read, saturated at 65535.
	SlotPollMillis = 3

	// SlotPendingWrites holds the number of unconfirmed writes.
	SlotPendingWrites = 4
)

// Slots 5..10 are reserved.
const (
	SlotReservedStart = 5
	SlotReservedEnd   = 10
)

// The device name sits at the end of the block, two ASCII chars per slot.
const (
	SlotDeviceNameStart = 11
	SlotDeviceNameSlots = 8
	SlotDeviceNameEnd   = SlotDeviceNameStart + SlotDeviceNameSlots - 1
	DeviceNameMaxChars  = SlotDeviceNameSlots * 2
)

// Health codes.
const (
	HealthUnknown  uint16 = 0
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3
	HealthDisabled uint16 = 4
)

// Last error codes.
const (
	CodeNone         uint16 = 0
	CodeGeneric      uint16 = 1
	CodeConnection   uint16 = 10
	CodeSlotTimeout  uint16 = 11
	CodeFrameTimeout uint16 = 12
	CodeNoData       uint16 = 13
	CodeCancelled    uint16 = 14
)
