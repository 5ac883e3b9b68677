// internal/status/snapshot.go
package status

// Snapshot is exactly what the status writer delivers.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	PollMillis     uint16
	PendingWrites  uint16

	// Name is ASCII; anything past DeviceNameMaxChars is dropped.
	Name string
}
