//go:build !linux

package memguard

import "errors"

// ErrPhysicalMemoryUnknown is returned on platforms without a memory probe.
var ErrPhysicalMemoryUnknown = errors.New("physical memory size unavailable on this platform")

// PhysicalMemory returns total physical memory in bytes.
func PhysicalMemory() (int64, error) {
	return 0, ErrPhysicalMemoryUnknown
}
