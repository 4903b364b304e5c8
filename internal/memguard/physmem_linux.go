//go:build linux

package memguard

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PhysicalMemory returns total physical memory in bytes.
func PhysicalMemory() (int64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return int64(info.Totalram) * int64(info.Unit), nil
}
