//go:build linux

package priority

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// IOPRIO_CLASS_IDLE and IOPRIO_WHO_PROCESS mirror <linux/ioprio.h>, which
// golang.org/x/sys/unix does not expose directly.
const (
	ioprioClassShift  = 13
	ioprioClassIdle   = 3
	ioprioWhoProcess  = 1
	niceIncrement     = 10
	maxPosixNiceValue = 19
)

func lowerCPUPriority() error {
	raw, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		return fmt.Errorf("getpriority: %w", err)
	}
	// Linux's getpriority(2) syscall biases the returned value by 20 to
	// keep it nonnegative; unix.Getpriority passes that raw value through.
	current := 20 - raw
	target := current + niceIncrement
	if target > maxPosixNiceValue {
		target = maxPosixNiceValue
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, target); err != nil {
		return fmt.Errorf("setpriority: %w", err)
	}
	return nil
}

func lowerIOPriority() error {
	ioprio := uintptr(ioprioClassIdle<<ioprioClassShift | 0)
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, uintptr(ioprioWhoProcess), 0, ioprio)
	if errno != 0 {
		return fmt.Errorf("ioprio_set: %w", errno)
	}
	return nil
}
