//go:build linux

package iosize

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// linuxPipeBufSize is POSIX PIPE_BUF on Linux; golang.org/x/sys/unix does
// not export it as a named constant, so it is pinned here the way the
// original tool pins it via <limits.h>.
const linuxPipeBufSize = 4096

// IsBlockDevice reports whether fd refers to a block device.
func IsBlockDevice(fd uintptr) (bool, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(fd), &st); err != nil {
		return false, fmt.Errorf("cannot fstat descriptor: %w", err)
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK, nil
}

// DetectBlockSize returns the I/O block size to align writes/reads/offsets
// to. For a block device it is the max of the logical sector size, the
// physical sector size, the optimal I/O size, and MinBlockSize. For
// anything else it is the max of the page size and the pipe buffer size.
// The result is always rounded up to a power of two.
func DetectBlockSize(fd uintptr) (uint32, error) {
	isBlock, err := IsBlockDevice(fd)
	if err != nil {
		return 0, err
	}

	blksz := uint32(MinBlockSize)

	if isBlock {
		logical, err := unix.IoctlGetInt(int(fd), unix.BLKSSZGET)
		if err != nil {
			return 0, fmt.Errorf("unable to determine logical sector size: %w", err)
		}
		if uint32(logical) > blksz {
			blksz = uint32(logical)
		}

		physical, err := unix.IoctlGetInt(int(fd), unix.BLKPBSZGET)
		if err != nil {
			return 0, fmt.Errorf("unable to determine physical sector size: %w", err)
		}
		if uint32(physical) > blksz {
			blksz = uint32(physical)
		}

		optimal, err := unix.IoctlGetInt(int(fd), unix.BLKIOOPT)
		if err != nil {
			return 0, fmt.Errorf("unable to determine optimal I/O size: %w", err)
		}
		if uint32(optimal) > blksz {
			blksz = uint32(optimal)
		}
	} else {
		if page := uint32(os.Getpagesize()); page > blksz {
			blksz = page
		}
		if linuxPipeBufSize > blksz {
			blksz = linuxPipeBufSize
		}
	}

	return roundUpPow2(blksz, MinBlockSize), nil
}

// FlushBlockDevice issues BLKFLSBUF so that subsequent reads cannot be
// satisfied from the page cache. It is a privileged operation; callers
// should tolerate EPERM when running unprivileged, matching the original
// tool's -F escape hatch for exactly this situation.
func FlushBlockDevice(fd uintptr) error {
	if err := unix.IoctlSetInt(int(fd), unix.BLKFLSBUF, 0); err != nil {
		return fmt.Errorf("unable to flush device buffer before starting operation: %w", err)
	}
	return nil
}
