package pipeline

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/brunthaler/mediatester/internal/resource"
)

// allocateBuffers maps the two equal-size shared buffers described in
// spec §4.2, using anonymous private mmap rather than a plain Go slice so
// that allocation is an explicit, independently releasable resource — the
// same reason the original tool chose mmap over malloc for this buffer.
// Each mapping is registered with rc as it succeeds, so that if the second
// mapping fails the first is still unmapped during teardown.
func allocateBuffers(size int, rc *resource.Context) (bufs [2][]byte, err error) {
	for i := range bufs {
		b, merr := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		if merr != nil {
			return bufs, fmt.Errorf("could not allocate I/O buffer: %w", merr)
		}
		bufs[i] = b
		buf := b
		rc.Push(func() {
			_ = unix.Munmap(buf)
		})
	}
	return bufs, nil
}
