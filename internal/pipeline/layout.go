package pipeline

// DefaultApproxBufferSize mirrors the original tool's
// APPROXIMATE_BUFFER_SIZE: the target size for each of the two shared
// buffers before rounding to a whole number of block-size-aligned
// segments.
const DefaultApproxBufferSize = 16 << 20

// defaultWorkSegments is the starting point for the number of segments a
// buffer is sliced into before the thread count narrows it, matching the
// source's tgs.work_segments = 64 preset.
const defaultWorkSegments = 64

// Layout is the set of sizing decisions derived from the requested thread
// count, the detected CPU count, and the I/O block size: spec §4.2/§4.3.
type Layout struct {
	// Workers is the number of worker goroutines to spawn.
	Workers int
	// WorkSegments is the number of segments each shared buffer is divided
	// into.
	WorkSegments int
	// WorkSegmentSize is the size in bytes of one work segment; it is
	// always a multiple of the I/O block size.
	WorkSegmentSize int
	// BufferSize is WorkSegmentSize * WorkSegments: the size of each of
	// the two shared buffers.
	BufferSize int
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ComputeLayout reproduces the source's thread/segment sizing: if the
// caller requested a specific thread count, it is capped at numCPU;
// otherwise numCPU is used directly. The work segment count then narrows
// to a multiple of the worker count (or collapses to 1 segment for a single
// worker), and one extra worker goroutine is added to compensate for the
// time the orchestrating goroutine spends idle waiting on the pool.
func ComputeLayout(requestedThreads, numCPU int, approxBufferSize int, blockSize uint32) Layout {
	workers := requestedThreads
	if workers <= 0 || workers > numCPU {
		workers = numCPU
	}

	workSegments := defaultWorkSegments
	if workers < workSegments {
		if workers == 1 {
			workSegments = 1
		} else {
			workSegments = workSegments / workers * workers
			if workSegments < 1 {
				workSegments = 1
			}
		}
	} else {
		workSegments = workers
	}

	// Compensate for the orchestrating goroutine's idle time while it
	// waits on the pool: one extra worker keeps all cores busy while one
	// of them is blocked doing I/O.
	workers++

	blksz := int(blockSize)
	if blksz <= 0 {
		blksz = 1
	}
	workSegmentSize := ceilDiv(approxBufferSize, workSegments)
	workSegmentSize = ceilDiv(workSegmentSize, blksz) * blksz

	return Layout{
		Workers:         workers,
		WorkSegments:    workSegments,
		WorkSegmentSize: workSegmentSize,
		BufferSize:      workSegmentSize * workSegments,
	}
}
