package pipeline

import "sync"

// state is the shared pipeline state of spec §3, guarded by a single mutex
// paired with a condition variable, exactly mirroring workers_mutex /
// workers_wakeup_call in the original source. Pointer arithmetic over a
// raw buffer ("shared_buffer", "shared_buffer_stop") becomes cursor/stop
// offsets into whichever of the two buffers is currently active.
type state struct {
	mu   sync.Mutex
	cond *sync.Cond

	buffers [2][]byte

	activeBuf int // index (0 or 1) of the buffer currently handing out segments
	cursor    int // offset of the next unclaimed byte within buffers[activeBuf]
	stop      int // offset one past the active buffer's last byte

	pos      uint64 // absolute offset of the next segment to be assigned
	startPos uint64 // immutable initial offset

	workSegmentSize int

	activeThreads int
	shutdown      bool

	// verify-mode pending-read tracking (see switchoverVerify).
	primed     bool
	pendingLen int

	// final stats, set once on the terminating switchover.
	stopPos       uint64
	numErrors     uint64
	firstErrorPos uint64
	firstErrorSet bool
	terminalErr   error
}

func newState(bufs [2][]byte, startPos uint64, workSegmentSize int) *state {
	s := &state{
		buffers:         bufs,
		activeBuf:       0,
		pos:             startPos,
		startPos:        startPos,
		workSegmentSize: workSegmentSize,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// primeForRead marks the active buffer as already fully claimed, forcing
// the first worker action to be a switchover, per spec §9's "shared_buffer
// = shared_buffer_stop after mode init" note for verify mode.
func (s *state) primeForRead() {
	s.cursor = len(s.buffers[0])
	s.stop = len(s.buffers[0])
}

// recordMismatch latches the first mismatch position (subsequent mismatches
// only bump the counter). It does not request shutdown itself:
// switchoverVerify does that once the comparison pass that found the
// mismatch is complete, implementing fail-fast verify from spec §4.3.2.
func (s *state) recordMismatch(pos uint64) {
	if !s.firstErrorSet {
		s.firstErrorSet = true
		s.firstErrorPos = pos
	}
	s.numErrors++
}
