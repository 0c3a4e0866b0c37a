package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/brunthaler/mediatester/internal/prng"
)

// coordinator owns the shared state and drives the worker pool through
// exactly one of the write or verify loops (spec §4.3/§4.3.1/§4.3.2).
type coordinator struct {
	mode   Mode
	st     *state
	prng   *prng.PRNG
	stream *os.File
	log    *zap.SugaredLogger
}

// watchContext wakes every waiting worker and requests shutdown as soon as
// ctx is cancelled, giving the cooperative "shutdown_requested" flag a
// context-based trigger in place of pthread_cancel (spec §4.5).
func (c *coordinator) watchContext(ctx context.Context) {
	<-ctx.Done()
	c.st.mu.Lock()
	c.st.shutdown = true
	c.st.mu.Unlock()
	c.st.cond.Broadcast()
}

// runWorker is the uniform worker goroutine body: claim a segment, generate
// it, or — when it is the unique worker to find the active buffer
// exhausted — perform the switchover step. switchover is always entered
// and left with s.mu held; runWorker unlocks on every exit path.
func (c *coordinator) runWorker(ctx context.Context) error {
	s := c.st
	s.mu.Lock()
	s.activeThreads++

	for {
		if ctx.Err() != nil {
			s.shutdown = true
		}
		if s.shutdown {
			s.activeThreads--
			s.mu.Unlock()
			return nil
		}

		if s.cursor == s.stop {
			if s.activeThreads == 1 {
				if err := c.switchover(); err != nil {
					s.mu.Unlock()
					return err
				}
				continue
			}
			s.activeThreads--
			s.cond.Wait()
			s.activeThreads++
			continue
		}

		segment := s.buffers[s.activeBuf][s.cursor : s.cursor+s.workSegmentSize]
		s.cursor += s.workSegmentSize
		segPos := s.pos
		s.pos += uint64(s.workSegmentSize)
		s.mu.Unlock()

		var cur prng.Cursor
		c.prng.Seek(&cur, segPos)
		c.prng.Generate(segment, &cur)

		s.mu.Lock()
	}
}

func (c *coordinator) switchover() error {
	switch c.mode {
	case ModeWrite:
		return c.switchoverWrite()
	case ModeVerify:
		return c.switchoverVerify()
	default:
		return fmt.Errorf("pipeline: unsupported mode %v", c.mode)
	}
}

// switchoverWrite implements spec.md §4.3.1: called with s.mu held, it
// rotates the active buffer under the lock, then writes the buffer just
// rotated out to the stream while the other workers generate the next
// buffer's worth of reference bytes in parallel. Always returns with s.mu
// held.
func (c *coordinator) switchoverWrite() error {
	s := c.st
	oldIdx := s.activeBuf
	old := s.buffers[oldIdx]
	newIdx := 1 - oldIdx
	basePos := s.pos - uint64(len(old))

	s.activeBuf = newIdx
	s.cursor = 0
	s.stop = len(s.buffers[newIdx])
	s.mu.Unlock()
	s.cond.Broadcast()

	left, softEOF, werr := writeFull(c.stream, old, basePos)
	c.logChecksum("write", basePos, old)

	s.mu.Lock()
	if werr != nil {
		err := fmt.Errorf("write error at byte offset %d (started at %d): %w", basePos, s.startPos, werr)
		s.terminalErr = err
		s.shutdown = true
		s.cond.Broadcast()
		return err
	}
	if softEOF && left > 0 {
		s.stopPos = basePos + uint64(len(old)-left)
		s.shutdown = true
		s.cond.Broadcast()
		c.log.Infow("output stream ended", "stop_offset", s.stopPos, "start_offset", s.startPos)
	}
	return nil
}

// switchoverVerify is the dual of switchoverWrite (spec.md §4.3.2 and the
// design note in state.go). Two buffers rotate through three roles across
// calls: the buffer just rotated out (old) always just finished being
// filled with reference bytes for the range [basePos, basePos+S); the
// OTHER buffer (newIdx) holds whatever was read from the stream during the
// PREVIOUS switchover, for that exact same range, and is compared against
// old right here, before either buffer is touched again. Only after that
// comparison is it safe to rotate the active buffer to newIdx (so workers
// can start generating the next reference into it) and to read fresh input
// into old (now free) for the comparison one switchover from now.
//
// The read performed by this call is itself compared immediately if it
// turns out to be the last one (soft EOF): there is no following
// switchover to pair it against a worker-generated reference, so
// compareFinalChunk generates that reference directly instead. Without
// this, any stream no longer than one buffer would never be compared at
// all. Always returns with s.mu held.
func (c *coordinator) switchoverVerify() error {
	s := c.st
	oldIdx := s.activeBuf
	old := s.buffers[oldIdx]
	newIdx := 1 - oldIdx

	if s.primed {
		basePos := s.pos - uint64(len(old))
		pending := s.buffers[newIdx][:s.pendingLen]
		ref := old[:s.pendingLen]
		for i := range ref {
			if pending[i] != ref[i] {
				s.recordMismatch(basePos + uint64(i))
			}
		}
		if s.numErrors > 0 {
			err := fmt.Errorf("%d mismatching byte(s), first at offset %d", s.numErrors, s.firstErrorPos)
			s.terminalErr = err
			s.shutdown = true
			s.cond.Broadcast()
			return err
		}
	}

	readPos := s.pos
	s.activeBuf = newIdx
	s.cursor = 0
	s.stop = len(s.buffers[newIdx])
	s.mu.Unlock()
	s.cond.Broadcast()

	n, softEOF, rerr := readFull(c.stream, old)
	c.logChecksum("read", readPos, old[:n])

	s.mu.Lock()
	if rerr != nil {
		err := fmt.Errorf("read error at byte offset %d (started at %d): %w", readPos, s.startPos, rerr)
		s.terminalErr = err
		s.shutdown = true
		s.cond.Broadcast()
		return err
	}

	if softEOF {
		c.compareFinalChunk(readPos, old[:n])
		s.stopPos = readPos + uint64(n)
		s.shutdown = true
		if s.numErrors > 0 {
			err := fmt.Errorf("%d mismatching byte(s), first at offset %d", s.numErrors, s.firstErrorPos)
			s.terminalErr = err
			s.cond.Broadcast()
			return err
		}
		s.cond.Broadcast()
		c.log.Infow("input stream ended", "stop_offset", s.stopPos, "start_offset", s.startPos)
		return nil
	}

	s.primed = true
	s.pendingLen = n
	return nil
}

// compareFinalChunk compares a read that turned out to be the stream's
// last (soft EOF) directly against a freshly generated reference, since no
// further switchover will arrive to pair it against one of the worker
// pool's buffers. Called with s.mu held; pending must not be touched by
// any worker concurrently, which holds here because it is either old
// (freed, not yet handed to a worker) or the initial active buffer before
// any worker claims a segment from it.
func (c *coordinator) compareFinalChunk(basePos uint64, pending []byte) {
	if len(pending) == 0 {
		return
	}
	s := c.st
	ref := make([]byte, len(pending))
	var cur prng.Cursor
	c.prng.Seek(&cur, basePos)
	c.prng.Generate(ref, &cur)
	for i := range ref {
		if pending[i] != ref[i] {
			s.recordMismatch(basePos + uint64(i))
		}
	}
}

func (c *coordinator) logChecksum(op string, basePos uint64, buf []byte) {
	if c.log == nil {
		return
	}
	c.log.Debugw("buffer "+op,
		"offset", basePos,
		"bytes", len(buf),
		"xxhash", xxhash.Sum64(buf),
	)
}
