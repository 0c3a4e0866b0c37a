// Package pipeline implements the double-buffered worker pool that streams
// the keyed PRNG sequence to or from a device (spec §3/§4.2/§4.3).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/creachadair/taskgroup"
	"go.uber.org/zap"

	"github.com/brunthaler/mediatester/internal/prng"
	"github.com/brunthaler/mediatester/internal/resource"
)

// Config describes one pipeline run.
type Config struct {
	Mode   Mode
	PRNG   *prng.PRNG
	Stream *os.File

	StartPos uint64

	// Threads is the caller-requested worker count; 0 or negative means
	// "use the detected CPU count" (spec §4.2).
	Threads int

	ApproxBufferSize int
	BlockSize        uint32

	Log *zap.SugaredLogger
}

// Result reports how far a run reached before stopping.
type Result struct {
	StartPos      uint64
	StopPos       uint64
	BytesMoved    uint64
	NumErrors     uint64
	FirstErrorPos uint64
	FirstErrorSet bool
}

// Run drives the worker pool to completion, to a soft end of stream, to a
// fail-fast verify mismatch, or to ctx cancellation, whichever comes first.
// Buffer mappings are released unconditionally before Run returns, whether
// or not the run itself reported an error.
func Run(ctx context.Context, cfg Config, rc *resource.Context, log *zap.SugaredLogger) (Result, error) {
	if cfg.Log != nil {
		log = cfg.Log
	}

	numCPU := runtime.NumCPU()
	layout := ComputeLayout(cfg.Threads, numCPU, cfg.ApproxBufferSize, cfg.BlockSize)

	log.Debugw("pipeline layout",
		"workers", layout.Workers,
		"work_segments", layout.WorkSegments,
		"work_segment_size", layout.WorkSegmentSize,
		"buffer_size", layout.BufferSize,
	)

	m := rc.Mark()
	bufs, err := allocateBuffers(layout.BufferSize, rc)
	if err != nil {
		return Result{}, rc.Raisef("%v", err)
	}

	st := newState(bufs, cfg.StartPos, layout.WorkSegmentSize)
	st.stop = layout.BufferSize
	if cfg.Mode == ModeVerify {
		st.primeForRead()
	}

	co := &coordinator{
		mode:   cfg.Mode,
		st:     st,
		prng:   cfg.PRNG,
		stream: cfg.Stream,
		log:    log,
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go co.watchContext(watchCtx)

	g, run := taskgroup.New(nil).Limit(layout.Workers)
	for i := 0; i < layout.Workers; i++ {
		run(func() error {
			return co.runWorker(ctx)
		})
	}
	werr := g.Wait()

	rc.ReleaseTo(m)

	res := Result{
		StartPos:      cfg.StartPos,
		StopPos:       st.stopPos,
		NumErrors:     st.numErrors,
		FirstErrorPos: st.firstErrorPos,
		FirstErrorSet: st.firstErrorSet,
	}
	if res.StopPos > res.StartPos {
		res.BytesMoved = res.StopPos - res.StartPos
	}

	if werr != nil {
		return res, werr
	}
	if st.terminalErr != nil {
		return res, st.terminalErr
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("pipeline: %w", ctx.Err())
	}
	return res, nil
}
