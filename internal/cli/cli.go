// Package cli wires the mediatester command line onto the prng, pipeline,
// compare, and support packages. Argument parsing follows the teacher's
// cobra.Command conventions (coordinator/cmd/coordinator/main.go), adapted
// from a subcommand surface to the positional "<mode> <seed_file>
// [<offset>]" surface this tool needs.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brunthaler/mediatester/internal/buildinfo"
	"github.com/brunthaler/mediatester/internal/compare"
	"github.com/brunthaler/mediatester/internal/iosize"
	"github.com/brunthaler/mediatester/internal/logging"
	"github.com/brunthaler/mediatester/internal/pipeline"
	"github.com/brunthaler/mediatester/internal/priority"
	"github.com/brunthaler/mediatester/internal/prng"
	"github.com/brunthaler/mediatester/internal/resource"
	"github.com/brunthaler/mediatester/internal/seedfile"
)

type options struct {
	threads    int
	noNice     bool
	strictNice bool
	noFlush    bool
	version    bool
	verbose    bool
}

// NewRootCommand builds the cobra command tree. It is exported separately
// from Execute so tests can drive it without touching process-global state.
func NewRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "mediatester <mode> <seed_file> [<starting_offset>]",
		Short:         "Fill or verify a device/stream with a reproducible pseudo-random sequence",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 0, "fixed worker count, capped at the detected CPU count")
	cmd.Flags().BoolVarP(&opts.noNice, "no-nice", "N", false, "do not lower CPU niceness or I/O priority")
	cmd.Flags().BoolVar(&opts.strictNice, "strict-nice", false, "treat a failure to lower CPU niceness or I/O priority as fatal")
	cmd.Flags().BoolVarP(&opts.noFlush, "no-flush", "F", false, "do not flush block-device cache before verify-style reads")
	cmd.Flags().BoolVarP(&opts.version, "version", "V", false, "print version and exit")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug-level logging")

	cmd.AddCommand(newSelftestCommand())

	return cmd
}

// newSelftestCommand dumps the first N bytes of the stream keyed by a seed
// file as hex, for diffing against a known-good golden file. It is hidden
// from --help: this exists for developers checking a build against a
// reference keystream, not for end users filling or verifying a device.
func newSelftestCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:    "selftest <seed_file>",
		Short:  "Print the first N keystream bytes as hex, for golden-file comparison",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := seedfile.Load(args[0])
			if err != nil {
				return err
			}
			stream, err := prng.DebugKeystream(seed, count)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%x\n", stream)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "c", 256, "number of keystream bytes to print")
	return cmd
}

// Execute runs the command line and returns a non-nil error exactly when
// the process should exit nonzero. Error text has already been written to
// stderr by the time it returns.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", argv0(), err)
		return err
	}
	return nil
}

func argv0() string {
	return filepath.Base(os.Args[0])
}

func runRoot(cmd *cobra.Command, args []string, opts options) error {
	if opts.version {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		return nil
	}

	mode, seedPath, startPos, err := parsePositional(args)
	if err != nil {
		return err
	}

	log, err := logging.Init(logging.Config{Verbose: opts.verbose})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	signal.Ignore(syscall.SIGPIPE)

	seed, err := seedfile.Load(seedPath)
	if err != nil {
		return err
	}
	key, err := prng.New(seed)
	if err != nil {
		return err
	}

	stream, diffOnly, writing, err := openStream(mode)
	if err != nil {
		return err
	}

	blockSize, err := iosize.DetectBlockSize(stream.Fd())
	if err != nil {
		return fmt.Errorf("cannot determine I/O block size: %w", err)
	}
	if startPos%uint64(blockSize) != 0 {
		return fmt.Errorf("starting offset %d is not a multiple of the detected block size %d", startPos, blockSize)
	}

	if !writing && !opts.noFlush {
		isBlock, berr := iosize.IsBlockDevice(stream.Fd())
		if berr != nil {
			return fmt.Errorf("cannot determine whether input is a block device: %w", berr)
		}
		if isBlock {
			if ferr := iosize.FlushBlockDevice(stream.Fd()); ferr != nil {
				return ferr
			}
		}
	}

	if err := priority.Apply(!opts.noNice, opts.strictNice, log); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch mode {
	case "write", "verify":
		return runPipeline(ctx, log, key, stream, mode, startPos, opts, blockSize)
	case "compare", "diff":
		return runCompare(ctx, log, key, stream, startPos, diffOnly)
	default:
		return fmt.Errorf("unsupported mode %q", mode)
	}
}

func parsePositional(args []string) (mode, seedPath string, startPos uint64, err error) {
	if len(args) < 2 || len(args) > 3 {
		return "", "", 0, fmt.Errorf("usage: mediatester [options] <mode> <seed_file> [<starting_offset>]")
	}
	mode = args[0]
	switch mode {
	case "write", "verify", "compare", "diff":
	default:
		return "", "", 0, fmt.Errorf("unknown mode %q (must be one of write, verify, compare, diff)", mode)
	}
	seedPath = args[1]
	if len(args) == 3 {
		startPos, err = strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid starting offset %q: %w", args[2], err)
		}
	}
	return mode, seedPath, startPos, nil
}

// openStream picks stdout for write mode and stdin for every read mode,
// matching spec.md §6's "Standard streams" rule.
func openStream(mode string) (stream *os.File, diffOnly bool, writing bool, err error) {
	switch mode {
	case "write":
		return os.Stdout, false, true, nil
	case "verify", "compare":
		return os.Stdin, false, false, nil
	case "diff":
		return os.Stdin, true, false, nil
	default:
		return nil, false, false, fmt.Errorf("unsupported mode %q", mode)
	}
}

func runPipeline(ctx context.Context, log *zap.SugaredLogger, key *prng.PRNG, stream *os.File, mode string, startPos uint64, opts options, blockSize uint32) error {
	pmode := pipeline.ModeWrite
	if mode == "verify" {
		pmode = pipeline.ModeVerify
	}

	layout := pipeline.ComputeLayout(opts.threads, numCPU(), pipeline.DefaultApproxBufferSize, blockSize)
	log.Infow("starting run",
		"mode", pmode,
		"starting_offset", startPos,
		"block_size", datasize.ByteSize(blockSize).String(),
		"workers", layout.Workers,
		"work_segment_size", datasize.ByteSize(layout.WorkSegmentSize).String(),
		"segments_per_buffer", layout.WorkSegments,
		"buffer_size", datasize.ByteSize(layout.BufferSize).String(),
		"buffer_count", 2,
	)

	rc := resource.New()
	cfg := pipeline.Config{
		Mode:             pmode,
		PRNG:             key,
		Stream:           stream,
		StartPos:         startPos,
		Threads:          opts.threads,
		ApproxBufferSize: pipeline.DefaultApproxBufferSize,
		BlockSize:        blockSize,
		Log:              log,
	}

	g, gctx := errgroup.WithContext(ctx)
	var res pipeline.Result
	var runErr error
	g.Go(func() error {
		res, runErr = pipeline.Run(gctx, cfg, rc, log)
		return runErr
	})
	g.Go(func() error {
		return waitInterrupted(gctx, log)
	})

	waitErr := g.Wait()

	log.Infow("run stopped",
		"start_offset", res.StartPos,
		"stop_offset", res.StopPos,
		"bytes_moved", res.BytesMoved,
		"num_errors", res.NumErrors,
	)

	var interrupted interruptedError
	if errors.As(waitErr, &interrupted) {
		return waitErr
	}
	if runErr != nil {
		return runErr
	}
	return nil
}

func runCompare(ctx context.Context, log *zap.SugaredLogger, key *prng.PRNG, stream *os.File, startPos uint64, diffOnly bool) error {
	log.Infow("starting comparison", "starting_offset", startPos, "diff_only", diffOnly)

	cfg := compare.Config{
		PRNG:     key,
		Stream:   stream,
		StartPos: startPos,
		DiffOnly: diffOnly,
	}

	g, gctx := errgroup.WithContext(ctx)
	var res compare.Result
	var runErr error
	g.Go(func() error {
		res, runErr = compare.Run(gctx, cfg, os.Stderr)
		return runErr
	})
	g.Go(func() error {
		return waitInterrupted(gctx, log)
	})
	waitErr := g.Wait()

	log.Infow("comparison complete",
		"start_offset", res.StartPos,
		"bytes_compared", res.BytesCompared,
		"num_diffs", res.NumDiffs,
	)

	var interrupted interruptedError
	if errors.As(waitErr, &interrupted) {
		return waitErr
	}
	return runErr
}
