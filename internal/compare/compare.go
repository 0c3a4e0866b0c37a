// Package compare implements the slow, single-threaded byte-by-byte
// comparator used by the compare and diff modes (spec.md §4.3.2, component
// C6). Unlike internal/pipeline it never hands work to a pool: every byte
// is read, regenerated, and reported in one goroutine, trading throughput
// for a complete per-byte report.
package compare

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/brunthaler/mediatester/internal/prng"
)

// Config describes one comparator run.
type Config struct {
	PRNG     *prng.PRNG
	Stream   *os.File
	StartPos uint64
	BufSize  int
	// DiffOnly selects diff mode (report only mismatches) over compare
	// mode (report every byte actually read).
	DiffOnly bool
}

// Result reports how many bytes were compared and how many differed.
type Result struct {
	StartPos      uint64
	BytesCompared uint64
	NumDiffs      uint64
}

const header = "EX RD A XOR BYTE_OFFSET"

// Run reads cfg.Stream to completion (or until ctx is cancelled), comparing
// every byte against the PRNG sequence starting at cfg.StartPos, and writes
// one report line per byte (compare mode) or per mismatch (diff mode) to
// out. The header line is written once before the first comparison.
func Run(ctx context.Context, cfg Config, out io.Writer) (Result, error) {
	bufSize := cfg.BufSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	w := bufio.NewWriter(out)
	fmt.Fprintln(w, header)

	in := make([]byte, bufSize)
	ref := make([]byte, bufSize)

	var cur prng.Cursor
	cfg.PRNG.Seek(&cur, cfg.StartPos)

	res := Result{StartPos: cfg.StartPos}
	pos := cfg.StartPos

	for {
		if ctx.Err() != nil {
			_ = w.Flush()
			return res, fmt.Errorf("compare: %w", ctx.Err())
		}

		n, softEOF, err := readChunk(cfg.Stream, in)
		if err != nil {
			_ = w.Flush()
			return res, fmt.Errorf("read error at byte offset %d (started at %d): %w", pos, cfg.StartPos, err)
		}
		if n == 0 {
			break
		}

		cfg.PRNG.Generate(ref[:n], &cur)

		for i := 0; i < n; i++ {
			expected, actual := ref[i], in[i]
			if expected != actual {
				res.NumDiffs++
			}
			if !cfg.DiffOnly || expected != actual {
				writeLine(w, expected, actual, pos+uint64(i))
			}
		}

		res.BytesCompared += uint64(n)
		pos += uint64(n)

		if softEOF {
			break
		}
	}

	if err := w.Flush(); err != nil {
		return res, fmt.Errorf("compare: writing report: %w", err)
	}
	return res, nil
}

// readChunk reads up to len(buf) bytes, reporting a zero-byte read (io.EOF)
// or EFBIG as a normal end of stream rather than an error; a short read
// with bytes in it is not an end of stream. This mirrors the soft-EOF
// taxonomy internal/pipeline applies to the high-throughput path.
func readChunk(stream *os.File, buf []byte) (n int, softEOF bool, err error) {
	n, err = stream.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, syscall.EFBIG) {
			return n, true, nil
		}
		return n, false, err
	}
	if n == 0 {
		return 0, true, nil
	}
	return n, false, nil
}

func writeLine(w *bufio.Writer, expected, actual byte, offset uint64) {
	fmt.Fprintf(w, "%02X %02X %c %s %d\n", expected, actual, printable(actual), xorBits(expected, actual), offset)
}

func printable(b byte) byte {
	if b >= 0x20 && b < 0x7f {
		return b
	}
	return '.'
}

func xorBits(a, b byte) string {
	x := a ^ b
	bits := make([]byte, 8)
	for i := 0; i < 8; i++ {
		if x&(0x80>>uint(i)) != 0 {
			bits[i] = '1'
		} else {
			bits[i] = '0'
		}
	}
	return string(bits)
}
