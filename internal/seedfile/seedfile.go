// Package seedfile loads the binary seed that keys the PRNG stream.
package seedfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/brunthaler/mediatester/internal/prng"
)

// maxRead is one byte larger than the largest accepted seed so that a
// single bounded read can distinguish "exactly MaxKeyLen bytes" from
// "too large" without a second read.
const maxRead = prng.MaxKeyLen + 1

// Load reads the seed file at path and returns its contents. The file must
// contain between 1 and prng.MaxKeyLen bytes; an empty or oversized file is
// an error.
func Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read seed file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, maxRead)
	n, err := io.ReadFull(f, buf)
	switch {
	case err == nil:
		return nil, fmt.Errorf("seed file %q is larger than the %d byte limit", path, prng.MaxKeyLen)
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Got between 1 and maxRead-1 bytes: the common, valid case.
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("seed file %q must not be empty", path)
	default:
		return nil, fmt.Errorf("cannot read seed file: %w", err)
	}

	if n == 0 {
		return nil, fmt.Errorf("seed file %q must not be empty", path)
	}
	return buf[:n], nil
}
