// Command mediatester fills a block device or stream with a reproducible
// pseudo-random byte sequence keyed by a seed file, and reads it back to
// verify, compare, or diff.
package main

import (
	"os"

	"github.com/brunthaler/mediatester/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
