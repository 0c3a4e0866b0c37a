// Package priority lowers the process's CPU and I/O scheduling priority so
// that a long media-test run does not starve the rest of the system. This
// is the "be nice" default described in spec §6; it is skipped entirely
// when the caller passes -N.
package priority

import (
	"fmt"

	"go.uber.org/zap"
)

// Apply lowers CPU niceness and I/O priority unless nice is false. By
// default, a failure to lower either is logged and swallowed rather than
// treated as fatal: sandboxes and containers routinely deny CAP_SYS_NICE /
// the ioprio_set syscall for what is, for this tool, a best-effort courtesy
// rather than a correctness requirement. Passing strict=true restores the
// original tool's behavior of treating either failure as fatal, for callers
// that run outside a sandbox and want a loud failure instead of a silently
// unthrottled test.
func Apply(nice, strict bool, log *zap.SugaredLogger) error {
	if !nice {
		return nil
	}
	if err := lowerCPUPriority(); err != nil {
		if strict {
			return fmt.Errorf("could not lower CPU niceness: %w", err)
		}
		log.Warnw("could not lower CPU niceness", "error", err)
	}
	if err := lowerIOPriority(); err != nil {
		if strict {
			return fmt.Errorf("could not lower I/O priority: %w", err)
		}
		log.Warnw("could not lower I/O priority", "error", err)
	}
	return nil
}
