package cli

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
)

// interruptedError reports that the run stopped because of SIGINT/SIGTERM
// rather than because the pipeline itself finished or failed. It is the
// direct analogue of the teacher's Interrupted type in
// coordinator/cmd/coordinator/main.go.
type interruptedError struct {
	signal os.Signal
}

func (e interruptedError) Error() string {
	return "interrupted by " + e.signal.String()
}

// waitInterrupted blocks until SIGINT or SIGTERM arrives or ctx ends,
// matching the teacher's WaitInterrupted helper so errgroup.WithContext can
// race it against the pipeline run the same way the coordinator races its
// control loop against shutdown signals.
func waitInterrupted(ctx context.Context, log *zap.SugaredLogger) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		log.Infow("caught signal, shutting down", "signal", sig)
		return interruptedError{signal: sig}
	case <-ctx.Done():
		return nil
	}
}

func numCPU() int {
	return runtime.NumCPU()
}
