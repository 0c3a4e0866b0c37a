package pipeline_test

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brunthaler/mediatester/internal/pipeline"
	"github.com/brunthaler/mediatester/internal/prng"
	"github.com/brunthaler/mediatester/internal/resource"
)

// TestMain mirrors cli.Execute's SIGPIPE handling: writing to a closed pipe
// in the broken-pipe test must surface as EPIPE, not kill the test binary.
func TestMain(m *testing.M) {
	signal.Ignore(syscall.SIGPIPE)
	os.Exit(m.Run())
}

func testConfig(mode pipeline.Mode, key *prng.PRNG, stream *os.File) pipeline.Config {
	return pipeline.Config{
		Mode:             mode,
		PRNG:             key,
		Stream:           stream,
		Threads:          1,
		ApproxBufferSize: 4096,
		BlockSize:        512,
	}
}

func writeAndCapture(t *testing.T, key *prng.PRNG, n int) []byte {
	t.Helper()
	pr, pw, err := os.Pipe()
	require.NoError(t, err)

	captured := make([]byte, n)
	readDone := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(pr, captured)
		readDone <- err
		_ = pr.Close()
	}()

	log := zap.NewNop().Sugar()
	rc := resource.New()
	_, err = pipeline.Run(context.Background(), testConfig(pipeline.ModeWrite, key, pw), rc, log)
	require.NoError(t, err)
	_ = pw.Close()

	require.NoError(t, <-readDone)
	return captured
}

func verify(t *testing.T, key *prng.PRNG, data []byte) (pipeline.Result, error) {
	t.Helper()
	pr, pw, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		_, _ = pw.Write(data)
		_ = pw.Close()
	}()

	log := zap.NewNop().Sugar()
	rc := resource.New()
	res, err := pipeline.Run(context.Background(), testConfig(pipeline.ModeVerify, key, pr), rc, log)
	_ = pr.Close()
	return res, err
}

func TestWriteThenVerifyRoundTrip(t *testing.T) {
	key, err := prng.New([]byte("pipeline-roundtrip-seed"))
	require.NoError(t, err)

	data := writeAndCapture(t, key, 4096*2+37)

	res, err := verify(t, key, data)
	require.NoError(t, err)
	require.Zero(t, res.NumErrors)
}

func TestVerifyDetectsSingleBitFlip(t *testing.T) {
	key, err := prng.New([]byte("pipeline-tamper-seed"))
	require.NoError(t, err)

	data := writeAndCapture(t, key, 4096*2)
	tampered := append([]byte(nil), data...)
	tampered[10] ^= 0x01

	res, err := verify(t, key, tampered)
	require.Error(t, err)
	require.NotZero(t, res.NumErrors)
}

// TestVerifyDetectsTamperingInStreamShorterThanOneBuffer is the pipeline
// analogue of a 16-byte stream with one flipped bit: the entire stream fits
// in the first read, so it is only ever compared via compareFinalChunk, not
// the normal primed/switchover path.
func TestVerifyDetectsTamperingInStreamShorterThanOneBuffer(t *testing.T) {
	key, err := prng.New([]byte("pipeline-short-tamper-seed"))
	require.NoError(t, err)

	data := writeAndCapture(t, key, 16)
	tampered := append([]byte(nil), data...)
	tampered[5] ^= 0x01

	res, err := verify(t, key, tampered)
	require.Error(t, err)
	require.EqualValues(t, 1, res.NumErrors)
}

// TestVerifyAcceptsCleanStreamShorterThanOneBuffer is the companion to the
// tampering test above, confirming compareFinalChunk does not itself raise
// false positives on an untouched short stream.
func TestVerifyAcceptsCleanStreamShorterThanOneBuffer(t *testing.T) {
	key, err := prng.New([]byte("pipeline-short-clean-seed"))
	require.NoError(t, err)

	data := writeAndCapture(t, key, 16)

	res, err := verify(t, key, data)
	require.NoError(t, err)
	require.Zero(t, res.NumErrors)
}

func TestWriteStopsOnBrokenPipe(t *testing.T) {
	key, err := prng.New([]byte("pipeline-epipe-seed"))
	require.NoError(t, err)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, pr.Close()) // reader already gone: writes fail with EPIPE immediately

	log := zap.NewNop().Sugar()
	rc := resource.New()
	res, err := pipeline.Run(context.Background(), testConfig(pipeline.ModeWrite, key, pw), rc, log)
	require.NoError(t, err)
	require.Zero(t, res.BytesMoved)
	_ = pw.Close()
}

func TestRunHonorsStartPos(t *testing.T) {
	key, err := prng.New([]byte("pipeline-startpos-seed"))
	require.NoError(t, err)

	full := writeAndCapture(t, key, 4096*2)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	go func() {
		_, _ = pw.Write(full[4096:])
		_ = pw.Close()
	}()

	cfg := testConfig(pipeline.ModeVerify, key, pr)
	cfg.StartPos = 4096

	log := zap.NewNop().Sugar()
	rc := resource.New()
	res, err := pipeline.Run(context.Background(), cfg, rc, log)
	_ = pr.Close()
	require.NoError(t, err)
	require.Zero(t, res.NumErrors)
}
