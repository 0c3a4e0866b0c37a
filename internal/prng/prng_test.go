package prng_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunthaler/mediatester/internal/prng"
)

func TestNewRejectsEmptyKey(t *testing.T) {
	_, err := prng.New(nil)
	require.Error(t, err)
}

func TestNewRejectsOversizedKey(t *testing.T) {
	_, err := prng.New(make([]byte, prng.MaxKeyLen+1))
	require.Error(t, err)
}

func TestNewAcceptsBoundaryKeyLengths(t *testing.T) {
	_, err := prng.New([]byte{0x00})
	require.NoError(t, err)

	_, err = prng.New(make([]byte, prng.MaxKeyLen))
	require.NoError(t, err)
}

func TestGenerateIsDeterministic(t *testing.T) {
	p, err := prng.New([]byte{0xAB, 0xCD})
	require.NoError(t, err)

	var c1, c2 prng.Cursor
	p.Seek(&c1, 1000)
	p.Seek(&c2, 1000)

	buf1 := make([]byte, 64)
	buf2 := make([]byte, 64)
	p.Generate(buf1, &c1)
	p.Generate(buf2, &c2)

	assert.Equal(t, buf1, buf2)
}

// TestPositionPurity checks the key property from spec §4.1: generating
// from offset p and running n bytes must equal generating from any earlier
// offset p' <= p and discarding the first p-p' bytes.
func TestPositionPurity(t *testing.T) {
	p, err := prng.New([]byte("seed-key"))
	require.NoError(t, err)

	const from, run = 777, 50

	var direct prng.Cursor
	p.Seek(&direct, from)
	wantTail := make([]byte, run)
	p.Generate(wantTail, &direct)

	for _, earlier := range []uint64{0, 1, 776, 700} {
		var c prng.Cursor
		p.Seek(&c, earlier)
		skip := from - earlier
		full := make([]byte, skip+run)
		p.Generate(full, &c)
		assert.Equal(t, wantTail, full[skip:], "starting earlier at %d", earlier)
	}
}

func TestGenerateAcrossLimbBoundaryIsContinuous(t *testing.T) {
	p, err := prng.New([]byte{0x01})
	require.NoError(t, err)

	// Single call spanning the 1-limb -> 2-limb boundary (pos 255 -> 256).
	var c prng.Cursor
	p.Seek(&c, 250)
	spanning := make([]byte, 12)
	p.Generate(spanning, &c)

	// Equivalent bytes produced by two calls split exactly at the boundary.
	var c2 prng.Cursor
	p.Seek(&c2, 250)
	first := make([]byte, 6)
	p.Generate(first, &c2)
	second := make([]byte, 6)
	p.Generate(second, &c2)

	assert.Equal(t, spanning, append(first, second...))
}

// TestCarryIntoNewLimbMatchesSeek guards the carry arithmetic directly:
// advancing byte-by-byte from offset 0 up through a power-of-256 boundary
// must land on the same cursor Seek produces at that offset, since both
// describe the same absolute stream position.
func TestCarryIntoNewLimbMatchesSeek(t *testing.T) {
	p, err := prng.New([]byte("boundary-key"))
	require.NoError(t, err)

	var advancing prng.Cursor
	p.Seek(&advancing, 0)
	discard := make([]byte, 777)
	p.Generate(discard, &advancing)

	var seeked prng.Cursor
	p.Seek(&seeked, 777)

	assert.Equal(t, seeked.Pos(), advancing.Pos())

	wantNext := make([]byte, 8)
	gotNext := make([]byte, 8)
	p.Generate(wantNext, &seeked)
	p.Generate(gotNext, &advancing)
	assert.Equal(t, wantNext, gotNext)
}

func TestSeekZeroUsesOneLimb(t *testing.T) {
	p, err := prng.New([]byte{0x42})
	require.NoError(t, err)

	var c prng.Cursor
	p.Seek(&c, 0)
	assert.Equal(t, uint64(0), c.Pos())

	buf := make([]byte, 1)
	p.Generate(buf, &c)
	assert.Equal(t, uint64(1), c.Pos())
}

func TestDifferentKeysProduceDifferentStreams(t *testing.T) {
	a, err := prng.DebugKeystream([]byte{0x00}, 32)
	require.NoError(t, err)
	b, err := prng.DebugKeystream([]byte{0x01}, 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDebugKeystreamMatchesManualSeekGenerate(t *testing.T) {
	key := []byte{0x00}
	p, err := prng.New(key)
	require.NoError(t, err)
	var c prng.Cursor
	p.Seek(&c, 0)
	want := make([]byte, 16)
	p.Generate(want, &c)

	got, err := prng.DebugKeystream(key, 16)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
