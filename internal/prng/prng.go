// Package prng implements the keyed, position-addressable pseudo-random
// byte generator the media tester streams to and from a device.
//
// The generator is derived from Pearson's hashing idea: an sbox holding a
// permutation of all 256 byte values is built from the seed key using an
// ARCFOUR-style key schedule (including the classic "drop 3072" discard of
// initial keystream), then every output byte is produced by folding the
// little-endian base-256 representation of the current stream position
// through the sbox. Because the folding only depends on the position, not
// on any earlier output, generation at any offset is independent of
// generation at any other offset: this is what allows the pipeline to hand
// out segments to workers in any order and still produce a single
// contiguous, reproducible stream.
package prng

import "fmt"

const (
	sboxSize  = 256
	dropRound = 3072
	maxLimbs  = 8
	// MaxKeyLen is the largest seed accepted, matching the original
	// format's 256-byte seed file cap.
	MaxKeyLen = 256
)

// Cursor is a stream position: a little-endian base-256 offset together
// with the number of significant limbs currently in use. Generate only ever
// grows the limb count, when its internal counter overflows into a new
// byte; Seek resets it to the minimum needed for the new position.
type Cursor struct {
	pos   [maxLimbs]byte
	limbs int
}

// Pos reconstructs the absolute offset encoded by the cursor. It is used
// only for diagnostics; the hot path never needs to decode the cursor.
func (c *Cursor) Pos() uint64 {
	var v uint64
	for i := c.limbs - 1; i >= 0; i-- {
		v = v<<8 | uint64(c.pos[i])
	}
	return v
}

// PRNG holds one keyed sbox. A single PRNG instance is meant to back one
// run of the tool, matching the "one key per run" model described in the
// original design; nothing stops a test or a caller from constructing
// several independently keyed instances in the same process.
type PRNG struct {
	sbox [sboxSize]byte
}

// New builds the sbox for key via ARCFOUR key scheduling followed by a
// 3072-round keystream discard. key must be 1..MaxKeyLen bytes.
func New(key []byte) (*PRNG, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("prng: seed key must not be empty")
	}
	if len(key) > MaxKeyLen {
		return nil, fmt.Errorf("prng: seed key of %d bytes exceeds the %d byte limit", len(key), MaxKeyLen)
	}

	p := &PRNG{}
	for i := range p.sbox {
		p.sbox[i] = byte(i)
	}

	var j byte
	for i := 0; i < sboxSize; i++ {
		j = j + p.sbox[i] + key[i%len(key)]
		p.sbox[i], p.sbox[j] = p.sbox[j], p.sbox[i]
	}

	var i byte
	j = 0
	for k := 0; k < dropRound; k++ {
		i++
		j += p.sbox[i]
		p.sbox[i], p.sbox[j] = p.sbox[j], p.sbox[i]
	}

	return p, nil
}

// Seek sets c to the starting position pos, using the minimum number of
// nonzero-terminated limbs (pos == 0 uses exactly one limb holding 0).
func (p *PRNG) Seek(c *Cursor, pos uint64) {
	c.pos = [maxLimbs]byte{}
	i := 0
	for {
		c.pos[i] = byte(pos)
		i++
		pos >>= 8
		if pos == 0 {
			break
		}
	}
	c.limbs = i
}

// Generate fills dst with the next len(dst) bytes of the keyed stream
// starting at c's current position, and advances c past them.
func (p *PRNG) Generate(dst []byte, c *Cursor) {
	for idx := range dst {
		var mac byte
		for i := 0; i < c.limbs; i++ {
			mac = p.sbox[mac^c.pos[i]]
		}
		dst[idx] = mac

		for i := 0; ; i++ {
			c.pos[i]++
			if c.pos[i] != 0 {
				break
			}
			if i+1 == c.limbs {
				c.pos[i+1] = 1
				c.limbs++
				break
			}
		}
	}
}

// DebugKeystream returns the first n bytes of the stream keyed by key,
// starting at offset 0. It exists purely for golden-file comparisons
// against the reference C implementation's output and is not part of the
// pipeline's hot path.
func DebugKeystream(key []byte, n int) ([]byte, error) {
	p, err := New(key)
	if err != nil {
		return nil, err
	}
	var c Cursor
	p.Seek(&c, 0)
	dst := make([]byte, n)
	p.Generate(dst, &c)
	return dst, nil
}
