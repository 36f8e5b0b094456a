package search

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultAlphabet covers the identifier characters valid in a signature:
// lowercase letters, digits, and underscore, in enumeration order.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz_0123456789"

// Alphabet is the ordered character set candidates are drawn from.
type Alphabet struct {
	chars []byte
}

// NewAlphabet builds an alphabet from the given characters, preserving
// order. Characters must be valid identifier bytes and unique.
func NewAlphabet(chars string) (Alphabet, error) {
	if chars == "" {
		return Alphabet{}, fmt.Errorf("alphabet must not be empty")
	}
	seen := [256]bool{}
	for i := 0; i < len(chars); i++ {
		c := chars[i]
		if !isIdentByte(c) {
			return Alphabet{}, fmt.Errorf("alphabet contains non-identifier character %q", c)
		}
		if seen[c] {
			return Alphabet{}, fmt.Errorf("alphabet contains duplicate character %q", c)
		}
		seen[c] = true
	}
	return Alphabet{chars: []byte(chars)}, nil
}

// MustAlphabet is NewAlphabet for known-good constants.
func MustAlphabet(chars string) Alphabet {
	a, err := NewAlphabet(chars)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns the alphabet size.
func (a Alphabet) Len() int {
	return len(a.chars)
}

// String returns the alphabet characters in enumeration order.
func (a Alphabet) String() string {
	return string(a.chars)
}

// SpaceSize returns the number of candidate strings of length 0..maxLen
// inclusive: sum of k^l. Fails when the count would overflow uint64, which
// marks the space as intractable for exhaustive enumeration anyway.
func (a Alphabet) SpaceSize(maxLen int) (uint64, error) {
	if maxLen < 0 {
		return 0, fmt.Errorf("negative max length %d", maxLen)
	}
	k := uint64(len(a.chars))
	total := uint64(1) // the empty candidate
	block := uint64(1)
	for l := 1; l <= maxLen; l++ {
		if block > math.MaxUint64/k {
			return 0, fmt.Errorf("candidate space for length %d overflows", maxLen)
		}
		block *= k
		if total > math.MaxUint64-block {
			return 0, fmt.Errorf("candidate space for length %d overflows", maxLen)
		}
		total += block
	}
	return total, nil
}

// Cursor walks the deterministic candidate sequence: shortest strings
// first, alphabet order within each length. It works as an odometer over
// digit indices so advancing is O(1) amortised, with no per-candidate
// allocations once the buffer has grown to its final length.
type Cursor struct {
	alpha []byte
	idx   []int  // digit indices, most significant first
	buf   []byte // current candidate text, same length as idx
}

// Cursor returns a cursor positioned at the given absolute offset into the
// enumeration (offset 0 is the empty candidate). This is what makes the
// sequence restartable: a worker claims a range by decoding its start
// offset directly, without re-deriving earlier candidates.
func (a Alphabet) Cursor(offset uint64) *Cursor {
	k := uint64(len(a.chars))
	length := 0
	block := uint64(1) // k^length
	for offset >= block {
		offset -= block
		length++
		block *= k
	}
	c := &Cursor{
		alpha: a.chars,
		idx:   make([]int, length, length+4),
		buf:   make([]byte, length, length+4),
	}
	// mixed-radix decode of the in-length index
	for i := length - 1; i >= 0; i-- {
		c.idx[i] = int(offset % k)
		offset /= k
	}
	for i, d := range c.idx {
		c.buf[i] = c.alpha[d]
	}
	return c
}

// Candidate returns the current candidate. The returned slice is only valid
// until the next call to Next.
func (c *Cursor) Candidate() []byte {
	return c.buf
}

// Next advances to the next candidate in the enumeration.
func (c *Cursor) Next() {
	for i := len(c.idx) - 1; i >= 0; i-- {
		c.idx[i]++
		if c.idx[i] < len(c.alpha) {
			c.buf[i] = c.alpha[c.idx[i]]
			return
		}
		c.idx[i] = 0
		c.buf[i] = c.alpha[0]
	}
	// rolled over every digit: move to the first candidate one longer
	c.idx = append(c.idx, 0)
	c.buf = append(c.buf, c.alpha[0])
}

// randomStream yields independently sampled candidates of length
// 1..maxLen. Each worker owns one stream seeded differently, so streams
// never synchronise and need no coordination.
type randomStream struct {
	alpha  []byte
	maxLen int
	rng    *rand.Rand
	buf    []byte
}

func (a Alphabet) randomStream(seed int64, maxLen int) *randomStream {
	return &randomStream{
		alpha:  a.chars,
		maxLen: maxLen,
		rng:    rand.New(rand.NewSource(seed)),
		buf:    make([]byte, 0, maxLen),
	}
}

// next samples the next candidate. The returned slice is only valid until
// the following call.
func (s *randomStream) next() []byte {
	n := 1 + s.rng.Intn(s.maxLen)
	s.buf = s.buf[:n]
	for i := 0; i < n; i++ {
		s.buf[i] = s.alpha[s.rng.Intn(len(s.alpha))]
	}
	return s.buf
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '$'
}
