package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlphabet(t *testing.T) {
	a, err := NewAlphabet("abc_")
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())

	_, err = NewAlphabet("")
	assert.Error(t, err)
	_, err = NewAlphabet("aba")
	assert.Error(t, err, "duplicates rejected")
	_, err = NewAlphabet("ab(")
	assert.Error(t, err, "non-identifier characters rejected")
}

func TestSpaceSize(t *testing.T) {
	a := MustAlphabet("ab")

	// 1 empty + 2 of length 1 + 4 of length 2
	size, err := a.SpaceSize(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), size)

	size, err = a.SpaceSize(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), size)

	// 37^40 has no chance of fitting in 64 bits
	_, err = MustAlphabet(DefaultAlphabet).SpaceSize(40)
	assert.Error(t, err)
}

func TestCursorEnumeratesExactlyOnce(t *testing.T) {
	a := MustAlphabet("ab_")
	size, err := a.SpaceSize(2)
	require.NoError(t, err)

	want := []string{
		"",
		"a", "b", "_",
		"aa", "ab", "a_",
		"ba", "bb", "b_",
		"_a", "_b", "__",
	}
	require.Equal(t, uint64(len(want)), size)

	cursor := a.Cursor(0)
	seen := make(map[string]bool, size)
	for i := uint64(0); i < size; i++ {
		got := string(cursor.Candidate())
		assert.Equal(t, want[i], got, "position %d", i)
		assert.False(t, seen[got], "duplicate %q", got)
		seen[got] = true
		cursor.Next()
	}
	assert.Len(t, seen, len(want), "every string up to the bound appears exactly once")
}

func TestCursorResumesFromOffset(t *testing.T) {
	a := MustAlphabet("xyz_0")
	size, err := a.SpaceSize(3)
	require.NoError(t, err)

	// walking from zero and decoding an offset directly must agree
	walker := a.Cursor(0)
	for off := uint64(0); off < size; off++ {
		if off%7 == 0 {
			resumed := a.Cursor(off)
			assert.Equal(t, string(walker.Candidate()), string(resumed.Candidate()), "offset %d", off)
		}
		walker.Next()
	}
}

func TestCursorOffsetDecode(t *testing.T) {
	a := MustAlphabet("ab")

	cases := map[uint64]string{
		0: "",
		1: "a",
		2: "b",
		3: "aa",
		4: "ab",
		5: "ba",
		6: "bb",
		7: "aaa",
	}
	for off, want := range cases {
		assert.Equal(t, want, string(a.Cursor(off).Candidate()), "offset %d", off)
	}
}

func TestRandomStreamStaysInBounds(t *testing.T) {
	a := MustAlphabet("ab_")
	stream := a.randomStream(42, 4)

	allowed := map[byte]bool{'a': true, 'b': true, '_': true}
	for i := 0; i < 1000; i++ {
		c := stream.next()
		require.GreaterOrEqual(t, len(c), 1)
		require.LessOrEqual(t, len(c), 4)
		for _, b := range c {
			require.True(t, allowed[b], "character %q outside alphabet", b)
		}
	}
}

func TestRandomStreamsAreIndependent(t *testing.T) {
	a := MustAlphabet(DefaultAlphabet)
	s1 := a.randomStream(1, 8)
	s2 := a.randomStream(2, 8)

	same := 0
	for i := 0; i < 100; i++ {
		if string(s1.next()) == string(s2.next()) {
			same++
		}
	}
	assert.Less(t, same, 5, "differently seeded streams should rarely collide")
}
