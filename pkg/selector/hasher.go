package selector

import (
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// Hasher computes truncated signature hashes. Implementations are stateful
// and NOT safe for concurrent use; each search worker owns its own instance,
// obtained from a Backend factory.
type Hasher interface {
	// Selector returns the first 4 bytes of the hash of preimage.
	Selector(preimage []byte) Selector
}

// Backend constructs per-worker Hasher instances. Swapping the backend (for
// example to a GPU-fed implementation) must not touch the search pipeline.
type Backend func() Hasher

// Keccak is the default backend: go-ethereum's Keccak-256 with a reused
// sponge state, the fastest CPU path available here.
func Keccak() Hasher {
	return &keccakHasher{state: crypto.NewKeccakState()}
}

type keccakHasher struct {
	state crypto.KeccakState
	sum   [4]byte
}

func (h *keccakHasher) Selector(preimage []byte) Selector {
	h.state.Reset()
	h.state.Write(preimage)
	h.state.Read(h.sum[:]) // squeeze only the 4 bytes we compare
	return Selector(h.sum)
}

// LegacyKeccak is a portable backend on x/crypto's legacy Keccak-256, kept
// as a cross-check against the default backend.
func LegacyKeccak() Hasher {
	return legacyHasher{}
}

type legacyHasher struct{}

func (legacyHasher) Selector(preimage []byte) Selector {
	d := sha3.NewLegacyKeccak256()
	d.Write(preimage)
	return FromBytes(d.Sum(nil))
}
