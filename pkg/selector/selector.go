// Package selector implements the 4-byte function selector arithmetic shared
// by the search engine and the order ledger: signature assembly, truncated
// Keccak-256 hashing, and deterministic order identifier derivation.
package selector

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxSolutionLen is the exclusive length bound enforced by the ledger:
// a solution is accepted only if it is strictly shorter than this.
const MaxSolutionLen = 20

// Selector is a 4-byte function selector: the first 4 bytes of the
// Keccak-256 digest of a canonical signature string.
type Selector [4]byte

// Parse decodes a selector from hex, with or without a 0x prefix.
func Parse(s string) (Selector, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 8 {
		return Selector{}, fmt.Errorf("selector must be 4 bytes (8 hex chars), got %q", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector hex %q: %w", s, err)
	}
	var sel Selector
	copy(sel[:], raw)
	return sel, nil
}

// FromBytes truncates a digest (or any byte slice of at least 4 bytes)
// down to a Selector.
func FromBytes(b []byte) Selector {
	var sel Selector
	copy(sel[:], b)
	return sel
}

// Hex returns the 0x-prefixed hex form.
func (s Selector) Hex() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Bytes returns the selector as a freshly allocated slice.
func (s Selector) Bytes() []byte {
	return s[:]
}

// String implements fmt.Stringer.
func (s Selector) String() string {
	return s.Hex()
}

// MarshalText encodes the selector as 0x-prefixed hex.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

// UnmarshalText decodes a selector from hex text.
func (s *Selector) UnmarshalText(text []byte) error {
	sel, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// Signature assembles the canonical signature string the ledger hashes:
// prefix + candidate + "(" + inputTypes + ")". The bytes are hashed as-is,
// with no normalization.
func Signature(prefix, candidate, inputTypes string) string {
	return prefix + candidate + "(" + inputTypes + ")"
}

// AppendSignature appends the canonical signature to buf and returns the
// extended slice. The candidate arrives as raw bytes so workers can reuse
// both buffers and keep the hot loop free of per-candidate allocations.
func AppendSignature(buf []byte, prefix string, candidate []byte, inputTypes string) []byte {
	buf = append(buf, prefix...)
	buf = append(buf, candidate...)
	buf = append(buf, '(')
	buf = append(buf, inputTypes...)
	buf = append(buf, ')')
	return buf
}

// OrderID derives the ledger identifier for an order. It is a pure function
// of the (prefix, inputTypes, target) triple, so repeated funding of the same
// triple lands on the same record.
func OrderID(prefix, inputTypes string, target Selector) common.Hash {
	return crypto.Keccak256Hash([]byte(prefix), []byte(inputTypes), target[:])
}

// ValidateInputTypes checks an order's comma-joined type list at the
// boundary: no parentheses, no spaces, no empty list items. An empty string
// (a zero-argument signature) is valid.
func ValidateInputTypes(inputTypes string) error {
	if inputTypes == "" {
		return nil
	}
	for _, part := range strings.Split(inputTypes, ",") {
		if part == "" {
			return fmt.Errorf("input types %q contain an empty item", inputTypes)
		}
		for _, c := range part {
			if c == '(' || c == ')' || c == ' ' {
				return fmt.Errorf("input types %q contain forbidden character %q", inputTypes, c)
			}
		}
	}
	return nil
}

// ValidateSolution checks a candidate solution against the ledger's
// acceptance rule before it ever reaches submission: strictly shorter than
// MaxSolutionLen and drawn from identifier characters.
func ValidateSolution(solution string) error {
	if len(solution) >= MaxSolutionLen {
		return fmt.Errorf("solution %q is %d chars, must be under %d", solution, len(solution), MaxSolutionLen)
	}
	for _, c := range solution {
		if !isIdentChar(c) {
			return fmt.Errorf("solution %q contains non-identifier character %q", solution, c)
		}
	}
	return nil
}

func isIdentChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '$'
}
