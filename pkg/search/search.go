// Package search implements the selector preimage search engine: candidate
// enumeration, parallel hashing workers, and the coordinator that races them.
// The engine is decoupled from hashing through selector.Backend so a faster
// backend can be plugged in without touching the pipeline.
package search

import (
	"context"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

// Strategy selects how candidates are generated.
type Strategy int

const (
	// Sequential enumerates the candidate space shortest-first, in
	// alphabet order within each length. Deterministic and exhaustive.
	Sequential Strategy = iota
	// Random samples candidates from independent per-worker streams.
	// Used for lengths where exhaustive enumeration is intractable.
	Random
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	default:
		return "unknown"
	}
}

// Task describes a single preimage search.
type Task struct {
	Target     selector.Selector // selector to hit
	Prefix     string            // fixed signature prefix, may be empty
	InputTypes string            // comma-joined type list, no parens
	MaxLen     int               // maximum candidate length, inclusive
	Strategy   Strategy
	// MaxCandidates caps the number of candidates tried across all
	// workers. Zero means the full space for Sequential, and unbounded
	// (until cancellation) for Random.
	MaxCandidates uint64
	// Skip drops the first n candidates of the enumeration, so a
	// deepened retry can resume past the space a shallower bound
	// already covered. Sequential only.
	Skip uint64
	// Seed derives the per-worker random streams. Ignored for Sequential.
	Seed int64
	// Workers overrides the engine's worker count when positive.
	Workers int
}

// Outcome classifies how a search ended. Exhaustion is a normal outcome,
// distinct from cancellation and from errors.
type Outcome int

const (
	Found     Outcome = iota // a matching candidate was located
	Exhausted                // the assigned space or budget completed with no match
	Cancelled                // the caller aborted before completion
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the final report of a search.
type Result struct {
	Outcome   Outcome
	Candidate string // matching identifier, set only when Outcome == Found
	Signature string // full signature string whose hash equals the target
	Attempts  uint64 // candidates tried across all workers
}

// Stats holds real-time performance statistics.
type Stats struct {
	Attempts    uint64  // total candidates hashed so far
	HashRate    float64 // current hashes per second
	ElapsedSecs float64 // time elapsed since the search started
}

// Engine defines the contract for search backends. Implementations can be
// CPU-based (goroutines) or delegate to specialised hardware.
type Engine interface {
	// Search runs the task to completion and reports the outcome.
	// It blocks until a match is found, the space or budget is
	// exhausted, or the context is cancelled.
	Search(ctx context.Context, task *Task) (Result, error)

	// Stats returns the current performance statistics.
	// Safe to call concurrently with a running Search.
	Stats() Stats

	// Name returns the implementation name (e.g., "CPU").
	Name() string
}
