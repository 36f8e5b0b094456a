package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

// CPUEngine implements the Engine interface using CPU-based goroutines.
// It partitions the candidate space across a worker pool and races the
// workers: the first match wins and the rest are cancelled cooperatively.
//
// A CPUEngine tracks stats for one search at a time; run concurrent
// searches on separate instances.
type CPUEngine struct {
	attempts   uint64 // atomic counter for candidates tried
	startNanos int64  // atomic; UnixNano of the current search start
	workers    int
	alphabet   Alphabet
	backend    selector.Backend
}

// NewCPUEngine creates a CPU-based engine. If workers is 0 it defaults to
// the number of CPU cores; a nil backend defaults to the Keccak backend.
func NewCPUEngine(workers int, alphabet Alphabet, backend selector.Backend) *CPUEngine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if alphabet.Len() == 0 {
		alphabet = MustAlphabet(DefaultAlphabet)
	}
	if backend == nil {
		backend = selector.Keccak
	}
	return &CPUEngine{
		workers:  workers,
		alphabet: alphabet,
		backend:  backend,
	}
}

// Name returns the implementation name.
func (e *CPUEngine) Name() string {
	return "CPU"
}

// Alphabet returns the alphabet candidates are drawn from.
func (e *CPUEngine) Alphabet() Alphabet {
	return e.alphabet
}

// Stats returns the current performance statistics. Safe to call while a
// Search is running; both counters are read atomically.
func (e *CPUEngine) Stats() Stats {
	attempts := atomic.LoadUint64(&e.attempts)

	var elapsed float64
	if start := atomic.LoadInt64(&e.startNanos); start > 0 {
		elapsed = time.Since(time.Unix(0, start)).Seconds()
	}

	var hashRate float64
	if elapsed > 0 {
		hashRate = float64(attempts) / elapsed
	}

	return Stats{
		Attempts:    attempts,
		HashRate:    hashRate,
		ElapsedSecs: elapsed,
	}
}

// Search runs the task to completion. The winning worker closes a shared
// done channel; losing workers observe it within one polling batch and
// stop, so cancellation latency is bounded by the batch size.
func (e *CPUEngine) Search(ctx context.Context, task *Task) (Result, error) {
	if err := selector.ValidateInputTypes(task.InputTypes); err != nil {
		return Result{}, err
	}
	// the ledger's length rule applies to the candidate alone, not the
	// assembled signature
	if task.MaxLen <= 0 || task.MaxLen >= selector.MaxSolutionLen {
		return Result{}, fmt.Errorf("max candidate length %d out of range [1,%d]", task.MaxLen, selector.MaxSolutionLen-1)
	}

	atomic.StoreInt64(&e.startNanos, time.Now().UnixNano())
	atomic.StoreUint64(&e.attempts, 0)

	workers := e.workers
	if task.Workers > 0 {
		workers = task.Workers
	}

	// Single-write result slot plus a done channel closed exactly once:
	// the first worker to report a match wins, later matches are
	// discarded (any valid preimage is equally acceptable).
	resultCh := make(chan string, 1)
	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }

	var wg sync.WaitGroup

	switch task.Strategy {
	case Sequential:
		space, err := e.alphabet.SpaceSize(task.MaxLen)
		if err != nil {
			return Result{}, err
		}
		first := task.Skip
		if first > space {
			first = space
		}
		end := space
		if task.MaxCandidates > 0 && end-first > task.MaxCandidates {
			end = first + task.MaxCandidates
		}
		remaining := end - first
		if remaining == 0 {
			return Result{Outcome: Exhausted}, nil
		}
		if uint64(workers) > remaining {
			workers = int(remaining)
		}

		// contiguous disjoint ranges, remainder spread over the
		// first few workers
		per := remaining / uint64(workers)
		rem := remaining % uint64(workers)
		start := first
		for i := 0; i < workers; i++ {
			n := per
			if uint64(i) < rem {
				n++
			}
			wg.Add(1)
			go e.scanRange(ctx, task, start, start+n, done, resultCh, stop, &wg)
			start += n
		}

	case Random:
		budget := task.MaxCandidates
		perWorker := uint64(0) // 0 = unbounded
		if budget > 0 {
			perWorker = (budget + uint64(workers) - 1) / uint64(workers)
		}
		for i := 0; i < workers; i++ {
			stream := e.alphabet.randomStream(task.Seed+int64(i), task.MaxLen)
			wg.Add(1)
			go e.scanRandom(ctx, task, stream, perWorker, done, resultCh, stop, &wg)
		}

	default:
		return Result{}, fmt.Errorf("unknown search strategy %d", task.Strategy)
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	// the empty identifier is a valid candidate, so "found" is keyed off
	// the outcome rather than a non-empty string
	finish := func(candidate string, outcome Outcome) Result {
		res := Result{Outcome: outcome, Attempts: atomic.LoadUint64(&e.attempts)}
		if outcome == Found {
			res.Candidate = candidate
			res.Signature = selector.Signature(task.Prefix, candidate, task.InputTypes)
		}
		return res
	}

	select {
	case candidate := <-resultCh:
		stop()
		wg.Wait()
		return finish(candidate, Found), nil

	case <-allDone:
		// every worker exhausted its slice; a near-simultaneous match
		// may still sit in the slot
		select {
		case candidate := <-resultCh:
			return finish(candidate, Found), nil
		default:
		}
		return finish("", Exhausted), nil

	case <-ctx.Done():
		stop()
		wg.Wait()
		select {
		case candidate := <-resultCh:
			return finish(candidate, Found), nil
		default:
		}
		// a wall-clock budget expiring is the normal no-solution
		// outcome; only an abort counts as cancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return finish("", Exhausted), nil
		}
		return finish("", Cancelled), nil
	}
}
