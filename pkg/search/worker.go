package search

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

// cancelBatch is how many candidates a worker hashes between cancellation
// polls. Polling a channel every candidate would let synchronization
// dominate hash throughput; a batch bounds cancellation latency instead.
const cancelBatch = 4096

// scanRange is a single worker iterating the contiguous slice [start, stop)
// of the enumeration. Workers share nothing on the hot path except the
// attempts counter; the preimage buffer, cursor, and hasher are all owned.
func (e *CPUEngine) scanRange(ctx context.Context, task *Task, start, stop uint64, done <-chan struct{}, resultCh chan<- string, cancelOthers func(), wg *sync.WaitGroup) {
	defer wg.Done()

	cursor := e.alphabet.Cursor(start)
	hasher := e.backend()
	buf := make([]byte, 0, len(task.Prefix)+task.MaxLen+len(task.InputTypes)+2)

	for i := start; i < stop; i++ {
		if (i-start)%cancelBatch == 0 {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			default:
			}
		}

		candidate := cursor.Candidate()
		buf = selector.AppendSignature(buf[:0], task.Prefix, candidate, task.InputTypes)
		atomic.AddUint64(&e.attempts, 1)

		if hasher.Selector(buf) == task.Target {
			e.report(string(candidate), resultCh, cancelOthers)
			return
		}
		cursor.Next()
	}
}

// scanRandom is the random-strategy worker: an independent sample stream,
// optionally budget-bound. A zero budget runs until cancellation.
func (e *CPUEngine) scanRandom(ctx context.Context, task *Task, stream *randomStream, budget uint64, done <-chan struct{}, resultCh chan<- string, cancelOthers func(), wg *sync.WaitGroup) {
	defer wg.Done()

	hasher := e.backend()
	buf := make([]byte, 0, len(task.Prefix)+task.MaxLen+len(task.InputTypes)+2)

	for tried := uint64(0); budget == 0 || tried < budget; tried++ {
		if tried%cancelBatch == 0 {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			default:
			}
		}

		candidate := stream.next()
		buf = selector.AppendSignature(buf[:0], task.Prefix, candidate, task.InputTypes)
		atomic.AddUint64(&e.attempts, 1)

		if hasher.Selector(buf) == task.Target {
			e.report(string(candidate), resultCh, cancelOthers)
			return
		}
	}
}

// report publishes a match into the single-write result slot. If another
// worker already won, the candidate is discarded.
func (e *CPUEngine) report(candidate string, resultCh chan<- string, cancelOthers func()) {
	select {
	case resultCh <- candidate:
		cancelOthers()
	default:
		// result already sent by another worker
	}
}
