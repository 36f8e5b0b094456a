package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

// plant returns the selector of the signature assembled from a known
// candidate, so the search provably has a hit in its space.
func plant(prefix, candidate, inputTypes string) selector.Selector {
	return selector.Keccak().Selector([]byte(selector.Signature(prefix, candidate, inputTypes)))
}

func TestSearchFindsPlantedCandidate(t *testing.T) {
	engine := NewCPUEngine(4, MustAlphabet("abcdefgh"), nil)
	task := &Task{
		Target:     plant("my", "cadef", "uint256"),
		Prefix:     "my",
		InputTypes: "uint256",
		MaxLen:     5,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)

	// any valid preimage is acceptable, so verify the hash equality
	// rather than the exact candidate
	got := selector.Keccak().Selector([]byte(res.Signature))
	assert.Equal(t, task.Target, got)
	assert.Equal(t, selector.Signature(task.Prefix, res.Candidate, task.InputTypes), res.Signature)
	assert.Positive(t, res.Attempts)
}

func TestSearchFindsEmptyCandidate(t *testing.T) {
	// offset 0 of the enumeration is the empty identifier
	engine := NewCPUEngine(2, MustAlphabet("ab"), nil)
	task := &Task{
		Target: plant("baseline", "", ""),
		Prefix: "baseline",
		MaxLen: 1,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)
	assert.Equal(t, "", res.Candidate)
}

func TestSearchExhaustsWithoutMatch(t *testing.T) {
	// the target comes from a candidate outside the searched alphabet,
	// so a match would need a 2^-32 collision within a few dozen tries
	engine := NewCPUEngine(3, MustAlphabet("ab"), nil)
	task := &Task{
		Target: plant("", "zzzzzz", ""),
		MaxLen: 4,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, res.Outcome)
	assert.Empty(t, res.Candidate)

	space, err := engine.Alphabet().SpaceSize(4)
	require.NoError(t, err)
	assert.Equal(t, space, res.Attempts, "every candidate tried exactly once")
}

func TestSearchHonorsCandidateBudget(t *testing.T) {
	engine := NewCPUEngine(2, MustAlphabet(DefaultAlphabet), nil)
	task := &Task{
		Target:        plant("", "zzzzzzzzzz", ""),
		MaxLen:        6,
		MaxCandidates: 10_000,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, res.Outcome)
	assert.Equal(t, uint64(10_000), res.Attempts)
}

func TestSearchDeadlineReportsExhausted(t *testing.T) {
	engine := NewCPUEngine(2, MustAlphabet(DefaultAlphabet), nil)
	task := &Task{
		Target: plant("", "zzzzzzzzzzzz", ""),
		MaxLen: 8,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := engine.Search(ctx, task)
	require.NoError(t, err)
	// exceeding a wall-clock budget is the normal no-solution outcome
	assert.Equal(t, Exhausted, res.Outcome)
}

func TestSearchAbortReportsCancelled(t *testing.T) {
	engine := NewCPUEngine(2, MustAlphabet(DefaultAlphabet), nil)
	task := &Task{
		Target: plant("", "zzzzzzzzzzzz", ""),
		MaxLen: 8,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := engine.Search(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, res.Outcome)
}

func TestLosersStopWithinBoundedBatches(t *testing.T) {
	// the planted candidate sits near the very front of worker 0's
	// range; once it reports, the other workers may each burn at most
	// one polling batch before they observe the done channel
	const workers = 4
	alpha := MustAlphabet("abcd")
	engine := NewCPUEngine(workers, alpha, nil)
	task := &Task{
		Target: plant("", "aab", ""),
		MaxLen: 8,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)

	space, err := alpha.SpaceSize(8)
	require.NoError(t, err)
	// "aab" is within the first ~30 candidates; a full sweep would be
	// ~87k, so a small attempt total proves prompt cancellation
	bound := uint64(30 + (workers+1)*cancelBatch)
	assert.Less(t, res.Attempts, bound)
	assert.Less(t, res.Attempts, space/2)
}

func TestRandomStrategyFindsReachableTarget(t *testing.T) {
	// tiny alphabet and length 1: random sampling must hit quickly
	engine := NewCPUEngine(2, MustAlphabet("ab"), nil)
	task := &Task{
		Target:        plant("", "b", "uint8"),
		InputTypes:    "uint8",
		MaxLen:        1,
		Strategy:      Random,
		Seed:          7,
		MaxCandidates: 100_000,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)
	assert.Equal(t, "b", res.Candidate)
}

func TestRandomStrategyBudgetExhausts(t *testing.T) {
	engine := NewCPUEngine(3, MustAlphabet("ab"), nil)
	task := &Task{
		Target:        plant("", "zzzz", ""),
		MaxLen:        3,
		Strategy:      Random,
		Seed:          1,
		MaxCandidates: 5_000,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, res.Outcome)
}

func TestSearchSkipsCoveredPrefix(t *testing.T) {
	alpha := MustAlphabet("ab")
	engine := NewCPUEngine(2, alpha, nil)
	covered, err := alpha.SpaceSize(1) // "", "a", "b"
	require.NoError(t, err)

	task := &Task{
		Target: plant("", "a", ""),
		MaxLen: 2,
		Skip:   covered,
	}
	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, res.Outcome, "the match sits inside the skipped prefix")

	space, err := alpha.SpaceSize(2)
	require.NoError(t, err)
	assert.Equal(t, space-covered, res.Attempts, "only the new length is enumerated")

	task.Skip = 0
	res, err = engine.Search(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)
	assert.Equal(t, "a", res.Candidate)
}

func TestSearchSkipBeyondSpaceExhaustsImmediately(t *testing.T) {
	engine := NewCPUEngine(2, MustAlphabet("ab"), nil)
	task := &Task{
		Target: plant("", "a", ""),
		MaxLen: 2,
		Skip:   1 << 40,
	}

	res, err := engine.Search(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, res.Outcome)
	assert.Zero(t, res.Attempts)
}

func TestStatsConcurrentWithSearch(t *testing.T) {
	engine := NewCPUEngine(2, MustAlphabet(DefaultAlphabet), nil)
	task := &Task{Target: plant("", "zzzzzzzzzzzz", ""), MaxLen: 8}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		res, _ := engine.Search(ctx, task)
		done <- res
	}()

	// poll stats while the search runs, the way the console miner does
	var last Stats
	for {
		select {
		case res := <-done:
			assert.Equal(t, res.Attempts, engine.Stats().Attempts)
			assert.GreaterOrEqual(t, engine.Stats().Attempts, last.Attempts)
			return
		default:
			last = engine.Stats()
			assert.GreaterOrEqual(t, last.ElapsedSecs, 0.0)
		}
	}
}

func TestSearchRejectsBadTasks(t *testing.T) {
	engine := NewCPUEngine(1, MustAlphabet("ab"), nil)

	_, err := engine.Search(context.Background(), &Task{MaxLen: 0})
	assert.Error(t, err, "zero length bound")

	_, err = engine.Search(context.Background(), &Task{MaxLen: selector.MaxSolutionLen})
	assert.Error(t, err, "bound at the ledger limit")

	_, err = engine.Search(context.Background(), &Task{MaxLen: 2, InputTypes: "uint256, bool"})
	assert.Error(t, err, "malformed type list is rejected at the boundary")
}

func TestStatsTrackAttempts(t *testing.T) {
	engine := NewCPUEngine(2, MustAlphabet("ab"), nil)
	task := &Task{Target: plant("", "zzz", ""), MaxLen: 3}

	_, err := engine.Search(context.Background(), task)
	require.NoError(t, err)

	stats := engine.Stats()
	assert.Equal(t, uint64(15), stats.Attempts) // 1+2+4+8
	assert.Equal(t, atomic.LoadUint64(&engine.attempts), stats.Attempts)
}
