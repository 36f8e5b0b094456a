// Package hunter wires the pipeline together: feed events flow into the
// order book, the evaluator picks profitable bounties, searches race over
// them, and found solutions go out through the submitter.
package hunter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/Amr-9/SigHunter/internal/evaluator"
	"github.com/Amr-9/SigHunter/internal/feed"
	"github.com/Amr-9/SigHunter/internal/ledger"
	"github.com/Amr-9/SigHunter/internal/metrics"
	"github.com/Amr-9/SigHunter/internal/orderbook"
	"github.com/Amr-9/SigHunter/pkg/search"
)

// Options tunes the pipeline. Zero values fall back to sensible defaults
// through config.Default; the fields mirror the tuning file.
type Options struct {
	Alphabet      search.Alphabet
	MaxLen        int // first exhaustive bound per order
	DeepenTo      int // escalation ceiling for exhausted searches
	Workers       int // per-search worker count, 0 = NumCPU
	MaxCandidates uint64
	Concurrent    int // orders searched at once
	// SubmitsPerMinute paces fill submissions. Zero disables pacing.
	SubmitsPerMinute int
}

// Hunter runs the bounty-hunting loop.
type Hunter struct {
	book      *orderbook.Book
	feed      feed.Feed
	eval      *evaluator.Evaluator
	submitter ledger.Submitter
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Hunter
	limiter   ratelimit.Limiter

	mu       sync.Mutex
	inflight map[common.Hash]context.CancelFunc
	// parked holds orders exhausted at the current escalation ceiling,
	// keyed to the reward they were exhausted at; a later funding event
	// with a different reward re-qualifies them.
	parked map[common.Hash]string

	wake chan struct{}
	wg   sync.WaitGroup
}

// New assembles a hunter. The engine implementation is fixed to CPU; the
// hash backend underneath it is still swappable via search.
func New(book *orderbook.Book, fd feed.Feed, eval *evaluator.Evaluator, sub ledger.Submitter, opts Options, logger *zap.Logger) *Hunter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrent <= 0 {
		opts.Concurrent = 1
	}
	if opts.DeepenTo < opts.MaxLen {
		opts.DeepenTo = opts.MaxLen
	}
	limiter := ratelimit.NewUnlimited()
	if opts.SubmitsPerMinute > 0 {
		limiter = ratelimit.New(opts.SubmitsPerMinute, ratelimit.Per(time.Minute))
	}
	return &Hunter{
		book:      book,
		feed:      fd,
		eval:      eval,
		submitter: sub,
		opts:      opts,
		logger:    logger,
		metrics:   metrics.NewHunter(),
		limiter:   limiter,
		inflight:  make(map[common.Hash]context.CancelFunc),
		parked:    make(map[common.Hash]string),
		wake:      make(chan struct{}, 1),
	}
}

// Run blocks until the context ends or the feed fails terminally. In-flight
// searches are cancelled and drained before it returns.
func (h *Hunter) Run(ctx context.Context) error {
	events, feedErrs := h.feed.Events(ctx)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-feedErrs:
			runErr = fmt.Errorf("event feed: %w", err)
			break loop
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			h.ingest(ev)
			h.schedule(ctx)
		case <-h.wake:
			h.schedule(ctx)
		}
	}

	h.mu.Lock()
	for _, cancel := range h.inflight {
		cancel()
	}
	h.mu.Unlock()
	h.wg.Wait()
	return runErr
}

// ingest applies one feed event and reacts to state changes: a closing
// event cancels any in-flight search for that order (someone else won), a
// funding event un-parks an order whose reward moved.
func (h *Hunter) ingest(ev orderbook.Event) {
	applied, err := h.book.Ingest(ev)
	h.metrics.ObserveIngest(applied, err)
	if err != nil {
		h.logger.Warn("rejected feed event",
			zap.Uint64("seq", ev.Seq),
			zap.String("order", ev.ID.Hex()),
			zap.Error(err))
		return
	}
	if !applied {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if ev.Closing() {
		delete(h.parked, ev.ID)
		if cancel, busy := h.inflight[ev.ID]; busy {
			h.logger.Info("order closed mid-search, cancelling",
				zap.String("order", ev.ID.Hex()),
				zap.String("solution", ev.Solution))
			cancel()
		}
		return
	}
	if at, ok := h.parked[ev.ID]; ok && at != ev.Reward.String() {
		delete(h.parked, ev.ID)
	}
}

// schedule fills free search slots with the highest-ranked eligible orders.
// Each launched search works on the snapshot taken here; it is not
// re-validated against fresher book state mid-flight.
func (h *Hunter) schedule(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	slots := h.opts.Concurrent - len(h.inflight)
	if slots <= 0 {
		return
	}

	for _, r := range h.eval.Rank(h.book.Active()) {
		if slots == 0 {
			return
		}
		id := r.Order.ID
		if _, busy := h.inflight[id]; busy {
			continue
		}
		if at, ok := h.parked[id]; ok && at == r.Order.Reward.String() {
			continue
		}

		searchCtx, cancel := context.WithCancel(ctx)
		h.inflight[id] = cancel
		slots--

		h.wg.Add(1)
		go func(order *orderbook.Order, profit string) {
			defer h.wg.Done()
			defer cancel()
			h.runSearch(searchCtx, order, profit)
			h.mu.Lock()
			delete(h.inflight, order.ID)
			h.mu.Unlock()
			h.nudge()
		}(r.Order, r.ExpectedProfit.String())
	}
}

// runSearch drives one order through the escalation ladder: exhaustive up
// to MaxLen, then one character deeper at a time until DeepenTo.
func (h *Hunter) runSearch(ctx context.Context, order *orderbook.Order, profit string) {
	jobID := uuid.NewString()[:8]
	logger := h.logger.With(
		zap.String("job", jobID),
		zap.String("order", order.ID.Hex()),
		zap.String("target", order.Target.Hex()),
		zap.String("reward", order.Reward.String()),
		zap.String("expected_profit", profit))

	logger.Info("starting search",
		zap.String("prefix", order.Prefix),
		zap.String("input_types", order.InputTypes))

	for maxLen := h.opts.MaxLen; maxLen <= h.opts.DeepenTo; maxLen++ {
		engine := search.NewCPUEngine(h.opts.Workers, h.opts.Alphabet, nil)
		task := &search.Task{
			Target:        order.Target,
			Prefix:        order.Prefix,
			InputTypes:    order.InputTypes,
			MaxLen:        maxLen,
			Strategy:      search.Sequential,
			MaxCandidates: h.opts.MaxCandidates,
		}
		if maxLen > h.opts.MaxLen {
			// resume past the space the previous bound already covered
			covered, err := engine.Alphabet().SpaceSize(maxLen - 1)
			if err != nil {
				logger.Error("search space overflow", zap.Int("max_len", maxLen), zap.Error(err))
				return
			}
			task.Skip = covered
		}

		started := time.Now()
		res, err := engine.Search(ctx, task)
		if err != nil {
			h.metrics.ObserveSearch("error", 0, started)
			logger.Error("search failed", zap.Error(err))
			return
		}
		h.metrics.ObserveSearch(res.Outcome.String(), res.Attempts, started)

		switch res.Outcome {
		case search.Found:
			logger.Info("found solution",
				zap.String("candidate", res.Candidate),
				zap.String("signature", res.Signature),
				zap.Uint64("attempts", res.Attempts))
			h.submit(ctx, order, res.Candidate, logger)
			return

		case search.Cancelled:
			logger.Info("search cancelled", zap.Uint64("attempts", res.Attempts))
			return

		case search.Exhausted:
			logger.Info("search exhausted, deepening",
				zap.Int("max_len", maxLen),
				zap.Uint64("attempts", res.Attempts))
		}
	}

	// out of depth at this reward; wait for a funding change
	h.mu.Lock()
	h.parked[order.ID] = order.Reward.String()
	h.mu.Unlock()
	logger.Info("no solution within depth ceiling, parking order",
		zap.Int("deepen_to", h.opts.DeepenTo))
}

// submit pushes a found solution to the ledger. Losing the race is a
// normal outcome: the result is discarded and the closing event will
// retire the order.
func (h *Hunter) submit(ctx context.Context, order *orderbook.Order, candidate string, logger *zap.Logger) {
	h.limiter.Take()
	err := h.submitter.Submit(ctx, order.ID, candidate)
	lost := errors.Is(err, ledger.ErrLost)
	h.metrics.ObserveSubmission(err, lost)
	switch {
	case lost:
		logger.Info("fill rejected, someone else won", zap.Error(err))
	case err != nil:
		logger.Error("fill submission failed", zap.Error(err))
	default:
		logger.Info("fill submitted", zap.String("candidate", candidate))
	}
}

// nudge wakes the scheduler without blocking.
func (h *Hunter) nudge() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}
