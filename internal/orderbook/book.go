// Package orderbook reconstructs the current bounty state by replaying the
// ledger's append-only update feed with latest-wins semantics per order.
package orderbook

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

// ErrNotFound is returned by Get for an identifier the book has never seen.
var ErrNotFound = errors.New("orderbook: order not found")

// Event is one record of the ledger's ordered update feed. An empty
// Solution marks a funding/creation event; a nonempty Solution closes the
// order and carries a zero reward.
type Event struct {
	// Seq is the event's position in the feed, strictly increasing.
	// Replay dedupes on it, never on event content.
	Seq        uint64            `json:"seq"`
	ID         common.Hash       `json:"id"`
	Prefix     string            `json:"prefix"`
	InputTypes string            `json:"inputTypes"`
	Target     selector.Selector `json:"target"`
	Reward     *big.Int          `json:"reward"` // reward after this event
	Solution   string            `json:"solution,omitempty"`
}

// Closing reports whether the event closes its order.
func (e Event) Closing() bool {
	return e.Solution != ""
}

// Order is the latest known state of a bounty.
type Order struct {
	ID         common.Hash
	Prefix     string
	InputTypes string
	Target     selector.Selector
	Reward     *big.Int
	Solved     bool
	Solution   string
	Seq        uint64 // seq of the event that produced this state
}

// Open reports whether the order is an active bounty worth searching.
func (o *Order) Open() bool {
	return !o.Solved && o.Reward != nil && o.Reward.Sign() > 0
}

// clone returns a defensive copy so callers can hold a snapshot while
// ingestion keeps running.
func (o *Order) clone() *Order {
	c := *o
	if o.Reward != nil {
		c.Reward = new(big.Int).Set(o.Reward)
	}
	return &c
}

// Book holds the derived order state plus the replay log. Ingestion is
// serialized by the caller feeding one event stream; reads may run
// concurrently with ingestion and always see a consistent snapshot.
type Book struct {
	mu      sync.RWMutex
	orders  map[common.Hash]*Order
	log     []Event // retained for audit; closed orders are never deleted
	lastSeq uint64
	store   *Store // optional persistence, may be nil
}

// New creates an empty in-memory book.
func New() *Book {
	return &Book{orders: make(map[common.Hash]*Order)}
}

// Open creates a book backed by a persistent store and rebuilds the derived
// state by replaying the stored log.
func Open(store *Store) (*Book, error) {
	b := New()
	b.store = store
	err := store.Replay(func(ev Event) error {
		_, applyErr := b.apply(ev, false)
		return applyErr
	})
	if err != nil {
		return nil, fmt.Errorf("replay stored events: %w", err)
	}
	return b, nil
}

// Ingest applies one feed event. Events must arrive in feed order; an event
// whose seq is not beyond the last applied one is dropped as a duplicate
// (replaying a sequence twice yields the same state as replaying it once).
// The bool reports whether the event was applied.
func (b *Book) Ingest(ev Event) (bool, error) {
	return b.apply(ev, b.store != nil)
}

func (b *Book) apply(ev Event, persist bool) (bool, error) {
	if ev.Reward == nil || ev.Reward.Sign() < 0 {
		return false, fmt.Errorf("event seq %d: reward must be a nonnegative integer", ev.Seq)
	}
	if want := selector.OrderID(ev.Prefix, ev.InputTypes, ev.Target); want != ev.ID {
		return false, fmt.Errorf("event seq %d: id %s does not match derived id %s", ev.Seq, ev.ID, want)
	}
	if err := selector.ValidateInputTypes(ev.InputTypes); err != nil {
		return false, fmt.Errorf("event seq %d: %w", ev.Seq, err)
	}
	if ev.Closing() {
		if err := selector.ValidateSolution(ev.Solution); err != nil {
			return false, fmt.Errorf("event seq %d: %w", ev.Seq, err)
		}
		if ev.Reward.Sign() != 0 {
			return false, fmt.Errorf("event seq %d: closing event carries nonzero reward", ev.Seq)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.Seq == 0 {
		return false, fmt.Errorf("event seq must be positive")
	}
	if ev.Seq <= b.lastSeq {
		return false, nil // duplicate or replayed event
	}

	if persist {
		if err := b.store.Append(ev); err != nil {
			return false, fmt.Errorf("persist event seq %d: %w", ev.Seq, err)
		}
	}

	order, ok := b.orders[ev.ID]
	if !ok {
		order = &Order{ID: ev.ID}
		b.orders[ev.ID] = order
	}

	// latest-wins strictly by feed position, never by reward comparison
	order.Prefix = ev.Prefix
	order.InputTypes = ev.InputTypes
	order.Target = ev.Target
	order.Reward = new(big.Int).Set(ev.Reward)
	order.Seq = ev.Seq
	if ev.Closing() {
		order.Solved = true
		order.Solution = ev.Solution
	} else {
		// a funding event after a close means the ledger re-funded
		// the same triple; the latest event determines the state
		order.Solved = false
		order.Solution = ""
	}

	b.log = append(b.log, ev)
	b.lastSeq = ev.Seq
	return true, nil
}

// Get returns a snapshot of the latest state for the identifier.
func (b *Book) Get(id common.Hash) (*Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	order, ok := b.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return order.clone(), nil
}

// Active returns snapshots of all open orders: latest event was a funding
// event with a nonzero reward. Closed orders stay in the book for audit but
// are excluded here. The result is ordered by identifier for determinism.
func (b *Book) Active() []*Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	active := make([]*Order, 0, len(b.orders))
	for _, order := range b.orders {
		if order.Open() {
			active = append(active, order.clone())
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return bytes.Compare(active[i].ID[:], active[j].ID[:]) < 0
	})
	return active
}

// LastSeq returns the seq of the newest applied event, zero when empty.
func (b *Book) LastSeq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSeq
}

// Len returns the total number of orders ever seen, open and closed.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}
