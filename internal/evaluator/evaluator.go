// Package evaluator decides which open bounties are economically worth
// searching and ranks them by expected profit. It is purely advisory and
// never mutates order state.
package evaluator

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/Amr-9/SigHunter/internal/orderbook"
	"github.com/Amr-9/SigHunter/pkg/search"
)

// CostModel holds the current network cost parameters. All values are
// nonnegative integers in wei; profit math never touches floating point.
type CostModel struct {
	// WeiPerGigaHash is the cost of computing 1e9 candidate hashes.
	WeiPerGigaHash *big.Int
	// SubmitCost is the fixed overhead of one fill submission (gas).
	SubmitCost *big.Int
}

var gigaHash = big.NewInt(1_000_000_000)

// SearchCost estimates the cost of exhausting a candidate space of the
// given size and submitting once.
func (m CostModel) SearchCost(space uint64) *big.Int {
	cost := new(big.Int).SetUint64(space)
	cost.Mul(cost, m.WeiPerGigaHash)
	cost.Quo(cost, gigaHash)
	return cost.Add(cost, m.SubmitCost)
}

// Ranked pairs an order with its expected profit under the cost model.
type Ranked struct {
	Order          *orderbook.Order
	ExpectedProfit *big.Int
}

// Evaluator ranks open orders under fixed search bounds. The candidate
// space size, and therefore the estimated cost, is the same for every
// order, so the ranking is by reward net of that cost.
type Evaluator struct {
	model CostModel
	space uint64
}

// New builds an evaluator for searches over the given alphabet up to
// maxLen-character candidates.
func New(model CostModel, alphabet search.Alphabet, maxLen int) (*Evaluator, error) {
	if model.WeiPerGigaHash == nil || model.WeiPerGigaHash.Sign() < 0 {
		return nil, fmt.Errorf("cost model: wei per gigahash must be a nonnegative integer")
	}
	if model.SubmitCost == nil || model.SubmitCost.Sign() < 0 {
		return nil, fmt.Errorf("cost model: submit cost must be a nonnegative integer")
	}
	space, err := alphabet.SpaceSize(maxLen)
	if err != nil {
		return nil, fmt.Errorf("cost model: %w", err)
	}
	return &Evaluator{model: model, space: space}, nil
}

// SearchCost returns the estimated cost of one full search attempt.
func (e *Evaluator) SearchCost() *big.Int {
	return e.model.SearchCost(e.space)
}

// Rank orders the given bounties by expected profit, highest first. Orders
// whose expected profit is not positive are excluded from the result but
// otherwise untouched. Ties break on identifier for determinism.
func (e *Evaluator) Rank(orders []*orderbook.Order) []Ranked {
	cost := e.SearchCost()

	ranked := make([]Ranked, 0, len(orders))
	for _, order := range orders {
		if !order.Open() {
			continue
		}
		profit := new(big.Int).Sub(order.Reward, cost)
		if profit.Sign() <= 0 {
			continue
		}
		ranked = append(ranked, Ranked{Order: order, ExpectedProfit: profit})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].ExpectedProfit.Cmp(ranked[j].ExpectedProfit); c != 0 {
			return c > 0
		}
		return bytes.Compare(ranked[i].Order.ID[:], ranked[j].Order.ID[:]) < 0
	})
	return ranked
}
