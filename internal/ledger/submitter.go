// Package ledger is the submission boundary to the external escrow
// contract. The transport is swappable behind Submitter so search logic
// never knows whether solutions travel over a private relay or a public
// endpoint.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrLost is returned when the ledger refuses a fill because the order is
// no longer open: someone else's solution landed first, or the order was
// defunded mid-search. Callers discard the local result and move on; this
// is an expected race, never a fatal condition.
var ErrLost = errors.New("ledger: order no longer fillable")

// Submitter delivers a found (orderID, solution) pair to the ledger.
type Submitter interface {
	Submit(ctx context.Context, orderID common.Hash, solution string) error
}
