// Package feed streams the ledger's ordered, append-only update events into
// the order book. Transports are swappable behind the Feed interface: an
// on-chain log subscription and a websocket JSON mirror ship here.
package feed

import (
	"context"

	"github.com/Amr-9/SigHunter/internal/orderbook"
)

// Feed delivers update events in emission order. Implementations close the
// event channel when the stream ends; a terminal failure arrives on the
// error channel. Resume positions (start block, cursor) are transport
// details fixed at construction.
//
// The book assumes per-identifier total order is preserved by the feed's
// emission mechanism; a transport that can reorder must resequence before
// delivering.
type Feed interface {
	Events(ctx context.Context) (<-chan orderbook.Event, <-chan error)
}
