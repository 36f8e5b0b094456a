package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Amr-9/SigHunter/internal/orderbook"
)

// maxDialFailures is how many consecutive failed dials the feed tolerates
// before reporting the relay unreachable. A drop after a successful dial
// resets the count.
const maxDialFailures = 5

// WS consumes a relay's websocket mirror of the update feed: one JSON
// object per event, in emission order, seq assigned by the mirror. Events
// at or below the resume cursor are dropped, so reconnects replay safely on
// top of the book's dedupe.
type WS struct {
	url     string
	after   uint64
	dialer  *websocket.Dialer
	logger  *zap.Logger
	backoff time.Duration
}

// NewWS builds a websocket feed resuming after the given seq.
func NewWS(url string, after uint64, logger *zap.Logger) *WS {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WS{
		url:     url,
		after:   after,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
		backoff: 2 * time.Second,
	}
}

// Events implements Feed. A dropped connection is re-dialed with a fixed
// backoff; a relay that stays unreachable across maxDialFailures dials is a
// terminal failure, reported on the error channel.
func (f *WS) Events(ctx context.Context) (<-chan orderbook.Event, <-chan error) {
	out := make(chan orderbook.Event, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		cursor := f.after
		dialFailures := 0
		for {
			connected, err := f.stream(ctx, out, &cursor)
			if ctx.Err() != nil {
				return
			}
			if connected {
				dialFailures = 0
			} else {
				dialFailures++
				if dialFailures >= maxDialFailures {
					errCh <- fmt.Errorf("feed relay unreachable after %d dials: %w", dialFailures, err)
					return
				}
			}
			f.logger.Warn("feed stream dropped, reconnecting",
				zap.String("url", f.url),
				zap.Uint64("cursor", cursor),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.backoff):
			}
		}
	}()

	return out, errCh
}

// stream runs one connection to completion. The bool reports whether the
// dial itself succeeded.
func (f *WS) stream(ctx context.Context, out chan<- orderbook.Event, cursor *uint64) (bool, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial feed %s: %w", f.url, err)
	}
	defer conn.Close()

	// unblock ReadJSON when the context ends
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev orderbook.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return true, fmt.Errorf("read feed event: %w", err)
		}
		if ev.Seq <= *cursor {
			continue
		}
		select {
		case out <- ev:
			*cursor = ev.Seq
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}
