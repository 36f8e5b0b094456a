package feed

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/SigHunter/internal/orderbook"
	"github.com/Amr-9/SigHunter/pkg/selector"
)

func wsEvent(seq uint64, candidate string, reward int64) orderbook.Event {
	target := selector.Keccak().Selector([]byte(selector.Signature("", candidate, "")))
	return orderbook.Event{
		Seq:    seq,
		ID:     selector.OrderID("", "", target),
		Target: target,
		Reward: big.NewInt(reward),
	}
}

func TestWSFeedStreamsAndResumes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	events := []orderbook.Event{
		wsEvent(1, "one", 10),
		wsEvent(2, "two", 20),
		wsEvent(3, "three", 30),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for _, ev := range events {
			require.NoError(t, conn.WriteJSON(ev))
		}
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// resuming after seq 1 must drop the first event
	out, _ := NewWS(url, 1, zaptest.NewLogger(t)).Events(ctx)

	var got []orderbook.Event
	for len(got) < 2 {
		select {
		case ev := <-out:
			got = append(got, ev)
		case <-ctx.Done():
			t.Fatal("timed out waiting for feed events")
		}
	}

	assert.Equal(t, uint64(2), got[0].Seq)
	assert.Equal(t, uint64(3), got[1].Seq)
	assert.Equal(t, events[2].ID, got[1].ID)
	assert.Equal(t, int64(30), got[1].Reward.Int64())
}

func TestWSFeedReportsUnreachableRelay(t *testing.T) {
	// nothing listens here; every dial fails until the failure budget runs out
	f := NewWS("ws://127.0.0.1:1", 0, zaptest.NewLogger(t))
	f.backoff = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, errs := f.Events(ctx)
	select {
	case err := <-errs:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreachable")
	case <-ctx.Done():
		t.Fatal("no terminal error for an unreachable relay")
	}
}
