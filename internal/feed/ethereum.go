package feed

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/Amr-9/SigHunter/internal/orderbook"
	"github.com/Amr-9/SigHunter/pkg/selector"
)

const orderUpdatedSig = "OrderUpdated(bytes32,string,string,bytes4,uint256,string)"

// OrderUpdatedTopic is the topic0 of the ledger's single update event.
var OrderUpdatedTopic = crypto.Keccak256Hash([]byte(orderUpdatedSig))

const orderUpdatedABI = `[{"anonymous":false,"inputs":[
	{"indexed":true,"internalType":"bytes32","name":"id","type":"bytes32"},
	{"indexed":false,"internalType":"string","name":"prefix","type":"string"},
	{"indexed":false,"internalType":"string","name":"inputTypes","type":"string"},
	{"indexed":false,"internalType":"bytes4","name":"sig","type":"bytes4"},
	{"indexed":false,"internalType":"uint256","name":"reward","type":"uint256"},
	{"indexed":false,"internalType":"string","name":"solution","type":"string"}],
	"name":"OrderUpdated","type":"event"}]`

var orderUpdated = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(orderUpdatedABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// LogClient is the slice of the Ethereum RPC surface the feed needs.
// *ethclient.Client satisfies it.
type LogClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Ethereum streams OrderUpdated logs from the ledger contract: a FilterLogs
// backfill from the start block, then a live subscription. Log emission
// order is the ledger's canonical event order, so the derived seq preserves
// it across the backfill/live boundary.
type Ethereum struct {
	client   LogClient
	contract common.Address
	from     uint64
	logger   *zap.Logger
}

// NewEthereum builds a feed over the ledger contract, starting at block
// from (use the block of the last persisted event plus one to resume).
func NewEthereum(client LogClient, contract common.Address, from uint64, logger *zap.Logger) *Ethereum {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ethereum{client: client, contract: contract, from: from, logger: logger}
}

// Events implements Feed.
func (f *Ethereum) Events(ctx context.Context) (<-chan orderbook.Event, <-chan error) {
	out := make(chan orderbook.Event, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		if err := f.run(ctx, out); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	return out, errCh
}

func (f *Ethereum) run(ctx context.Context, out chan<- orderbook.Event) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{f.contract},
		Topics:    [][]common.Hash{{OrderUpdatedTopic}},
	}

	// live subscription first so no log can fall between backfill and live
	live := make(chan types.Log, 64)
	sub, err := f.client.SubscribeFilterLogs(ctx, query, live)
	if err != nil {
		return fmt.Errorf("subscribe ledger logs: %w", err)
	}
	defer sub.Unsubscribe()

	head, err := f.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("fetch head block: %w", err)
	}

	backfill := query
	backfill.FromBlock = new(big.Int).SetUint64(f.from)
	backfill.ToBlock = new(big.Int).SetUint64(head)
	logs, err := f.client.FilterLogs(ctx, backfill)
	if err != nil {
		return fmt.Errorf("backfill ledger logs: %w", err)
	}
	f.logger.Info("backfilled ledger events",
		zap.Uint64("from_block", f.from),
		zap.Uint64("to_block", head),
		zap.Int("logs", len(logs)))

	for _, l := range logs {
		if err := f.emit(ctx, out, l); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("ledger log subscription: %w", err)
		case l := <-live:
			if l.BlockNumber <= head {
				continue // already covered by the backfill
			}
			if err := f.emit(ctx, out, l); err != nil {
				return err
			}
		}
	}
}

func (f *Ethereum) emit(ctx context.Context, out chan<- orderbook.Event, l types.Log) error {
	ev, err := DecodeLog(l)
	if err != nil {
		// a malformed log is a boundary rejection, not a stream failure
		f.logger.Warn("skip undecodable ledger log",
			zap.Uint64("block", l.BlockNumber),
			zap.Uint("index", l.Index),
			zap.Error(err))
		return nil
	}
	select {
	case out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DecodeLog converts one OrderUpdated log into a feed event. The seq packs
// (block number, in-block log index) so arrival order matches emission
// order and survives restarts.
func DecodeLog(l types.Log) (orderbook.Event, error) {
	if len(l.Topics) != 2 || l.Topics[0] != OrderUpdatedTopic {
		return orderbook.Event{}, fmt.Errorf("log topics do not match %s", orderUpdatedSig)
	}

	vals, err := orderUpdated.Unpack("OrderUpdated", l.Data)
	if err != nil {
		return orderbook.Event{}, fmt.Errorf("unpack OrderUpdated data: %w", err)
	}
	if len(vals) != 5 {
		return orderbook.Event{}, fmt.Errorf("unexpected OrderUpdated arity %d", len(vals))
	}

	prefix, ok1 := vals[0].(string)
	inputTypes, ok2 := vals[1].(string)
	sig, ok3 := vals[2].([4]byte)
	reward, ok4 := vals[3].(*big.Int)
	solution, ok5 := vals[4].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return orderbook.Event{}, fmt.Errorf("unexpected OrderUpdated field types")
	}

	return orderbook.Event{
		Seq:        LogSeq(l.BlockNumber, uint64(l.Index)),
		ID:         l.Topics[1],
		Prefix:     prefix,
		InputTypes: inputTypes,
		Target:     selector.Selector(sig),
		Reward:     reward,
		Solution:   solution,
	}, nil
}

// LogSeq derives a strictly increasing seq from a log's position. The low
// 20 bits carry the in-block index, the rest the block number; the +1 keeps
// seq positive for a log at position zero.
func LogSeq(blockNumber, logIndex uint64) uint64 {
	return (blockNumber << 20) + (logIndex & 0xfffff) + 1
}
