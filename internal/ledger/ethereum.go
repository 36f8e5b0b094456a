package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

const contractABI = `[
	{"inputs":[
		{"internalType":"string","name":"prefix","type":"string"},
		{"internalType":"string","name":"inputTypes","type":"string"},
		{"internalType":"bytes4","name":"sig","type":"bytes4"}],
		"name":"placeOrder","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],
		"stateMutability":"payable","type":"function"},
	{"inputs":[
		{"internalType":"bytes32","name":"id","type":"bytes32"},
		{"internalType":"string","name":"solution","type":"string"}],
		"name":"fillOrder","outputs":[],
		"stateMutability":"nonpayable","type":"function"}]`

var ledgerABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// TxClient is the slice of the Ethereum RPC surface submission needs.
// *ethclient.Client satisfies it. Solutions go out through whatever
// endpoint this client is dialed against; pointing it at a protected relay
// RPC is how broadcast front-running is avoided.
type TxClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Ethereum submits fills to the escrow contract as signed EIP-1559
// transactions.
type Ethereum struct {
	client   TxClient
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	logger   *zap.Logger
}

// NewEthereum builds a submitter signing with the given key.
func NewEthereum(client TxClient, contract common.Address, key *ecdsa.PrivateKey, logger *zap.Logger) *Ethereum {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ethereum{
		client:   client,
		contract: contract,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		logger:   logger,
	}
}

// Submit implements Submitter. A gas-estimation revert means the fill can
// no longer succeed (typically because the order closed under us) and is
// reported as ErrLost.
func (s *Ethereum) Submit(ctx context.Context, orderID common.Hash, solution string) error {
	if err := selector.ValidateSolution(solution); err != nil {
		return err
	}
	calldata, err := ledgerABI.Pack("fillOrder", orderID, solution)
	if err != nil {
		return fmt.Errorf("pack fillOrder: %w", err)
	}

	tx, err := s.sendCall(ctx, calldata, nil)
	if err != nil {
		return err
	}
	s.logger.Info("submitted fill",
		zap.String("order", orderID.Hex()),
		zap.String("tx", tx.Hash().Hex()))
	return nil
}

// PlaceOrder funds (or tops up) a bounty for the given triple and returns
// its deterministic identifier. Repeated calls with an identical triple
// accumulate value into the same order.
func (s *Ethereum) PlaceOrder(ctx context.Context, prefix, inputTypes string, target selector.Selector, value *big.Int) (common.Hash, error) {
	if err := selector.ValidateInputTypes(inputTypes); err != nil {
		return common.Hash{}, err
	}
	calldata, err := ledgerABI.Pack("placeOrder", prefix, inputTypes, [4]byte(target))
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack placeOrder: %w", err)
	}

	id := selector.OrderID(prefix, inputTypes, target)
	tx, err := s.sendCall(ctx, calldata, value)
	if err != nil {
		return common.Hash{}, err
	}
	s.logger.Info("placed order",
		zap.String("order", id.Hex()),
		zap.String("tx", tx.Hash().Hex()),
		zap.String("value", value.String()))
	return id, nil
}

func (s *Ethereum) sendCall(ctx context.Context, calldata []byte, value *big.Int) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}
	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	tip, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch head: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &s.contract,
		Value: value,
		Data:  calldata,
	})
	if err != nil {
		// an unfillable order reverts at estimation time
		return nil, fmt.Errorf("%w: %s", ErrLost, err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &s.contract,
		Value:     value,
		Data:      calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return signed, nil
}
