package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/SigHunter/pkg/selector"
)

type fakeClient struct {
	estimateErr error
	sendErr     error
	sent        []*types.Transaction
	lastCall    ethereum.CallMsg
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (f *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (f *fakeClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(30_000_000_000)}, nil
}

func (f *fakeClient) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	f.lastCall = call
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 90_000, nil
}

func (f *fakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func newSubmitter(t *testing.T, client TxClient) *Ethereum {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewEthereum(client, common.HexToAddress("0x00000000000000000000000000000000000000aa"), key, nil)
}

func TestSubmitSignsAndSendsFill(t *testing.T) {
	client := &fakeClient{}
	sub := newSubmitter(t, client)
	orderID := common.HexToHash("0x1234")

	require.NoError(t, sub.Submit(context.Background(), orderID, "pay_me_42"))
	require.Len(t, client.sent, 1)

	tx := client.sent[0]
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(90_000), tx.Gas())
	assert.Equal(t, int64(1337), tx.ChainId().Int64())

	// calldata routes to fillOrder with the right arguments
	wantSelector := ledgerABI.Methods["fillOrder"].ID
	assert.Equal(t, wantSelector, tx.Data()[:4])

	args, err := ledgerABI.Methods["fillOrder"].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, orderID, common.Hash(args[0].([32]byte)))
	assert.Equal(t, "pay_me_42", args[1].(string))
}

func TestSubmitRejectsOversizedSolution(t *testing.T) {
	client := &fakeClient{}
	sub := newSubmitter(t, client)

	err := sub.Submit(context.Background(), common.Hash{}, "aaaaaaaaaaaaaaaaaaaa")
	assert.Error(t, err)
	assert.Empty(t, client.sent, "invalid solutions never reach the wire")
}

func TestSubmitReportsLostRace(t *testing.T) {
	// the ledger reverts estimation once the order has closed under us
	client := &fakeClient{estimateErr: errors.New("execution reverted: order closed")}
	sub := newSubmitter(t, client)

	err := sub.Submit(context.Background(), common.Hash{}, "late")
	assert.ErrorIs(t, err, ErrLost)
	assert.Empty(t, client.sent)
}

func TestPlaceOrderDerivesDeterministicID(t *testing.T) {
	client := &fakeClient{}
	sub := newSubmitter(t, client)
	target := selector.FromBytes([]byte{0xa9, 0x05, 0x9c, 0xbb})

	id, err := sub.PlaceOrder(context.Background(), "trans", "address,uint256", target, big.NewInt(1_000))
	require.NoError(t, err)
	assert.Equal(t, selector.OrderID("trans", "address,uint256", target), id)

	require.Len(t, client.sent, 1)
	tx := client.sent[0]
	assert.Equal(t, int64(1_000), tx.Value().Int64())
	assert.Equal(t, ledgerABI.Methods["placeOrder"].ID, tx.Data()[:4])
	assert.Equal(t, big.NewInt(1_000), client.lastCall.Value)
}

func TestPlaceOrderValidatesTypes(t *testing.T) {
	client := &fakeClient{}
	sub := newSubmitter(t, client)

	_, err := sub.PlaceOrder(context.Background(), "", "uint256, bool", selector.Selector{}, big.NewInt(1))
	assert.Error(t, err)
	assert.Empty(t, client.sent)
}
