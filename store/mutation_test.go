package store

import (
	"testing"
	"time"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMutationStateTransition(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)
	payer := testKeypair(t)

	acc := testAccount(payer.Address(), "g1")
	m := signedMutation(payer, &ledger.Write{Account: acc, Create: true})
	rejected := *m
	rejected.State = ledger.MutationStateRejected
	rejected.Reason = string(ledger.RejectInsufficientFunds)
	err := bs.WriteMutation(&rejected)
	require.NoError(err)

	old, err := bs.ReadMutation(m.TraceId)
	require.NoError(err)
	require.Equal(ledger.MutationStateRejected, old.State)
	ms, err := bs.ListMutations(ledger.MutationStateRejected, 10)
	require.NoError(err)
	require.Len(ms, 1)

	m.UpdatedAt = time.Now()
	_, err = bs.ApplyMutation(m, decimal.Zero)
	require.NoError(err)

	ms, err = bs.ListMutations(ledger.MutationStateRejected, 10)
	require.NoError(err)
	require.Len(ms, 0)
	ms, err = bs.ListMutations(ledger.MutationStateConfirmed, 10)
	require.NoError(err)
	require.Len(ms, 1)
	require.Equal(m.TraceId, ms[0].TraceId)
	require.Equal("", ms[0].Reason)

	missing, err := bs.ReadMutation("2c5f3c2e-3d3b-4e8e-9a52-5a3f0f6bd4a1")
	require.NoError(err)
	require.Nil(missing)

	require.Panics(func() {
		bs.WriteMutation(&rejected)
	})
}

func TestBalanceCredit(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)
	addr := testKeypair(t).Address()

	balance, err := bs.ReadBalance(addr)
	require.NoError(err)
	require.True(balance.IsZero())

	balance, err = bs.Credit(addr, decimal.NewFromFloat(1.5))
	require.NoError(err)
	require.Equal("1.5", balance.String())
	balance, err = bs.Credit(addr, decimal.NewFromInt(2))
	require.NoError(err)
	require.Equal("3.5", balance.String())

	balance, err = bs.ReadBalance(addr)
	require.NoError(err)
	require.Equal("3.5", balance.String())
}

func TestProperty(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)

	val, err := bs.ReadProperty([]byte("missing"))
	require.NoError(err)
	require.Nil(val)

	err = bs.WriteProperty([]byte("key"), []byte("value"))
	require.NoError(err)
	val, err = bs.ReadProperty([]byte("key"))
	require.NoError(err)
	require.Equal([]byte("value"), val)
	require.NoError(bs.Sync())
}
