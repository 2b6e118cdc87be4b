package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	bs, err := OpenBadgerInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		bs.Close()
	})
	return bs
}

func testKeypair(t *testing.T) *ledger.Keypair {
	t.Helper()
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	return kp
}

func testAccount(owner ledger.Address, group string) *ledger.Account {
	return &ledger.Account{
		Address:   ledger.NewAddress(),
		Kind:      "asset",
		Authority: owner,
		Data:      []byte("payload"),
		Indexes: []ledger.Index{
			{Field: "collection", Value: group},
			{Field: "owner", Value: owner.String()},
		},
	}
}

func signedMutation(payer *ledger.Keypair, writes ...*ledger.Write) *ledger.Mutation {
	m := ledger.NewMutation("", payer.Address(), writes...)
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	m.Sign(payer)
	return m
}

func TestApplyMutationCreate(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)
	payer := testKeypair(t)

	_, err := bs.Credit(payer.Address(), decimal.NewFromInt(1))
	require.NoError(err)

	acc := testAccount(payer.Address(), "g1")
	m := signedMutation(payer, &ledger.Write{Account: acc, Create: true})
	rec, err := bs.ApplyMutation(m, decimal.NewFromFloat(0.25))
	require.NoError(err)
	require.Equal(ledger.MutationStateConfirmed, rec.State)
	require.Equal(uint64(1), rec.Slot)
	require.Equal(uint64(1), rec.Writes[0].Account.Version)

	stored, err := bs.ReadAccount(acc.Address)
	require.NoError(err)
	require.NotNil(stored)
	require.Equal(uint64(1), stored.Version)
	require.Equal(uint64(1), stored.Slot)
	require.Equal([]byte("payload"), stored.Data)

	balance, err := bs.ReadBalance(payer.Address())
	require.NoError(err)
	require.True(decimal.NewFromFloat(0.75).Equal(balance), balance.String())

	old, err := bs.ReadMutation(m.TraceId)
	require.NoError(err)
	require.Equal(ledger.MutationStateConfirmed, old.State)

	confirmed, err := bs.ListMutations(ledger.MutationStateConfirmed, 10)
	require.NoError(err)
	require.Len(confirmed, 1)
	require.Equal(m.TraceId, confirmed[0].TraceId)
}

func TestApplyMutationRejections(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)
	payer := testKeypair(t)
	other := testKeypair(t)

	acc := testAccount(payer.Address(), "g1")
	m := signedMutation(payer, &ledger.Write{Account: acc, Create: true})
	_, err := bs.ApplyMutation(m, decimal.NewFromInt(1))
	var rej *ledger.Rejection
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectInsufficientFunds, rej.Reason)
	stored, err := bs.ReadAccount(acc.Address)
	require.NoError(err)
	require.Nil(stored)

	_, err = bs.ApplyMutation(m, decimal.Zero)
	require.NoError(err)

	dup := signedMutation(payer, &ledger.Write{Account: acc, Create: true})
	_, err = bs.ApplyMutation(dup, decimal.Zero)
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectAccountExists, rej.Reason)

	stale := acc.Copy()
	stale.Data = []byte("stale")
	m = signedMutation(payer, &ledger.Write{Account: stale, Expect: 7})
	_, err = bs.ApplyMutation(m, decimal.Zero)
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectStaleAccount, rej.Reason)

	m = signedMutation(other, &ledger.Write{Account: stale, Expect: 1})
	_, err = bs.ApplyMutation(m, decimal.Zero)
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectUnauthorizedWrite, rej.Reason)

	missing := testAccount(payer.Address(), "g1")
	m = signedMutation(payer, &ledger.Write{Account: missing, Expect: 1})
	_, err = bs.ApplyMutation(m, decimal.Zero)
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectAccountNotFound, rej.Reason)

	stored, err = bs.ReadAccount(acc.Address)
	require.NoError(err)
	require.Equal([]byte("payload"), stored.Data)
	require.Equal(uint64(1), stored.Version)
}

func TestApplyMutationAtomic(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)
	payer := testKeypair(t)

	acc := testAccount(payer.Address(), "g1")
	_, err := bs.ApplyMutation(signedMutation(payer, &ledger.Write{Account: acc, Create: true}), decimal.Zero)
	require.NoError(err)

	fresh := testAccount(payer.Address(), "g1")
	update := acc.Copy()
	update.Data = []byte("changed")
	m := signedMutation(payer,
		&ledger.Write{Account: fresh, Create: true},
		&ledger.Write{Account: update, Expect: 5},
	)
	_, err = bs.ApplyMutation(m, decimal.Zero)
	require.Error(err)

	stored, err := bs.ReadAccount(fresh.Address)
	require.NoError(err)
	require.Nil(stored)
	accounts, err := bs.ListAccounts("asset", "", "", 0)
	require.NoError(err)
	require.Len(accounts, 1)
}

func TestListAccountsByIndex(t *testing.T) {
	require := require.New(t)
	bs := openTestStore(t)
	alice := testKeypair(t)
	bob := testKeypair(t)

	var accs []*ledger.Account
	for i := 0; i < 3; i++ {
		acc := testAccount(alice.Address(), "g1")
		_, err := bs.ApplyMutation(signedMutation(alice, &ledger.Write{Account: acc, Create: true}), decimal.Zero)
		require.NoError(err)
		accs = append(accs, acc)
	}
	acc := testAccount(bob.Address(), "g2")
	_, err := bs.ApplyMutation(signedMutation(bob, &ledger.Write{Account: acc, Create: true}), decimal.Zero)
	require.NoError(err)

	owned, err := bs.ListAccounts("asset", "owner", alice.Address().String(), 0)
	require.NoError(err)
	require.Len(owned, 3)
	for i, a := range owned {
		require.Equal(accs[i].Address, a.Address)
	}
	limited, err := bs.ListAccounts("asset", "owner", alice.Address().String(), 2)
	require.NoError(err)
	require.Len(limited, 2)

	grouped, err := bs.ListAccounts("asset", "collection", "g2", 0)
	require.NoError(err)
	require.Len(grouped, 1)
	require.Equal(acc.Address, grouped[0].Address)

	// move the first account from alice to bob, the indexes follow
	moved := accs[0].Copy()
	moved.Authority = bob.Address()
	moved.Indexes = []ledger.Index{
		{Field: "collection", Value: "g1"},
		{Field: "owner", Value: bob.Address().String()},
	}
	_, err = bs.ApplyMutation(signedMutation(alice, &ledger.Write{Account: moved, Expect: 1}), decimal.Zero)
	require.NoError(err)

	owned, err = bs.ListAccounts("asset", "owner", alice.Address().String(), 0)
	require.NoError(err)
	require.Len(owned, 2)
	owned, err = bs.ListAccounts("asset", "owner", bob.Address().String(), 0)
	require.NoError(err)
	require.Len(owned, 2)
	all, err := bs.ListAccounts("asset", "", "", 0)
	require.NoError(err)
	require.Len(all, 4)
	require.Equal(moved.Address, all[3].Address)
	require.Equal(uint64(2), all[3].Version)

	none, err := bs.ListAccounts("collection", "", "", 0)
	require.NoError(err)
	require.Len(none, 0)
}
