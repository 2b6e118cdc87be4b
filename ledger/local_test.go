package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/MixinNetwork/nfcore/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testLedger struct {
	*ledger.Local
	store  *store.BadgerStore
	cancel context.CancelFunc
	exited chan struct{}
}

func (tl *testLedger) stop() {
	tl.cancel()
	<-tl.exited
}

func setupTestLedger(t *testing.T, wrap func(ledger.Store) ledger.Store) *testLedger {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	bs, err := store.OpenBadgerInMemory(ctx)
	require.NoError(t, err)

	var s ledger.Store = bs
	if wrap != nil {
		s = wrap(bs)
	}
	local, err := ledger.NewLocal(s, ledger.DefaultConfiguration())
	require.NoError(t, err)

	tl := &testLedger{Local: local, store: bs, cancel: cancel, exited: make(chan struct{})}
	go func() {
		local.Run(ctx)
		close(tl.exited)
	}()
	t.Cleanup(func() {
		tl.stop()
		bs.Close()
	})
	return tl
}

func newFundedKeypair(t *testing.T, tl *testLedger) *ledger.Keypair {
	t.Helper()
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	_, err = tl.Airdrop(context.Background(), kp.Address(), decimal.NewFromInt(1))
	require.NoError(t, err)
	return kp
}

func newAccount(owner ledger.Address) *ledger.Account {
	return &ledger.Account{
		Address:   ledger.NewAddress(),
		Kind:      "asset",
		Authority: owner,
		Data:      []byte{1},
		Indexes:   []ledger.Index{{Field: "owner", Value: owner.String()}},
	}
}

func TestLocalSubmitMutation(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tl := setupTestLedger(t, nil)
	payer := newFundedKeypair(t, tl)

	acc := newAccount(payer.Address())
	m := ledger.NewMutation("", payer.Address(), &ledger.Write{Account: acc, Create: true})
	m.Sign(payer)
	conf, err := tl.SubmitMutation(ctx, m, "")
	require.NoError(err)
	require.Equal(m.TraceId, conf.TraceId)
	require.Equal(ledger.CommitmentConfirmed, conf.Commitment)
	require.Equal(uint64(1), conf.Account(acc.Address).Version)
	require.Nil(conf.Account(ledger.NewAddress()))

	balance, err := tl.Balance(ctx, payer.Address())
	require.NoError(err)
	require.Equal("0.998495", balance.String())

	again, err := tl.SubmitMutation(ctx, m, ledger.CommitmentFinalized)
	require.NoError(err)
	require.Equal(conf.Slot, again.Slot)
	balance, err = tl.Balance(ctx, payer.Address())
	require.NoError(err)
	require.Equal("0.998495", balance.String())

	rec, err := tl.ReadMutation(ctx, m.TraceId)
	require.NoError(err)
	require.Equal(ledger.MutationStateConfirmed, rec.State)
	require.False(rec.CreatedAt.IsZero())

	accounts, err := tl.ListAccounts(ctx, &ledger.Query{Kind: "asset", Field: "owner", Value: payer.Address().String()})
	require.NoError(err)
	require.Len(accounts, 1)
	_, err = tl.ListAccounts(ctx, &ledger.Query{Field: "owner"})
	require.Error(err)
	_, err = tl.ListAccounts(ctx, &ledger.Query{Kind: "asset", Field: "owner"})
	require.Error(err)

	ms, err := tl.ListMutations(ctx, ledger.MutationStateConfirmed, 0)
	require.NoError(err)
	require.Len(ms, 1)
	_, err = tl.ListMutations(ctx, 99, 0)
	require.Error(err)
}

func TestLocalRejections(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tl := setupTestLedger(t, nil)
	payer := newFundedKeypair(t, tl)
	other, err := ledger.NewKeypair()
	require.NoError(err)

	m := ledger.NewMutation("", payer.Address(), &ledger.Write{Account: newAccount(payer.Address()), Create: true})
	_, err = tl.SubmitMutation(ctx, m, "")
	var rej *ledger.Rejection
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectMissingSignature, rej.Reason)
	rec, err := tl.ReadMutation(ctx, m.TraceId)
	require.NoError(err)
	require.Equal(ledger.MutationStateRejected, rec.State)
	require.Equal(string(ledger.RejectMissingSignature), rec.Reason)

	m.Sign(payer)
	m.Writes[0].Account.Data = []byte("tampered")
	_, err = tl.SubmitMutation(ctx, m, "")
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectInvalidSignature, rej.Reason)

	m = ledger.NewMutation("", other.Address(), &ledger.Write{Account: newAccount(other.Address()), Create: true})
	m.Sign(other)
	_, err = tl.SubmitMutation(ctx, m, "")
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectInsufficientFunds, rej.Reason)

	// a rejected trace id is evaluated again once the cause is gone
	_, err = tl.Airdrop(ctx, other.Address(), decimal.NewFromInt(1))
	require.NoError(err)
	conf, err := tl.SubmitMutation(ctx, m, "")
	require.NoError(err)
	require.Equal(m.TraceId, conf.TraceId)
	rec, err = tl.ReadMutation(ctx, m.TraceId)
	require.NoError(err)
	require.Equal(ledger.MutationStateConfirmed, rec.State)

	bad := ledger.NewMutation("not-a-uuid", payer.Address(), &ledger.Write{Account: newAccount(payer.Address()), Create: true})
	bad.Sign(payer)
	_, err = tl.SubmitMutation(ctx, bad, "")
	require.True(errors.As(err, &rej))
	require.Equal(ledger.RejectInvalidMutation, rej.Reason)

	_, err = tl.Airdrop(ctx, payer.Address(), decimal.NewFromInt(-1))
	require.Error(err)
	_, err = tl.Airdrop(ctx, "", decimal.NewFromInt(1))
	require.Error(err)
}

func TestLocalRacingWrites(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tl := setupTestLedger(t, nil)
	owner := newFundedKeypair(t, tl)

	acc := newAccount(owner.Address())
	m := ledger.NewMutation("", owner.Address(), &ledger.Write{Account: acc, Create: true})
	m.Sign(owner)
	_, err := tl.SubmitMutation(ctx, m, "")
	require.NoError(err)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		next := acc.Copy()
		next.Data = []byte{byte(i + 2)}
		m := ledger.NewMutation("", owner.Address(), &ledger.Write{Account: next, Expect: 1})
		m.Sign(owner)
		go func() {
			_, err := tl.SubmitMutation(ctx, m, "")
			results <- err
		}()
	}

	var confirmed, stale int
	for i := 0; i < 2; i++ {
		err := <-results
		var rej *ledger.Rejection
		switch {
		case err == nil:
			confirmed++
		case errors.As(err, &rej) && rej.Reason == ledger.RejectStaleAccount:
			stale++
		default:
			require.NoError(err)
		}
	}
	require.Equal(1, confirmed)
	require.Equal(1, stale)

	stored, err := tl.ReadAccount(ctx, acc.Address)
	require.NoError(err)
	require.Equal(uint64(2), stored.Version)
}

func TestLocalTraceIdReuse(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tl := setupTestLedger(t, nil)
	payer := newFundedKeypair(t, tl)

	acc := newAccount(payer.Address())
	m := ledger.NewMutation("", payer.Address(), &ledger.Write{Account: acc, Create: true})
	m.Sign(payer)
	conf, err := tl.SubmitMutation(ctx, m, "")
	require.NoError(err)
	balance, err := tl.Balance(ctx, payer.Address())
	require.NoError(err)

	next := acc.Copy()
	next.Data = []byte("other")
	reused := ledger.NewMutation(m.TraceId, payer.Address(), &ledger.Write{Account: next, Expect: 1})
	reused.Sign(payer)
	_, err = tl.SubmitMutation(ctx, reused, "")
	var rej *ledger.Rejection
	require.True(errors.As(err, &rej), err)
	require.Equal(ledger.RejectInvalidMutation, rej.Reason)
	require.Equal(m.TraceId, rej.TraceId)

	rec, err := tl.ReadMutation(ctx, m.TraceId)
	require.NoError(err)
	require.Equal(ledger.MutationStateConfirmed, rec.State)
	require.Equal(conf.Slot, rec.Slot)
	require.Equal(m.Message(), rec.Digest)
	stored, err := tl.ReadAccount(ctx, acc.Address)
	require.NoError(err)
	require.Equal(uint64(1), stored.Version)
	require.Equal([]byte{1}, stored.Data)
	after, err := tl.Balance(ctx, payer.Address())
	require.NoError(err)
	require.True(balance.Equal(after))

	again, err := tl.SubmitMutation(ctx, m, "")
	require.NoError(err)
	require.Equal(conf.Slot, again.Slot)
}

type blockingStore struct {
	ledger.Store
	release chan struct{}
}

func (bs *blockingStore) ApplyMutation(m *ledger.Mutation, fee decimal.Decimal) (*ledger.Mutation, error) {
	<-bs.release
	return bs.Store.ApplyMutation(m, fee)
}

func TestLocalPendingOutcome(t *testing.T) {
	require := require.New(t)
	release := make(chan struct{})
	tl := setupTestLedger(t, func(s ledger.Store) ledger.Store {
		return &blockingStore{Store: s, release: release}
	})
	payer, err := ledger.NewKeypair()
	require.NoError(err)
	_, err = tl.store.Credit(payer.Address(), decimal.NewFromInt(1))
	require.NoError(err)

	m := ledger.NewMutation("", payer.Address(), &ledger.Write{Account: newAccount(payer.Address()), Create: true})
	m.Sign(payer)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tl.SubmitMutation(ctx, m, "")
	var pending *ledger.PendingError
	require.True(errors.As(err, &pending), err)
	require.Equal(m.TraceId, pending.TraceId)
	require.ErrorIs(err, context.DeadlineExceeded)

	require.Eventually(func() bool {
		rec, err := tl.ReadMutation(context.Background(), m.TraceId)
		return err == nil && rec != nil && rec.State == ledger.MutationStatePending
	}, 5*time.Second, 10*time.Millisecond)
	rec, err := tl.ReadMutation(context.Background(), m.TraceId)
	require.NoError(err)
	require.Equal("pending", rec.StateName())
	ms, err := tl.ListMutations(context.Background(), ledger.MutationStatePending, 0)
	require.NoError(err)
	require.Len(ms, 1)
	require.Equal(m.TraceId, ms[0].TraceId)

	close(release)
	require.Eventually(func() bool {
		rec, err := tl.ReadMutation(context.Background(), m.TraceId)
		return err == nil && rec != nil && rec.State == ledger.MutationStateConfirmed
	}, 5*time.Second, 10*time.Millisecond)
	ms, err = tl.ListMutations(context.Background(), ledger.MutationStatePending, 0)
	require.NoError(err)
	require.Len(ms, 0)
	ms, err = tl.ListMutations(context.Background(), ledger.MutationStateConfirmed, 0)
	require.NoError(err)
	require.Len(ms, 1)

	conf, err := tl.SubmitMutation(context.Background(), m, "")
	require.NoError(err)
	require.Equal(m.TraceId, conf.TraceId)
	accounts, err := tl.ListAccounts(context.Background(), &ledger.Query{Kind: "asset"})
	require.NoError(err)
	require.Len(accounts, 1)
}

func TestLocalNotSubmitted(t *testing.T) {
	require := require.New(t)
	tl := setupTestLedger(t, nil)
	payer := newFundedKeypair(t, tl)
	tl.stop()

	m := ledger.NewMutation("", payer.Address(), &ledger.Write{Account: newAccount(payer.Address()), Create: true})
	m.Sign(payer)
	_, err := tl.SubmitMutation(context.Background(), m, "")
	require.ErrorIs(err, ledger.ErrClosed)

	rec, err := tl.ReadMutation(context.Background(), m.TraceId)
	require.NoError(err)
	require.Nil(rec)
}

func TestClockMonotonic(t *testing.T) {
	require := require.New(t)
	bs, err := store.OpenBadgerInMemory(context.Background())
	require.NoError(err)
	defer bs.Close()

	clock, err := ledger.NewClock(bs)
	require.NoError(err)
	last := clock.Now()
	for i := 0; i < 100; i++ {
		now := clock.Now()
		require.True(now.After(last))
		last = now
	}

	restarted, err := ledger.NewClock(bs)
	require.NoError(err)
	require.True(restarted.Now().After(last))
}
