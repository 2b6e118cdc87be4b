package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/shopspring/decimal"
)

// Local is an in-process ledger. A single sequencer applies mutations in
// submission order, so two racing writes to the same account are decided
// by the version check of whichever comes second.
type Local struct {
	store       Store
	clock       *Clock
	signature   decimal.Decimal
	accountRent decimal.Decimal

	requests chan *request
	done     chan struct{}
}

type request struct {
	traceId string
	run     func() (*Confirmation, error)
	result  chan *outcome
}

type outcome struct {
	conf *Confirmation
	err  error
}

func NewLocal(store Store, conf *Configuration) (*Local, error) {
	clock, err := NewClock(store)
	if err != nil {
		return nil, err
	}
	return &Local{
		store:       store,
		clock:       clock,
		signature:   conf.SignatureFee(),
		accountRent: conf.AccountRentFee(),
		requests:    make(chan *request),
		done:        make(chan struct{}),
	}, nil
}

func (l *Local) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.requests:
			conf, err := req.run()
			req.result <- &outcome{conf: conf, err: err}
		}
	}
}

func (l *Local) SubmitMutation(ctx context.Context, m *Mutation, commitment Commitment) (*Confirmation, error) {
	if commitment == "" {
		commitment = CommitmentConfirmed
	}
	return l.submit(ctx, m.TraceId, func() (*Confirmation, error) {
		return l.apply(m, commitment)
	})
}

// Airdrop credits amount to addr through the sequencer.
func (l *Local) Airdrop(ctx context.Context, addr Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if !addr.Valid() {
		return decimal.Zero, fmt.Errorf("invalid address %s", addr)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid amount %s", amount)
	}
	var balance decimal.Decimal
	_, err := l.submit(ctx, "airdrop:"+addr.String(), func() (*Confirmation, error) {
		b, err := l.store.Credit(addr, amount)
		balance = b
		return nil, err
	})
	if err != nil {
		return decimal.Zero, err
	}
	logger.Verbosef("Local.Airdrop(%s, %s) => %s\n", addr, amount, balance)
	return balance, nil
}

func (l *Local) Balance(ctx context.Context, addr Address) (decimal.Decimal, error) {
	return l.store.ReadBalance(addr)
}

func (l *Local) ReadMutation(ctx context.Context, traceId string) (*Mutation, error) {
	return l.store.ReadMutation(traceId)
}

func (l *Local) ListMutations(ctx context.Context, state int, limit int) ([]*Mutation, error) {
	switch state {
	case MutationStatePending, MutationStateConfirmed, MutationStateRejected:
	default:
		return nil, fmt.Errorf("invalid mutation state %d", state)
	}
	return l.store.ListMutations(state, limit)
}

func (l *Local) ReadAccount(ctx context.Context, addr Address) (*Account, error) {
	return l.store.ReadAccount(addr)
}

func (l *Local) ListAccounts(ctx context.Context, q *Query) ([]*Account, error) {
	if q == nil || q.Kind == "" {
		return nil, fmt.Errorf("invalid query")
	}
	if q.Field != "" && q.Value == "" {
		return nil, fmt.Errorf("invalid query value for %s", q.Field)
	}
	return l.store.ListAccounts(q.Kind, q.Field, q.Value, q.Limit)
}

func (l *Local) submit(ctx context.Context, traceId string, run func() (*Confirmation, error)) (*Confirmation, error) {
	req := &request{
		traceId: traceId,
		run:     run,
		result:  make(chan *outcome, 1),
	}
	select {
	case l.requests <- req:
	case <-l.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("mutation %s not submitted: %w", traceId, ctx.Err())
	}

	select {
	case out := <-req.result:
		return out.conf, out.err
	case <-ctx.Done():
		return nil, &PendingError{TraceId: traceId, Err: ctx.Err()}
	}
}

func (l *Local) apply(m *Mutation, commitment Commitment) (*Confirmation, error) {
	old, err := l.store.ReadMutation(m.TraceId)
	if err != nil {
		return nil, err
	}
	if old != nil && old.State == MutationStateConfirmed {
		if !bytes.Equal(old.Digest, m.Message()) {
			logger.Printf("Local.apply(%s) => trace id reused at slot %d\n", m.TraceId, old.Slot)
			return nil, NewRejection(m.TraceId, RejectInvalidMutation, "trace id %s confirmed at slot %d with another message", m.TraceId, old.Slot)
		}
		logger.Verbosef("Local.apply(%s) => duplicated at slot %d\n", m.TraceId, old.Slot)
		return confirmationOf(old), nil
	}

	err = l.verify(m)
	if err != nil {
		return nil, l.reject(m, commitment, err)
	}

	rec := *m
	rec.Digest = m.Message()
	rec.State = MutationStatePending
	rec.Commitment = commitment
	rec.CreatedAt = l.clock.Now()
	rec.UpdatedAt = rec.CreatedAt
	err = l.store.WriteMutation(&rec)
	if err != nil {
		return nil, err
	}

	fee := l.signature.Mul(decimal.NewFromInt(int64(len(m.Signers))))
	for _, w := range m.Writes {
		if w.Create {
			fee = fee.Add(l.accountRent)
		}
	}

	rec.UpdatedAt = l.clock.Now()
	applied, err := l.store.ApplyMutation(&rec, fee)
	if err != nil {
		return nil, l.reject(m, commitment, err)
	}
	if commitment == CommitmentFinalized {
		err = l.store.Sync()
		if err != nil {
			return nil, err
		}
	}
	logger.Verbosef("Local.apply(%s) => slot %d fee %s\n", m.TraceId, applied.Slot, fee)
	return confirmationOf(applied), nil
}

func (l *Local) verify(m *Mutation) error {
	err := m.validate()
	if err != nil {
		return NewRejection(m.TraceId, RejectInvalidMutation, "%v", err)
	}
	msg := m.Message()
	for _, s := range m.Signers {
		sig := m.signature(s)
		if sig == nil {
			return NewRejection(m.TraceId, RejectMissingSignature, "%s", s)
		}
		if !Verify(s, msg, sig) {
			return NewRejection(m.TraceId, RejectInvalidSignature, "%s", s)
		}
	}
	return nil
}

func (l *Local) reject(m *Mutation, commitment Commitment, err error) error {
	var rej *Rejection
	if !errors.As(err, &rej) {
		return err
	}
	rec := *m
	rec.State = MutationStateRejected
	rec.Reason = string(rej.Reason)
	rec.Detail = rej.Detail
	rec.Commitment = commitment
	rec.CreatedAt = l.clock.Now()
	rec.UpdatedAt = rec.CreatedAt
	werr := l.store.WriteMutation(&rec)
	if werr != nil {
		return werr
	}
	logger.Printf("Local.apply(%s) => %s %s\n", m.TraceId, rej.Reason, rej.Detail)
	return rej
}

func confirmationOf(m *Mutation) *Confirmation {
	conf := &Confirmation{
		TraceId:    m.TraceId,
		Slot:       m.Slot,
		Commitment: m.Commitment,
	}
	for _, w := range m.Writes {
		conf.Accounts = append(conf.Accounts, w.Account.Copy())
	}
	return conf
}
