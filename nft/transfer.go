package nft

import (
	"context"
	"fmt"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/fox-one/mixin-sdk-go"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	Asset    *Asset
	NewOwner ledger.Address
	// Program executing the transfer, empty for a direct owner transfer.
	Program ledger.Address
}

type TransferEngine struct {
	submitter *submitter
	cache     *collectionCache
}

// Transfer moves the asset named by req.Asset to req.NewOwner. Only the
// address of req.Asset is used: ownership, the collection rule set and every
// other field come from the current ledger record, of which only Owner is
// rewritten. req.Asset itself is never modified.
func (te *TransferEngine) Transfer(ctx context.Context, authority ledger.Signer, req TransferRequest) (*Asset, error) {
	if req.Asset == nil {
		return nil, &ValidationError{Field: "asset", Reason: "missing"}
	}
	if !req.NewOwner.Valid() {
		return nil, &ValidationError{Field: "newOwner", Reason: fmt.Sprintf("invalid address %q", req.NewOwner)}
	}
	if req.Program != "" && !req.Program.Valid() {
		return nil, &ValidationError{Field: "program", Reason: fmt.Sprintf("invalid address %q", req.Program)}
	}

	a, err := readAsset(ctx, te.submitter.ledger, req.Asset.Address)
	if err != nil {
		return nil, operationFailed(ErrTransferFailed, "", err)
	}
	if authority.Address() != a.Owner {
		return nil, &AuthorizationError{
			Kind:     ErrUnauthorizedTransfer,
			Expected: a.Owner,
			Actual:   authority.Address(),
		}
	}

	coll, err := te.cache.Get(ctx, a.Collection)
	if err != nil {
		return nil, operationFailed(ErrTransferFailed, "", err)
	}
	if r := coll.Royalties(); r != nil && !r.RuleSet.Allows(req.Program) {
		return nil, &RuleSetViolationError{
			Asset:   a.Address,
			Program: req.Program,
			RuleSet: r.RuleSet.Kind,
		}
	}

	next := *a
	next.Owner = req.NewOwner
	traceId := transferTraceId(a, req.NewOwner)
	m := ledger.NewMutation(traceId, authority.Address(),
		&ledger.Write{Account: next.account(), Expect: a.Version},
	)
	conf, err := te.submitter.submit(ctx, m, authority)
	if err != nil {
		logger.Printf("TransferEngine.Transfer(%s, %s, %s) => %v\n", a.Address, a.Owner, req.NewOwner, err)
		return nil, operationFailed(ErrTransferFailed, traceId, err)
	}

	moved, err := decodeAsset(conf.Account(a.Address))
	if err != nil {
		panic(err)
	}
	logger.Verbosef("TransferEngine.Transfer(%s, %s, %s) => version %d\n", a.Address, a.Owner, moved.Owner, moved.Version)
	return moved, nil
}

// QuoteRoyalties returns the royalty fee and creator payouts owed when a
// sells for price. Collections without royalties owe nothing.
func (te *TransferEngine) QuoteRoyalties(ctx context.Context, a *Asset, price decimal.Decimal) (decimal.Decimal, []Payout, error) {
	if price.IsNegative() {
		return decimal.Zero, nil, &ValidationError{Field: "price", Reason: price.String()}
	}
	current, err := readAsset(ctx, te.submitter.ledger, a.Address)
	if err != nil {
		return decimal.Zero, nil, err
	}
	coll, err := te.cache.Get(ctx, current.Collection)
	if err != nil {
		return decimal.Zero, nil, err
	}
	r := coll.Royalties()
	if r == nil {
		return decimal.Zero, nil, nil
	}
	fee, payouts := r.Distribute(price)
	return fee, payouts, nil
}

// The same asset version moved to the same owner always yields the same
// trace id, so resubmitting after an unknown outcome cannot transfer twice.
func transferTraceId(a *Asset, newOwner ledger.Address) string {
	return mixin.UniqueConversationID(a.Address.String(), fmt.Sprintf("TRANSFER:%d:%s", a.Version, newOwner))
}
