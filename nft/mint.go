package nft

import (
	"context"
	"fmt"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfcore/ledger"
)

type MintRequest struct {
	Name       string
	URI        string
	Collection *Collection
	// Owner defaults to the payer, the principal initiating the mint.
	Owner ledger.Address
}

type AssetManager struct {
	submitter *submitter
	cache     *collectionCache
}

// MintAsset creates an asset in req.Collection. The authority must be the
// collection update authority, checked before the ledger is contacted.
// The mint also bumps the collection circulation, so it fails as stale
// when another mint into the same collection lands first.
func (am *AssetManager) MintAsset(ctx context.Context, payer, authority ledger.Signer, req MintRequest) (*Asset, error) {
	err := validateMetadata(req.Name, req.URI)
	if err != nil {
		return nil, err
	}
	if req.Collection == nil {
		return nil, &ValidationError{Field: "collection", Reason: "missing"}
	}
	if req.Owner != "" && !req.Owner.Valid() {
		return nil, &ValidationError{Field: "owner", Reason: fmt.Sprintf("invalid address %q", req.Owner)}
	}
	if authority.Address() != req.Collection.UpdateAuthority {
		return nil, &AuthorizationError{
			Kind:     ErrUnauthorizedMint,
			Expected: req.Collection.UpdateAuthority,
			Actual:   authority.Address(),
		}
	}

	current, err := readCollection(ctx, am.submitter.ledger, req.Collection.Address)
	if err != nil {
		return nil, operationFailed(ErrAssetCreationFailed, "", err)
	}
	if current.UpdateAuthority != authority.Address() {
		return nil, &AuthorizationError{
			Kind:     ErrUnauthorizedMint,
			Expected: current.UpdateAuthority,
			Actual:   authority.Address(),
		}
	}

	owner := req.Owner
	if owner == "" {
		owner = payer.Address()
	}
	a := &Asset{
		Address:    ledger.NewAddress(),
		Name:       req.Name,
		URI:        req.URI,
		Collection: current.Address,
		Owner:      owner,
	}
	expect := current.Version
	current.Circulation += 1

	m := ledger.NewMutation("", payer.Address(),
		&ledger.Write{Account: a.account(), Create: true},
		&ledger.Write{Account: current.account(), Expect: expect},
	)
	m.RequireSigner(authority.Address())
	conf, err := am.submitter.submit(ctx, m, payer, authority)
	if err != nil {
		logger.Printf("AssetManager.MintAsset(%s, %s) => %v\n", current.Address, a.Address, err)
		return nil, operationFailed(ErrAssetCreationFailed, m.TraceId, err)
	}

	minted, err := decodeAsset(conf.Account(a.Address))
	if err != nil {
		panic(err)
	}
	coll, err := decodeCollection(conf.Account(current.Address))
	if err != nil {
		panic(err)
	}
	am.cache.Set(coll)
	logger.Verbosef("AssetManager.MintAsset(%s, %s) => owner %s circulation %d\n", coll.Address, minted.Address, minted.Owner, coll.Circulation)
	return minted, nil
}
