package nft

import (
	"context"
	"fmt"
	"strings"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfcore/ledger"
)

type CollectionRequest struct {
	Name            string
	URI             string
	UpdateAuthority ledger.Address
	Plugins         []Plugin
}

type CollectionManager struct {
	submitter *submitter
	registry  *Registry
	cache     *collectionCache
}

// CreateCollection validates every plugin, then submits the new collection
// paid by payer. The collection exists only if the ledger confirms it.
func (cm *CollectionManager) CreateCollection(ctx context.Context, payer ledger.Signer, req CollectionRequest) (*Collection, error) {
	err := validateMetadata(req.Name, req.URI)
	if err != nil {
		return nil, err
	}
	if !req.UpdateAuthority.Valid() {
		return nil, &ValidationError{Field: "updateAuthority", Reason: fmt.Sprintf("invalid address %q", req.UpdateAuthority)}
	}
	plugins, err := cm.registry.ValidateAll(req.Plugins)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		Address:         ledger.NewAddress(),
		Name:            req.Name,
		URI:             req.URI,
		UpdateAuthority: req.UpdateAuthority,
		Plugins:         plugins,
	}
	m := ledger.NewMutation("", payer.Address(), &ledger.Write{Account: c.account(), Create: true})
	conf, err := cm.submitter.submit(ctx, m, payer)
	if err != nil {
		logger.Printf("CollectionManager.CreateCollection(%s) => %v\n", c.Address, err)
		return nil, operationFailed(ErrCollectionCreationFailed, m.TraceId, err)
	}

	acc := conf.Account(c.Address)
	if acc == nil {
		panic(c.Address)
	}
	created, err := decodeCollection(acc)
	if err != nil {
		panic(err)
	}
	cm.cache.Set(created)
	logger.Verbosef("CollectionManager.CreateCollection(%s, %s) => slot %d\n", created.Name, created.Address, conf.Slot)
	return created, nil
}

func validateMetadata(name, uri string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "empty"}
	}
	if strings.TrimSpace(uri) == "" {
		return &ValidationError{Field: "uri", Reason: "empty"}
	}
	return nil
}
