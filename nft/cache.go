package nft

import (
	"context"
	"fmt"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfcore/ledger"
	gocache "github.com/patrickmn/go-cache"
)

// collectionCache keeps decoded collections for plugin lookups. Plugins
// are fixed at creation, so a cached entry is never wrong about them;
// Version and Circulation may lag and must be read from the ledger.
type collectionCache struct {
	ledger ledger.Service
	cache  *gocache.Cache
	ttl    time.Duration
}

func newCollectionCache(svc ledger.Service, ttl time.Duration) *collectionCache {
	return &collectionCache{
		ledger: svc,
		cache:  gocache.New(ttl, 3*ttl),
		ttl:    ttl,
	}
}

func (cc *collectionCache) Get(ctx context.Context, addr ledger.Address) (*Collection, error) {
	if val, found := cc.cache.Get(addr.String()); found {
		if c, ok := val.(*Collection); ok {
			logger.Verbosef("collectionCache.Get(%s) hit\n", addr)
			return c, nil
		}
		logger.Printf("collectionCache.Get(%s) wrong type %T\n", addr, val)
	}
	c, err := readCollection(ctx, cc.ledger, addr)
	if err != nil {
		return nil, err
	}
	cc.Set(c)
	return c, nil
}

func (cc *collectionCache) Set(c *Collection) {
	cc.cache.Set(c.Address.String(), c, cc.ttl)
}

func readCollection(ctx context.Context, svc ledger.Service, addr ledger.Address) (*Collection, error) {
	acc, err := svc.ReadAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("collection %s: %w", addr, ErrNotFound)
	}
	return decodeCollection(acc)
}

func readAsset(ctx context.Context, svc ledger.Service, addr ledger.Address) (*Asset, error) {
	acc, err := svc.ReadAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("asset %s: %w", addr, ErrNotFound)
	}
	return decodeAsset(acc)
}
