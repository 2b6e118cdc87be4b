package nft

import (
	"fmt"
	"sort"

	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfcore/ledger"
)

const (
	KindCollection = "collection"
	KindAsset      = "asset"

	fieldOwner           = "owner"
	fieldCollection      = "collection"
	fieldUpdateAuthority = "update_authority"
)

type Collection struct {
	Address         ledger.Address
	Name            string
	URI             string
	UpdateAuthority ledger.Address
	Plugins         map[PluginType]Plugin
	Circulation     int

	Version uint64
	Slot    uint64
}

func (c *Collection) Plugin(t PluginType) (Plugin, bool) {
	p, found := c.Plugins[t]
	return p, found
}

func (c *Collection) Royalties() *Royalties {
	p, found := c.Plugin(PluginRoyalties)
	if !found {
		return nil
	}
	return p.Royalties
}

type Asset struct {
	Address    ledger.Address
	Name       string
	URI        string
	Collection ledger.Address
	Owner      ledger.Address

	Version uint64
	Slot    uint64
}

type collectionData struct {
	Name            string
	URI             string
	UpdateAuthority ledger.Address
	Plugins         []Plugin
	Circulation     int
}

type assetData struct {
	Name       string
	URI        string
	Collection ledger.Address
	Owner      ledger.Address
}

func (c *Collection) account() *ledger.Account {
	data := &collectionData{
		Name:            c.Name,
		URI:             c.URI,
		UpdateAuthority: c.UpdateAuthority,
		Circulation:     c.Circulation,
	}
	for _, p := range c.Plugins {
		data.Plugins = append(data.Plugins, p)
	}
	sort.Slice(data.Plugins, func(i, j int) bool {
		return data.Plugins[i].Type < data.Plugins[j].Type
	})
	return &ledger.Account{
		Address:   c.Address,
		Kind:      KindCollection,
		Authority: c.UpdateAuthority,
		Data:      common.MsgpackMarshalPanic(data),
		Indexes: []ledger.Index{
			{Field: fieldUpdateAuthority, Value: c.UpdateAuthority.String()},
		},
	}
}

func (a *Asset) account() *ledger.Account {
	data := &assetData{
		Name:       a.Name,
		URI:        a.URI,
		Collection: a.Collection,
		Owner:      a.Owner,
	}
	return &ledger.Account{
		Address:   a.Address,
		Kind:      KindAsset,
		Authority: a.Owner,
		Data:      common.MsgpackMarshalPanic(data),
		Indexes: []ledger.Index{
			{Field: fieldCollection, Value: a.Collection.String()},
			{Field: fieldOwner, Value: a.Owner.String()},
		},
	}
}

func decodeCollection(acc *ledger.Account) (*Collection, error) {
	if acc.Kind != KindCollection {
		return nil, fmt.Errorf("account %s is %s not %s", acc.Address, acc.Kind, KindCollection)
	}
	var data collectionData
	err := common.MsgpackUnmarshal(acc.Data, &data)
	if err != nil {
		return nil, fmt.Errorf("collection %s decode: %w", acc.Address, err)
	}
	c := &Collection{
		Address:         acc.Address,
		Name:            data.Name,
		URI:             data.URI,
		UpdateAuthority: data.UpdateAuthority,
		Plugins:         make(map[PluginType]Plugin, len(data.Plugins)),
		Circulation:     data.Circulation,
		Version:         acc.Version,
		Slot:            acc.Slot,
	}
	for _, p := range data.Plugins {
		c.Plugins[p.Type] = p
	}
	return c, nil
}

func decodeAsset(acc *ledger.Account) (*Asset, error) {
	if acc.Kind != KindAsset {
		return nil, fmt.Errorf("account %s is %s not %s", acc.Address, acc.Kind, KindAsset)
	}
	var data assetData
	err := common.MsgpackUnmarshal(acc.Data, &data)
	if err != nil {
		return nil, fmt.Errorf("asset %s decode: %w", acc.Address, err)
	}
	return &Asset{
		Address:    acc.Address,
		Name:       data.Name,
		URI:        data.URI,
		Collection: data.Collection,
		Owner:      data.Owner,
		Version:    acc.Version,
		Slot:       acc.Slot,
	}, nil
}
