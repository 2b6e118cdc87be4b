package nft

import (
	"context"
	"fmt"

	"github.com/MixinNetwork/nfcore/ledger"
)

type Field string

const (
	FieldOwner      Field = fieldOwner
	FieldCollection Field = fieldCollection
)

// Clause matches assets whose Field equals Value.
type Clause struct {
	Field Field
	Value ledger.Address
}

func ByOwner(owner ledger.Address) Clause {
	return Clause{Field: FieldOwner, Value: owner}
}

func ByCollection(collection ledger.Address) Clause {
	return Clause{Field: FieldCollection, Value: collection}
}

// Filter is a conjunction of clauses. A zero Limit returns every match.
type Filter struct {
	Clauses []Clause
	Limit   int
}

func Where(clauses ...Clause) Filter {
	return Filter{Clauses: clauses}
}

func (f Filter) validate() error {
	if len(f.Clauses) == 0 {
		return &ValidationError{Field: "filter", Reason: "no clauses"}
	}
	if f.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: fmt.Sprint(f.Limit)}
	}
	for _, c := range f.Clauses {
		switch c.Field {
		case FieldOwner, FieldCollection:
		default:
			return &ValidationError{Field: "filter", Reason: fmt.Sprintf("unknown field %q", c.Field)}
		}
		if !c.Value.Valid() {
			return &ValidationError{Field: string(c.Field), Reason: fmt.Sprintf("invalid address %q", c.Value)}
		}
	}
	return nil
}

func (c Clause) match(a *Asset) bool {
	switch c.Field {
	case FieldOwner:
		return a.Owner == c.Value
	case FieldCollection:
		return a.Collection == c.Value
	}
	return false
}

// QueryIndex derives asset sets from the ledger on every call; nothing is
// retained between queries.
type QueryIndex struct {
	ledger ledger.Service
}

// Find scans the ledger index of the first clause and keeps the assets
// matching all the others.
func (qi *QueryIndex) Find(ctx context.Context, f Filter) ([]*Asset, error) {
	err := f.validate()
	if err != nil {
		return nil, err
	}
	first, rest := f.Clauses[0], f.Clauses[1:]
	q := &ledger.Query{Kind: KindAsset, Field: string(first.Field), Value: first.Value.String()}
	if len(rest) == 0 {
		q.Limit = f.Limit
	}
	accounts, err := qi.ledger.ListAccounts(ctx, q)
	if err != nil {
		return nil, err
	}

	var assets []*Asset
	for _, acc := range accounts {
		a, err := decodeAsset(acc)
		if err != nil {
			return nil, err
		}
		if !matchAll(rest, a) {
			continue
		}
		assets = append(assets, a)
		if len(assets) == f.Limit {
			break
		}
	}
	return assets, nil
}

func (qi *QueryIndex) FindByOwner(ctx context.Context, owner ledger.Address) ([]*Asset, error) {
	return qi.Find(ctx, Where(ByOwner(owner)))
}

func (qi *QueryIndex) FindByCollection(ctx context.Context, collection ledger.Address) ([]*Asset, error) {
	return qi.Find(ctx, Where(ByCollection(collection)))
}

func matchAll(clauses []Clause, a *Asset) bool {
	for _, c := range clauses {
		if !c.match(a) {
			return false
		}
	}
	return true
}
