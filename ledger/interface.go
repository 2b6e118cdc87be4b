package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service is the ledger contract the asset core consumes. Every mutation
// is applied atomically or rejected as a whole.
type Service interface {
	SubmitMutation(ctx context.Context, m *Mutation, commitment Commitment) (*Confirmation, error)
	ReadMutation(ctx context.Context, traceId string) (*Mutation, error)
	ReadAccount(ctx context.Context, addr Address) (*Account, error)
	ListAccounts(ctx context.Context, q *Query) ([]*Account, error)
}

// Query selects accounts of Kind, optionally by an indexed Field value.
type Query struct {
	Kind  string
	Field string
	Value string
	Limit int
}

type Store interface {
	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)

	ReadAccount(addr Address) (*Account, error)
	ListAccounts(kind, field, value string, limit int) ([]*Account, error)

	ApplyMutation(m *Mutation, fee decimal.Decimal) (*Mutation, error)
	WriteMutation(m *Mutation) error
	ReadMutation(traceId string) (*Mutation, error)
	ListMutations(state int, limit int) ([]*Mutation, error)

	ReadBalance(addr Address) (decimal.Decimal, error)
	Credit(addr Address, amount decimal.Decimal) (decimal.Decimal, error)

	Sync() error
}
