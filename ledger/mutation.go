package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/mixin/crypto"
	"github.com/gofrs/uuid"
)

const (
	MutationStatePending   = 10
	MutationStateConfirmed = 11
	MutationStateRejected  = 12
)

type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func ParseCommitment(s string) (Commitment, error) {
	switch c := Commitment(strings.ToLower(strings.TrimSpace(s))); c {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return c, nil
	case "":
		return CommitmentConfirmed, nil
	}
	return "", fmt.Errorf("invalid commitment %s", s)
}

type Index struct {
	Field string
	Value string
}

type Account struct {
	Address   Address
	Kind      string
	Authority Address
	Data      []byte
	Indexes   []Index
	Version   uint64
	Slot      uint64
	UpdatedAt time.Time
}

func (a *Account) Index(field string) string {
	for _, i := range a.Indexes {
		if i.Field == field {
			return i.Value
		}
	}
	return ""
}

func (a *Account) Copy() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	c.Indexes = append([]Index(nil), a.Indexes...)
	return &c
}

// Write creates an account when Create is set, otherwise it replaces
// the account whose current version equals Expect.
type Write struct {
	Account *Account
	Create  bool
	Expect  uint64
}

type Signature struct {
	Signer Address
	Sig    []byte
}

type Mutation struct {
	TraceId    string
	Payer      Address
	Signers    []Address
	Writes     []*Write
	Signatures []Signature

	Digest     []byte
	State      int
	Reason     string
	Detail     string
	Slot       uint64
	Commitment Commitment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type mutationBody struct {
	T string
	P Address
	S []Address
	W []*Write
}

func NewMutation(traceId string, payer Address, writes ...*Write) *Mutation {
	if traceId == "" {
		traceId = uuid.Must(uuid.NewV4()).String()
	}
	for _, w := range writes {
		sort.Slice(w.Account.Indexes, func(i, j int) bool {
			return w.Account.Indexes[i].Field < w.Account.Indexes[j].Field
		})
	}
	return &Mutation{
		TraceId: traceId,
		Payer:   payer,
		Signers: []Address{payer},
		Writes:  writes,
		State:   MutationStatePending,
	}
}

// RequireSigner adds addr to the signers the ledger checks, keeping
// the payer first.
func (m *Mutation) RequireSigner(addr Address) {
	for _, s := range m.Signers {
		if s == addr {
			return
		}
	}
	m.Signers = append(m.Signers, addr)
}

func (m *Mutation) Message() []byte {
	body := &mutationBody{T: m.TraceId, P: m.Payer, S: m.Signers, W: m.Writes}
	h := crypto.NewHash(common.MsgpackMarshalPanic(body))
	return h[:]
}

// Sign appends signatures of every signer that is a required signer of m.
func (m *Mutation) Sign(signers ...Signer) {
	msg := m.Message()
	for _, s := range signers {
		addr := s.Address()
		if !m.requires(addr) || m.signature(addr) != nil {
			continue
		}
		m.Signatures = append(m.Signatures, Signature{Signer: addr, Sig: s.Sign(msg)})
	}
}

// Authorized reports whether addr is a required signer that signed m.
// Signatures of required signers are verified before any write is applied.
func (m *Mutation) Authorized(addr Address) bool {
	return m.requires(addr) && m.signature(addr) != nil
}

func ParseMutationState(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return MutationStatePending, nil
	case "confirmed":
		return MutationStateConfirmed, nil
	case "rejected":
		return MutationStateRejected, nil
	}
	return 0, fmt.Errorf("invalid mutation state %s", s)
}

func (m *Mutation) StateName() string {
	switch m.State {
	case MutationStatePending:
		return "pending"
	case MutationStateConfirmed:
		return "confirmed"
	case MutationStateRejected:
		return "rejected"
	}
	panic(m.State)
}

func (m *Mutation) validate() error {
	if _, err := uuid.FromString(m.TraceId); err != nil {
		return fmt.Errorf("invalid trace id %s", m.TraceId)
	}
	if !m.Payer.Valid() {
		return fmt.Errorf("invalid payer %s", m.Payer)
	}
	if len(m.Writes) == 0 {
		return fmt.Errorf("empty writes")
	}
	seen := make(map[Address]bool)
	for _, w := range m.Writes {
		if w == nil || w.Account == nil {
			return fmt.Errorf("empty write")
		}
		a := w.Account
		if !a.Address.Valid() || a.Kind == "" {
			return fmt.Errorf("invalid account %s %s", a.Address, a.Kind)
		}
		if seen[a.Address] {
			return fmt.Errorf("duplicated account %s", a.Address)
		}
		seen[a.Address] = true
	}
	return nil
}

func (m *Mutation) requires(addr Address) bool {
	for _, s := range m.Signers {
		if s == addr {
			return true
		}
	}
	return false
}

func (m *Mutation) signature(addr Address) []byte {
	for _, s := range m.Signatures {
		if s.Signer == addr {
			return s.Sig
		}
	}
	return nil
}

type Confirmation struct {
	TraceId    string
	Slot       uint64
	Commitment Commitment
	Accounts   []*Account
}

func (c *Confirmation) Account(addr Address) *Account {
	for _, a := range c.Accounts {
		if a.Address == addr {
			return a
		}
	}
	return nil
}
