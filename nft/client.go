package nft

import (
	"context"
	"time"

	"github.com/MixinNetwork/nfcore/ledger"
)

type MutationStatus string

const (
	MutationStatusUnknown   MutationStatus = "unknown"
	MutationStatusPending   MutationStatus = "pending"
	MutationStatusConfirmed MutationStatus = "confirmed"
	MutationStatusRejected  MutationStatus = "rejected"
)

type Options struct {
	Commitment ledger.Commitment
	Timeout    time.Duration
	CacheTTL   time.Duration
	Registry   *Registry
}

func OptionsFromConfiguration(conf *ledger.Configuration) Options {
	return Options{
		Commitment: conf.Commitment(),
		Timeout:    conf.Timeout(),
		CacheTTL:   conf.CacheTTL(),
	}
}

// Client wires the managers to one ledger handle. It holds no signer:
// every mutating call takes the principals it acts for.
type Client struct {
	Collections *CollectionManager
	Assets      *AssetManager
	Transfers   *TransferEngine
	Index       *QueryIndex

	ledger ledger.Service
}

func NewClient(svc ledger.Service, opts Options) *Client {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.Commitment == "" {
		opts.Commitment = ledger.CommitmentConfirmed
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = ledger.DefaultCacheTTL
	}
	sub := &submitter{ledger: svc, commitment: opts.Commitment, timeout: opts.Timeout}
	cache := newCollectionCache(svc, opts.CacheTTL)
	return &Client{
		Collections: &CollectionManager{submitter: sub, registry: opts.Registry, cache: cache},
		Assets:      &AssetManager{submitter: sub, cache: cache},
		Transfers:   &TransferEngine{submitter: sub, cache: cache},
		Index:       &QueryIndex{ledger: svc},
		ledger:      svc,
	}
}

func (c *Client) FetchAsset(ctx context.Context, addr ledger.Address) (*Asset, error) {
	return readAsset(ctx, c.ledger, addr)
}

func (c *Client) FetchCollection(ctx context.Context, addr ledger.Address) (*Collection, error) {
	return readCollection(ctx, c.ledger, addr)
}

// MutationStatus resolves the outcome of a submission whose confirmation
// was not awaited to the end.
func (c *Client) MutationStatus(ctx context.Context, traceId string) (MutationStatus, error) {
	m, err := c.ledger.ReadMutation(ctx, traceId)
	if err != nil {
		return MutationStatusUnknown, err
	}
	if m == nil {
		return MutationStatusUnknown, nil
	}
	switch m.State {
	case ledger.MutationStatePending:
		return MutationStatusPending, nil
	case ledger.MutationStateConfirmed:
		return MutationStatusConfirmed, nil
	case ledger.MutationStateRejected:
		return MutationStatusRejected, nil
	}
	return MutationStatusUnknown, nil
}

type submitter struct {
	ledger     ledger.Service
	commitment ledger.Commitment
	timeout    time.Duration
}

func (s *submitter) submit(ctx context.Context, m *ledger.Mutation, signers ...ledger.Signer) (*ledger.Confirmation, error) {
	m.Sign(signers...)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.ledger.SubmitMutation(ctx, m, s.commitment)
}
