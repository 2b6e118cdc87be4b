package store

import (
	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/dgraph-io/badger/v3"
)

const (
	prefixMutationPayload = "MUTATION:PAYLOAD:"
	prefixMutationState   = "MUTATION:STATE:"
)

func (bs *BadgerStore) WriteMutation(m *ledger.Mutation) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return bs.writeMutation(txn, m)
	})
}

func (bs *BadgerStore) ReadMutation(traceId string) (*ledger.Mutation, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return bs.readMutation(txn, traceId)
}

func (bs *BadgerStore) ListMutations(state int, limit int) ([]*ledger.Mutation, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(mutationStatePrefix(state))
	it := txn.NewIterator(opts)
	defer it.Close()

	var ms []*ledger.Mutation
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		key := it.Item().Key()
		id := string(key[len(opts.Prefix)+8:])
		m, err := bs.readMutation(txn, id)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
		if len(ms) == limit {
			break
		}
	}
	return ms, nil
}

func (bs *BadgerStore) writeMutation(txn *badger.Txn, m *ledger.Mutation) error {
	err := bs.resetOldMutation(txn, m)
	if err != nil {
		return err
	}
	key := []byte(prefixMutationPayload + m.TraceId)
	val := common.MsgpackMarshalPanic(m)
	err = txn.Set(key, val)
	if err != nil {
		return err
	}

	key = buildMutationTimedKey(m)
	return txn.Set(key, []byte{1})
}

func (bs *BadgerStore) readMutation(txn *badger.Txn, traceId string) (*ledger.Mutation, error) {
	key := []byte(prefixMutationPayload + traceId)
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var m ledger.Mutation
	err = common.MsgpackUnmarshal(val, &m)
	return &m, err
}

func (bs *BadgerStore) resetOldMutation(txn *badger.Txn, m *ledger.Mutation) error {
	old, err := bs.readMutation(txn, m.TraceId)
	if err != nil || old == nil {
		return err
	}
	if old.State == ledger.MutationStateConfirmed {
		panic(old.TraceId)
	}
	key := buildMutationTimedKey(old)
	return txn.Delete(key)
}

func buildMutationTimedKey(m *ledger.Mutation) []byte {
	buf := tsToBytes(m.UpdatedAt)
	prefix := mutationStatePrefix(m.State)
	key := append([]byte(prefix), buf...)
	return append(key, []byte(m.TraceId)...)
}

func mutationStatePrefix(state int) string {
	prefix := prefixMutationState
	switch state {
	case ledger.MutationStatePending:
		return prefix + "pending:"
	case ledger.MutationStateConfirmed:
		return prefix + "confirm:"
	case ledger.MutationStateRejected:
		return prefix + "rejectd:"
	}
	panic(state)
}
