package store

import (
	"encoding/binary"

	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/dgraph-io/badger/v3"
	"github.com/shopspring/decimal"
)

const (
	prefixAccountPayload = "ACCOUNT:PAYLOAD:"
	prefixAccountKind    = "ACCOUNT:KIND:"
	prefixAccountIndex   = "ACCOUNT:INDEX:"

	propertyLedgerSlot = "LEDGER:SLOT"
)

func (bs *BadgerStore) ReadAccount(addr ledger.Address) (*ledger.Account, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return bs.readAccount(txn, addr)
}

// ListAccounts walks the kind index, or the field index when field is set,
// in slot order of the last write to each account.
func (bs *BadgerStore) ListAccounts(kind, field, value string, limit int) ([]*ledger.Account, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = accountIndexPrefix(kind, field, value)
	it := txn.NewIterator(opts)
	defer it.Close()

	var accounts []*ledger.Account
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		key := it.Item().Key()
		id := ledger.Address(key[len(opts.Prefix)+8:])
		acc, err := bs.readAccount(txn, id)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			panic(id)
		}
		accounts = append(accounts, acc)
		if len(accounts) == limit {
			break
		}
	}
	return accounts, nil
}

// ApplyMutation applies all writes of m, debits fee from the payer and
// records m as confirmed in a single transaction. A precondition failure
// returns a *ledger.Rejection and leaves the store untouched.
func (bs *BadgerStore) ApplyMutation(m *ledger.Mutation, fee decimal.Decimal) (*ledger.Mutation, error) {
	var rec *ledger.Mutation
	err := bs.db.Update(func(txn *badger.Txn) error {
		slot, err := bs.nextSlot(txn)
		if err != nil {
			return err
		}

		writes := make([]*ledger.Write, len(m.Writes))
		for i, w := range m.Writes {
			acc, err := bs.applyWrite(txn, m, w, slot)
			if err != nil {
				return err
			}
			writes[i] = &ledger.Write{Account: acc, Create: w.Create, Expect: w.Expect}
		}

		balance, err := bs.readBalance(txn, m.Payer)
		if err != nil {
			return err
		}
		if balance.Cmp(fee) < 0 {
			return ledger.NewRejection(m.TraceId, ledger.RejectInsufficientFunds, "%s balance %s fee %s", m.Payer, balance, fee)
		}
		err = bs.writeBalance(txn, m.Payer, balance.Sub(fee))
		if err != nil {
			return err
		}

		r := *m
		r.Writes = writes
		r.State = ledger.MutationStateConfirmed
		r.Slot = slot
		err = bs.writeMutation(txn, &r)
		if err != nil {
			return err
		}
		rec = &r
		return nil
	})
	return rec, err
}

func (bs *BadgerStore) applyWrite(txn *badger.Txn, m *ledger.Mutation, w *ledger.Write, slot uint64) (*ledger.Account, error) {
	acc := w.Account.Copy()
	old, err := bs.readAccount(txn, acc.Address)
	if err != nil {
		return nil, err
	}

	if w.Create {
		if old != nil {
			return nil, ledger.NewRejection(m.TraceId, ledger.RejectAccountExists, "%s", acc.Address)
		}
		acc.Version = 1
	} else {
		if old == nil {
			return nil, ledger.NewRejection(m.TraceId, ledger.RejectAccountNotFound, "%s", acc.Address)
		}
		if old.Version != w.Expect {
			return nil, ledger.NewRejection(m.TraceId, ledger.RejectStaleAccount, "%s version %d expect %d", acc.Address, old.Version, w.Expect)
		}
		if old.Kind != acc.Kind {
			return nil, ledger.NewRejection(m.TraceId, ledger.RejectInvalidMutation, "%s kind %s => %s", acc.Address, old.Kind, acc.Kind)
		}
		if !m.Authorized(old.Authority) {
			return nil, ledger.NewRejection(m.TraceId, ledger.RejectUnauthorizedWrite, "%s authority %s", acc.Address, old.Authority)
		}
		err = bs.deleteAccountIndexes(txn, old)
		if err != nil {
			return nil, err
		}
		acc.Version = old.Version + 1
	}
	acc.Slot = slot
	acc.UpdatedAt = m.CreatedAt

	key := []byte(prefixAccountPayload + acc.Address)
	err = txn.Set(key, common.MsgpackMarshalPanic(acc))
	if err != nil {
		return nil, err
	}
	for _, key := range accountIndexKeys(acc) {
		err = txn.Set(key, []byte{1})
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (bs *BadgerStore) deleteAccountIndexes(txn *badger.Txn, old *ledger.Account) error {
	for _, key := range accountIndexKeys(old) {
		_, err := txn.Get(key)
		if err != nil {
			panic(string(key))
		}
		err = txn.Delete(key)
		if err != nil {
			return err
		}
	}
	return nil
}

func (bs *BadgerStore) readAccount(txn *badger.Txn, addr ledger.Address) (*ledger.Account, error) {
	key := []byte(prefixAccountPayload + addr)
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
	var acc ledger.Account
	err = common.MsgpackUnmarshal(val, &acc)
	return &acc, err
}

func (bs *BadgerStore) nextSlot(txn *badger.Txn) (uint64, error) {
	val, err := bs.readProperty(txn, []byte(propertyLedgerSlot))
	if err != nil {
		return 0, err
	}
	var slot uint64
	if len(val) == 8 {
		slot = binary.BigEndian.Uint64(val)
	}
	slot = slot + 1
	return slot, txn.Set([]byte(propertyLedgerSlot), uint64ToBytes(slot))
}

func accountIndexKeys(acc *ledger.Account) [][]byte {
	keys := [][]byte{buildAccountSlottedKey(accountIndexPrefix(acc.Kind, "", ""), acc)}
	for _, i := range acc.Indexes {
		if i.Value == "" {
			continue
		}
		prefix := accountIndexPrefix(acc.Kind, i.Field, i.Value)
		keys = append(keys, buildAccountSlottedKey(prefix, acc))
	}
	return keys
}

func accountIndexPrefix(kind, field, value string) []byte {
	if field == "" {
		return []byte(prefixAccountKind + kind + ":")
	}
	return []byte(prefixAccountIndex + kind + ":" + field + ":" + value + ":")
}

func buildAccountSlottedKey(prefix []byte, acc *ledger.Account) []byte {
	key := append(prefix, uint64ToBytes(acc.Slot)...)
	return append(key, []byte(acc.Address)...)
}
