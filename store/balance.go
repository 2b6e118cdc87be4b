package store

import (
	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/dgraph-io/badger/v3"
	"github.com/shopspring/decimal"
)

const prefixBalance = "BALANCE:"

func (bs *BadgerStore) ReadBalance(addr ledger.Address) (decimal.Decimal, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return bs.readBalance(txn, addr)
}

func (bs *BadgerStore) Credit(addr ledger.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := bs.db.Update(func(txn *badger.Txn) error {
		old, err := bs.readBalance(txn, addr)
		if err != nil {
			return err
		}
		balance = old.Add(amount)
		return bs.writeBalance(txn, addr, balance)
	})
	return balance, err
}

func (bs *BadgerStore) readBalance(txn *badger.Txn, addr ledger.Address) (decimal.Decimal, error) {
	val, err := bs.readProperty(txn, []byte(prefixBalance+addr))
	if err != nil || len(val) == 0 {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(val))
}

func (bs *BadgerStore) writeBalance(txn *badger.Txn, addr ledger.Address, balance decimal.Decimal) error {
	if balance.IsNegative() {
		panic(balance)
	}
	return txn.Set([]byte(prefixBalance+addr), []byte(balance.String()))
}
