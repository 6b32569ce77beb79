// Package token holds the asset registry and the balance/ownership
// ledger the exchange settles against. Both are thin views bound to the
// staged store of the current ledger call, so their writes roll back
// with the call.
package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/storage"
)

// Info is a registered asset's static metadata.
type Info struct {
	Symbol   string
	Decimals uint32
	Fungible bool
	Owner    common.Address
}

type Registry struct {
	infos storage.Map
}

func NewRegistry(kv storage.KV) Registry {
	return Registry{infos: storage.NewMap(kv, "token.info")}
}

// Create registers a new asset. Fails if the symbol is taken.
func (r Registry) Create(info Info) error {
	key := []byte(info.Symbol)
	if r.infos.Has(key) {
		return fmt.Errorf("%w: token %s already exists", chain.ErrValidation, info.Symbol)
	}
	r.infos.Set(key, info)
	return nil
}

func (r Registry) Exists(symbol string) bool {
	return r.infos.Has([]byte(symbol))
}

func (r Registry) Get(symbol string) (Info, bool) {
	var info Info
	ok := r.infos.Get([]byte(symbol), &info)
	return info, ok
}

type Ledger struct {
	balances storage.Map
	items    storage.Map
}

func NewLedger(kv storage.KV) Ledger {
	return Ledger{
		balances: storage.NewMap(kv, "token.bal"),
		items:    storage.NewMap(kv, "token.item"),
	}
}

func balanceKey(symbol string, addr common.Address) []byte {
	k := make([]byte, 0, len(symbol)+1+common.AddressLength)
	k = append(k, symbol...)
	k = append(k, '/')
	return append(k, addr.Bytes()...)
}

func itemKey(symbol string, itemID *big.Int) []byte {
	k := make([]byte, 0, len(symbol)+1+len(itemID.Bytes()))
	k = append(k, symbol...)
	k = append(k, '/')
	return append(k, itemID.Bytes()...)
}

// BalanceOf returns the fungible balance, zero if the account is unknown.
func (l Ledger) BalanceOf(symbol string, addr common.Address) *big.Int {
	var bal big.Int
	if !l.balances.Get(balanceKey(symbol, addr), &bal) {
		return new(big.Int)
	}
	return &bal
}

func (l Ledger) setBalance(symbol string, addr common.Address, bal *big.Int) {
	key := balanceKey(symbol, addr)
	if bal.Sign() == 0 {
		l.balances.Delete(key)
		return
	}
	l.balances.Set(key, bal)
}

// Mint credits freshly issued tokens. Genesis-only in this codebase.
func (l Ledger) Mint(symbol string, to common.Address, amount *big.Int) {
	if amount.Sign() <= 0 {
		return
	}
	l.setBalance(symbol, to, new(big.Int).Add(l.BalanceOf(symbol, to), amount))
}

// Transfer moves a fungible amount and reports whether it succeeded.
func (l Ledger) Transfer(symbol string, from, to common.Address, amount *big.Int) bool {
	if amount.Sign() <= 0 {
		return false
	}
	fromBal := l.BalanceOf(symbol, from)
	if fromBal.Cmp(amount) < 0 {
		return false
	}
	if from == to {
		return true
	}
	l.setBalance(symbol, from, new(big.Int).Sub(fromBal, amount))
	l.setBalance(symbol, to, new(big.Int).Add(l.BalanceOf(symbol, to), amount))
	return true
}

// SetItemOwner assigns ownership of a non-fungible item. Issuance-only.
func (l Ledger) SetItemOwner(symbol string, itemID *big.Int, owner common.Address) {
	l.items.Set(itemKey(symbol, itemID), owner)
}

// OwnerOfItem returns the owner of a non-fungible item.
func (l Ledger) OwnerOfItem(symbol string, itemID *big.Int) (common.Address, bool) {
	var owner common.Address
	ok := l.items.Get(itemKey(symbol, itemID), &owner)
	return owner, ok
}

// TransferItem moves a non-fungible item and reports whether it succeeded.
func (l Ledger) TransferItem(symbol string, from, to common.Address, itemID *big.Int) bool {
	owner, ok := l.OwnerOfItem(symbol, itemID)
	if !ok || owner != from {
		return false
	}
	l.items.Set(itemKey(symbol, itemID), to)
	return true
}
