package token

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/storage"
)

var (
	alice = common.HexToAddress("0x01")
	bob   = common.HexToAddress("0x02")
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(storage.NewMemKV())

	info := Info{Symbol: "UMB", Decimals: 8, Fungible: true}
	if err := r.Create(info); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !r.Exists("UMB") {
		t.Fatal("created token not found")
	}
	got, ok := r.Get("UMB")
	if !ok || got.Decimals != 8 || !got.Fungible {
		t.Fatalf("got %+v", got)
	}

	if err := r.Create(info); err == nil {
		t.Fatal("duplicate symbol accepted")
	}
	if r.Exists("NOPE") {
		t.Fatal("unknown symbol exists")
	}
}

func TestLedgerMintAndTransfer(t *testing.T) {
	l := NewLedger(storage.NewMemKV())

	l.Mint("UMB", alice, big.NewInt(1000))
	if l.BalanceOf("UMB", alice).Int64() != 1000 {
		t.Fatalf("alice = %s", l.BalanceOf("UMB", alice))
	}
	if l.BalanceOf("UMB", bob).Sign() != 0 {
		t.Fatalf("bob = %s", l.BalanceOf("UMB", bob))
	}

	if !l.Transfer("UMB", alice, bob, big.NewInt(400)) {
		t.Fatal("transfer rejected")
	}
	if l.BalanceOf("UMB", alice).Int64() != 600 || l.BalanceOf("UMB", bob).Int64() != 400 {
		t.Fatalf("alice=%s bob=%s", l.BalanceOf("UMB", alice), l.BalanceOf("UMB", bob))
	}

	// Overdrafts and non-positive amounts are rejected outright.
	if l.Transfer("UMB", alice, bob, big.NewInt(601)) {
		t.Fatal("overdraft accepted")
	}
	if l.Transfer("UMB", alice, bob, big.NewInt(0)) {
		t.Fatal("zero transfer accepted")
	}
	if l.Transfer("UMB", alice, bob, big.NewInt(-5)) {
		t.Fatal("negative transfer accepted")
	}
	if l.BalanceOf("UMB", alice).Int64() != 600 {
		t.Fatalf("failed transfer mutated balance: %s", l.BalanceOf("UMB", alice))
	}
}

func TestLedgerBalancesAreSymbolScoped(t *testing.T) {
	l := NewLedger(storage.NewMemKV())
	l.Mint("UMB", alice, big.NewInt(10))
	if l.BalanceOf("USDC", alice).Sign() != 0 {
		t.Fatal("balance leaked across symbols")
	}
}

func TestLedgerItems(t *testing.T) {
	l := NewLedger(storage.NewMemKV())
	id := big.NewInt(7)

	if _, ok := l.OwnerOfItem("RELIC", id); ok {
		t.Fatal("unknown item has an owner")
	}

	l.SetItemOwner("RELIC", id, alice)
	owner, ok := l.OwnerOfItem("RELIC", id)
	if !ok || owner != alice {
		t.Fatalf("owner = %s, %v", owner.Hex(), ok)
	}

	// Only the current owner can be the transfer source.
	if l.TransferItem("RELIC", bob, alice, id) {
		t.Fatal("non-owner transferred item")
	}
	if !l.TransferItem("RELIC", alice, bob, id) {
		t.Fatal("owner transfer rejected")
	}
	owner, _ = l.OwnerOfItem("RELIC", id)
	if owner != bob {
		t.Fatalf("owner after transfer = %s", owner.Hex())
	}
}
