package exchange_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/crypto"
	"github.com/umbra-chain/umbra/pkg/exchange"
	"github.com/umbra-chain/umbra/pkg/token"
)

// newSwapEnv extends the shared fixture with a key-backed seller so the
// signature path can be exercised end to end.
func newSwapEnv(t *testing.T) (*env, *crypto.Signer) {
	t.Helper()
	e := newEnv(t)

	seller, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, err = e.chain.Execute(nil, func(rt chain.Runtime) error {
		led := token.NewLedger(rt.Store())
		led.Mint("UMB", seller.Address(), big.NewInt(1_000_000))
		led.Mint("USDC", seller.Address(), big.NewInt(1_000_000))
		led.SetItemOwner("RELIC", big.NewInt(7), seller.Address())
		return nil
	})
	if err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	return e, seller
}

func signSwap(t *testing.T, signer *crypto.Signer, swap exchange.TokenSwap) []byte {
	t.Helper()
	sig, err := signer.Sign(swap.Hash())
	if err != nil {
		t.Fatalf("sign swap: %v", err)
	}
	return sig
}

func TestSwapTokensSettlesBothLegs(t *testing.T) {
	e, seller := newSwapEnv(t)

	swap := exchange.TokenSwap{
		Buyer:       alice,
		Seller:      seller.Address(),
		BaseSymbol:  "UMB",
		QuoteSymbol: "USDC",
		Value:       big.NewInt(5000),
		Price:       big.NewInt(45000),
	}
	sig := signSwap(t, seller, swap)

	events, err := e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, seller.Address(), "UMB", "USDC", big.NewInt(5000), big.NewInt(45000), sig)
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if countKind(events, chain.EventTokenSend) != 2 || countKind(events, chain.EventTokenReceive) != 2 {
		t.Fatalf("events = %+v", events)
	}

	if got := e.balance("UMB", alice); got != 1_000_000+5000 {
		t.Fatalf("buyer UMB = %d", got)
	}
	if got := e.balance("USDC", alice); got != 1_000_000-45000 {
		t.Fatalf("buyer USDC = %d", got)
	}
	if got := e.balance("UMB", seller.Address()); got != 1_000_000-5000 {
		t.Fatalf("seller UMB = %d", got)
	}
	if got := e.balance("USDC", seller.Address()); got != 1_000_000+45000 {
		t.Fatalf("seller USDC = %d", got)
	}
}

func TestSwapTokensRejectsBadSignature(t *testing.T) {
	e, seller := newSwapEnv(t)

	swap := exchange.TokenSwap{
		Buyer:       alice,
		Seller:      seller.Address(),
		BaseSymbol:  "UMB",
		QuoteSymbol: "USDC",
		Value:       big.NewInt(5000),
		Price:       big.NewInt(45000),
	}
	sig := signSwap(t, seller, swap)

	// Any change to the terms invalidates the seller's signature.
	_, err := e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, seller.Address(), "UMB", "USDC", big.NewInt(5000), big.NewInt(1), sig)
	})
	if !errors.Is(err, chain.ErrSignature) {
		t.Fatalf("tampered price err = %v", err)
	}

	// A signature from a different key is rejected too.
	stranger, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	badSig := signSwap(t, stranger, swap)
	_, err = e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, seller.Address(), "UMB", "USDC", big.NewInt(5000), big.NewInt(45000), badSig)
	})
	if !errors.Is(err, chain.ErrSignature) {
		t.Fatalf("foreign signer err = %v", err)
	}

	if got := e.balance("UMB", alice); got != 1_000_000 {
		t.Fatalf("buyer UMB = %d after rejected swaps", got)
	}
	if got := e.balance("USDC", seller.Address()); got != 1_000_000 {
		t.Fatalf("seller USDC = %d after rejected swaps", got)
	}
}

func TestSwapTokensValidation(t *testing.T) {
	e, seller := newSwapEnv(t)

	swap := exchange.TokenSwap{
		Buyer:       alice,
		Seller:      seller.Address(),
		BaseSymbol:  "UMB",
		QuoteSymbol: "USDC",
		Value:       big.NewInt(2_000_000),
		Price:       big.NewInt(45000),
	}
	sig := signSwap(t, seller, swap)

	// Buyer must witness the call.
	_, err := e.exec(bob, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, seller.Address(), "UMB", "USDC", big.NewInt(5000), big.NewInt(45000), sig)
	})
	if !errors.Is(err, chain.ErrAuthorization) {
		t.Fatalf("witness err = %v", err)
	}

	// Self-trade is rejected before any signature check.
	_, err = e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, alice, "UMB", "USDC", big.NewInt(5000), big.NewInt(45000), sig)
	})
	if !errors.Is(err, chain.ErrValidation) {
		t.Fatalf("self-trade err = %v", err)
	}

	// Seller cannot deliver more than it holds.
	_, err = e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, seller.Address(), "UMB", "USDC", big.NewInt(2_000_000), big.NewInt(45000), sig)
	})
	if !errors.Is(err, chain.ErrInsufficientFunds) {
		t.Fatalf("seller overdraft err = %v", err)
	}

	// A non-fungible base cannot go through the fungible path.
	_, err = e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(alice, seller.Address(), "RELIC", "USDC", big.NewInt(7), big.NewInt(45000), sig)
	})
	if !errors.Is(err, chain.ErrValidation) {
		t.Fatalf("non-fungible base err = %v", err)
	}
}

func TestSwapTokenTransfersItem(t *testing.T) {
	e, seller := newSwapEnv(t)

	itemID := big.NewInt(7)
	swap := exchange.TokenSwap{
		Buyer:       alice,
		Seller:      seller.Address(),
		BaseSymbol:  "RELIC",
		QuoteSymbol: "USDC",
		Value:       itemID,
		Price:       big.NewInt(90000),
	}
	sig := signSwap(t, seller, swap)

	_, err := e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapToken(alice, seller.Address(), "RELIC", "USDC", itemID, big.NewInt(90000), sig)
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	e.chain.View(func(rt chain.Runtime) error {
		led := token.NewLedger(rt.Store())
		owner, ok := led.OwnerOfItem("RELIC", itemID)
		if !ok || owner != alice {
			t.Fatalf("item owner = %v ok=%v", owner, ok)
		}
		return nil
	})
	if got := e.balance("USDC", seller.Address()); got != 1_000_000+90000 {
		t.Fatalf("seller USDC = %d", got)
	}
	if got := e.balance("USDC", alice); got != 1_000_000-90000 {
		t.Fatalf("buyer USDC = %d", got)
	}
}

func TestSwapTokenRejectsWrongOwnerOrFungibleBase(t *testing.T) {
	e, seller := newSwapEnv(t)

	swap := exchange.TokenSwap{
		Buyer:       alice,
		Seller:      seller.Address(),
		BaseSymbol:  "RELIC",
		QuoteSymbol: "USDC",
		Value:       big.NewInt(99),
		Price:       big.NewInt(90000),
	}
	sig := signSwap(t, seller, swap)

	// Item 99 does not belong to the seller.
	_, err := e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapToken(alice, seller.Address(), "RELIC", "USDC", big.NewInt(99), big.NewInt(90000), sig)
	})
	if !errors.Is(err, chain.ErrValidation) {
		t.Fatalf("wrong owner err = %v", err)
	}

	// A fungible base cannot go through the item path.
	_, err = e.exec(alice, func(ex *exchange.Exchange) error {
		return ex.SwapToken(alice, seller.Address(), "UMB", "USDC", big.NewInt(7), big.NewInt(90000), sig)
	})
	if !errors.Is(err, chain.ErrValidation) {
		t.Fatalf("fungible base err = %v", err)
	}
}

func TestSwapEncodingIsCanonical(t *testing.T) {
	a := exchange.TokenSwap{
		Buyer:       alice,
		Seller:      bob,
		BaseSymbol:  "UMB",
		QuoteSymbol: "USDC",
		Value:       big.NewInt(5000),
		Price:       big.NewInt(45000),
	}
	b := a
	b.Value = big.NewInt(5000)
	b.Price = big.NewInt(45000)

	if string(a.Encode()) != string(b.Encode()) {
		t.Fatal("equal terms encode differently")
	}
	c := a
	c.Price = big.NewInt(45001)
	if string(a.Encode()) == string(c.Encode()) {
		t.Fatal("different terms encode identically")
	}
	if string(a.Hash()) == string(c.Hash()) {
		t.Fatal("different terms hash identically")
	}
}
