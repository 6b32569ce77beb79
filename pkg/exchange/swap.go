package exchange

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/crypto"
)

// TokenSwap is the terms of a single bilateral OTC trade. The seller
// signs the keccak hash of the canonical encoding offline; the buyer
// submits the trade with that signature attached. No escrow is
// involved: settlement moves funds directly between the two parties.
type TokenSwap struct {
	Buyer       common.Address
	Seller      common.Address
	BaseSymbol  string
	QuoteSymbol string
	Value       *big.Int // fungible amount, or the non-fungible item id
	Price       *big.Int
}

const swapEncodingTag = "umbra/swap/1"

// Encode renders the swap terms as a canonical byte string. The layout
// is fixed-order and length-prefixed so the signature preimage is
// bit-identical on every node and across versions.
func (s TokenSwap) Encode() []byte {
	var buf []byte
	buf = appendBytes(buf, []byte(swapEncodingTag))
	buf = append(buf, s.Buyer.Bytes()...)
	buf = append(buf, s.Seller.Bytes()...)
	buf = appendBytes(buf, []byte(s.BaseSymbol))
	buf = appendBytes(buf, []byte(s.QuoteSymbol))
	buf = appendBytes(buf, s.Value.Bytes())
	buf = appendBytes(buf, s.Price.Bytes())
	return buf
}

// Hash is the signature preimage for the swap terms.
func (s TokenSwap) Hash() []byte {
	return crypto.Keccak256(s.Encode())
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// SwapTokens settles a fungible-for-fungible OTC trade: the buyer pays
// price units of quote, the seller delivers amount units of base,
// authorized by the seller's signature over the trade terms.
func (ex *Exchange) SwapTokens(buyer, seller common.Address, baseSymbol, quoteSymbol string, amount, price *big.Int, signature []byte) error {
	if !ex.rt.IsWitness(buyer) {
		return fmt.Errorf("%w: buyer %s", chain.ErrAuthorization, buyer.Hex())
	}
	if seller == buyer {
		return fmt.Errorf("%w: invalid seller", chain.ErrValidation)
	}

	if _, err := ex.fungibleToken(baseSymbol); err != nil {
		return err
	}
	if ex.ledger.BalanceOf(baseSymbol, seller).Cmp(amount) < 0 {
		return fmt.Errorf("%w: seller lacks %s %s", chain.ErrInsufficientFunds, amount, baseSymbol)
	}

	swap := TokenSwap{
		Buyer:       buyer,
		Seller:      seller,
		BaseSymbol:  baseSymbol,
		QuoteSymbol: quoteSymbol,
		Value:       amount,
		Price:       price,
	}
	if !crypto.VerifySignature(seller, swap.Hash(), signature) {
		return fmt.Errorf("%w: seller signature over swap terms", chain.ErrSignature)
	}

	if _, err := ex.fungibleToken(quoteSymbol); err != nil {
		return err
	}
	if ex.ledger.BalanceOf(quoteSymbol, buyer).Cmp(price) < 0 {
		return fmt.Errorf("%w: buyer lacks %s %s", chain.ErrInsufficientFunds, price, quoteSymbol)
	}

	if !ex.ledger.Transfer(quoteSymbol, buyer, seller, price) {
		return fmt.Errorf("%w: payment", chain.ErrTransferRejected)
	}
	if !ex.ledger.Transfer(baseSymbol, seller, buyer, amount) {
		return fmt.Errorf("%w: delivery", chain.ErrTransferRejected)
	}

	ex.notifySwapLegs(seller, buyer, baseSymbol, quoteSymbol, amount, price)
	return nil
}

// SwapToken settles a non-fungible-item-for-fungible OTC trade. The
// specific item must belong to the seller; the buyer pays in the
// fungible quote asset.
func (ex *Exchange) SwapToken(buyer, seller common.Address, baseSymbol, quoteSymbol string, tokenID, price *big.Int, signature []byte) error {
	if !ex.rt.IsWitness(buyer) {
		return fmt.Errorf("%w: buyer %s", chain.ErrAuthorization, buyer.Hex())
	}
	if seller == buyer {
		return fmt.Errorf("%w: invalid seller", chain.ErrValidation)
	}

	baseInfo, ok := ex.tokens.Get(baseSymbol)
	if !ok {
		return fmt.Errorf("%w: invalid token %s", chain.ErrValidation, baseSymbol)
	}
	if baseInfo.Fungible {
		return fmt.Errorf("%w: token %s must be non-fungible", chain.ErrValidation, baseSymbol)
	}

	owner, ok := ex.ledger.OwnerOfItem(baseSymbol, tokenID)
	if !ok || owner != seller {
		return fmt.Errorf("%w: item %s of %s not owned by seller", chain.ErrValidation, tokenID, baseSymbol)
	}

	swap := TokenSwap{
		Buyer:       buyer,
		Seller:      seller,
		BaseSymbol:  baseSymbol,
		QuoteSymbol: quoteSymbol,
		Value:       tokenID,
		Price:       price,
	}
	if !crypto.VerifySignature(seller, swap.Hash(), signature) {
		return fmt.Errorf("%w: seller signature over swap terms", chain.ErrSignature)
	}

	if _, err := ex.fungibleToken(quoteSymbol); err != nil {
		return err
	}
	if ex.ledger.BalanceOf(quoteSymbol, buyer).Cmp(price) < 0 {
		return fmt.Errorf("%w: buyer lacks %s %s", chain.ErrInsufficientFunds, price, quoteSymbol)
	}

	if !ex.ledger.Transfer(quoteSymbol, buyer, owner, price) {
		return fmt.Errorf("%w: payment", chain.ErrTransferRejected)
	}
	if !ex.ledger.TransferItem(baseSymbol, owner, buyer, tokenID) {
		return fmt.Errorf("%w: item delivery", chain.ErrTransferRejected)
	}

	ex.notifySwapLegs(seller, buyer, baseSymbol, quoteSymbol, tokenID, price)
	return nil
}

func (ex *Exchange) notifySwapLegs(seller, buyer common.Address, baseSymbol, quoteSymbol string, value, price *big.Int) {
	chainAddr := ex.rt.ChainAddress()
	ex.rt.Notify(chain.EventTokenSend, seller, chain.TokenEventData{
		ChainAddress: chainAddr, Symbol: baseSymbol, Value: value,
	})
	ex.rt.Notify(chain.EventTokenSend, buyer, chain.TokenEventData{
		ChainAddress: chainAddr, Symbol: quoteSymbol, Value: price,
	})
	ex.rt.Notify(chain.EventTokenReceive, seller, chain.TokenEventData{
		ChainAddress: chainAddr, Symbol: quoteSymbol, Value: price,
	})
	ex.rt.Notify(chain.EventTokenReceive, buyer, chain.TokenEventData{
		ChainAddress: chainAddr, Symbol: baseSymbol, Value: value,
	})
}
