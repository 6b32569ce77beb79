package exchange

import (
	"math/big"

	"github.com/umbra-chain/umbra/pkg/token"
)

// Fixed-point conversions between minor-unit integers. All arithmetic
// is exact big.Int math scaled by each asset's declared decimal count;
// divisions truncate toward zero. Floating point would diverge across
// replaying nodes and is never used.

var bigTen = big.NewInt(10)

func pow10(n uint32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// MinimumQuantity is the anti-dust floor for an asset: 10^(decimals/2),
// integer division. Kept exactly as-is for compatibility.
func MinimumQuantity(decimals uint32) *big.Int {
	return pow10(decimals / 2)
}

func minimumTokenQuantity(t token.Info) *big.Int {
	return MinimumQuantity(t.Decimals)
}

// CalculateEscrowAmount returns the escrow a non-market order of the
// given size and limit price must lock. Sell orders lock the base
// amount verbatim; Buy orders lock size*price expressed in quote minor
// units: size/10^baseDec * price/10^quoteDec * 10^quoteDec, which
// reduces to size*price/10^baseDec.
func CalculateEscrowAmount(orderSize, price *big.Int, baseToken, quoteToken token.Info, side Side) *big.Int {
	if side == Sell {
		return new(big.Int).Set(orderSize)
	}
	product := new(big.Int).Mul(orderSize, price)
	return product.Quo(product, pow10(baseToken.Decimals))
}

// ConvertQuoteToBase converts a quote-asset amount into base minor
// units at the given price: quoteAmount/price * 10^baseDec.
func ConvertQuoteToBase(quoteAmount, price *big.Int, baseToken token.Info) *big.Int {
	scaled := new(big.Int).Mul(quoteAmount, pow10(baseToken.Decimals))
	return scaled.Quo(scaled, price)
}

// CalculateEscrowSymbol picks the asset an order escrows: base for
// Sell, quote for Buy.
func CalculateEscrowSymbol(baseToken, quoteToken token.Info, side Side) string {
	if side == Sell {
		return baseToken.Symbol
	}
	return quoteToken.Symbol
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
