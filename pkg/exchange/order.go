package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderType uint8

const (
	// Limit rests any unfilled remainder on the book.
	Limit OrderType = iota
	// ImmediateOrCancel refunds any remainder not filled within the
	// submitting call.
	ImmediateOrCancel
	// Market commits the requested size as escrow verbatim and never
	// rests; price is ignored.
	Market
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "Limit"
	case ImmediateOrCancel:
		return "ImmediateOrCancel"
	case Market:
		return "Market"
	default:
		return "Unknown"
	}
}

// Order is immutable once created. Partial fills are tracked through
// the escrow map, never by rewriting Amount or Price in place.
type Order struct {
	UID       uint64
	Timestamp uint64
	Creator   common.Address

	Amount     *big.Int // requested size, base minor units
	BaseSymbol string

	Price       *big.Int // quote minor units per base unit; zero for Market
	QuoteSymbol string

	Side Side
	Type OrderType
}

// bookKey addresses the ordered list holding one side of a pair's book.
func bookKey(side Side, quoteSymbol, baseSymbol string) string {
	return fmt.Sprintf("%s_%s_%s", side, quoteSymbol, baseSymbol)
}
