package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies an entry in the per-call event log.
type EventKind uint8

const (
	EventOrderCreated EventKind = iota + 1
	EventOrderFilled
	EventOrderClosed
	EventOrderCancelled
	EventTokenReceive
	EventTokenSend
)

func (k EventKind) String() string {
	switch k {
	case EventOrderCreated:
		return "OrderCreated"
	case EventOrderFilled:
		return "OrderFilled"
	case EventOrderClosed:
		return "OrderClosed"
	case EventOrderCancelled:
		return "OrderCancelled"
	case EventTokenReceive:
		return "TokenReceive"
	case EventTokenSend:
		return "TokenSend"
	default:
		return "Unknown"
	}
}

// TokenEventData is the payload of TokenReceive/TokenSend events.
type TokenEventData struct {
	ChainAddress common.Address
	Symbol       string
	Value        *big.Int
}

// Event is one append-only log entry emitted during a ledger call.
// Data is either an order uid (uint64) or TokenEventData.
type Event struct {
	Kind    EventKind
	Address common.Address
	Data    any
}
