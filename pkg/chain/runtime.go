package chain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/storage"
)

// Runtime is the capability surface a contract-like component sees
// during one ledger call. Several components in the surrounding system
// need the same capability set, so it is injected rather than inherited.
type Runtime interface {
	// Store is the staged view of persistent state for this call.
	// Everything written through it is discarded if the call errors.
	Store() storage.KV

	// IsWitness reports whether the current call is authorized by addr.
	IsWitness(addr common.Address) bool

	// Time is the ledger timestamp of the current call, unix seconds.
	Time() uint64

	// NextUID issues a fresh chain-scoped identifier. Strictly
	// increasing, never reused; the counter is staged so an aborted
	// call does not burn identifiers.
	NextUID() uint64

	// Notify appends an event to the per-call log.
	Notify(kind EventKind, addr common.Address, data any)

	// ChainAddress is the engine's own custodial holding account.
	ChainAddress() common.Address
}
