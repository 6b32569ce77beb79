package chain

import (
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/umbra-chain/umbra/pkg/storage"
	"github.com/umbra-chain/umbra/pkg/util"
)

var uidCounterKey = []byte("chain.uid")

// Chain executes ledger calls one at a time to completion. Each call
// runs against a staged transaction: a nil error commits every staged
// write atomically, any error discards them all. The mutex is what
// makes "one at a time" hold when callers (the API handlers) arrive on
// concurrent goroutines: without it two staged transactions would read
// the same committed UID counter and commit over each other.
type Chain struct {
	mu    sync.Mutex
	store *storage.Store
	addr  common.Address
	clock util.Clock
	log   *zap.SugaredLogger
}

func New(store *storage.Store, addr common.Address, clock util.Clock, log *zap.SugaredLogger) *Chain {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Chain{store: store, addr: addr, clock: clock, log: log}
}

// Address returns the chain's custodial holding account.
func (c *Chain) Address() common.Address { return c.addr }

// Execute runs fn inside a staged transaction authorized by the given
// witnesses. On success it commits and returns the events fn emitted;
// on any error it discards all staged writes and returns nothing.
func (c *Chain) Execute(witnesses []common.Address, fn func(rt Runtime) error) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := c.store.Begin()
	rt := &txRuntime{
		kv:        tx,
		witnesses: witnesses,
		time:      uint64(c.clock.Now().Unix()),
		addr:      c.addr,
	}

	if err := fn(rt); err != nil {
		tx.Discard()
		c.log.Debugw("tx_aborted", "err", err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	c.log.Debugw("tx_committed", "events", len(rt.events))
	return rt.events, nil
}

// View runs fn against a staged transaction that is always discarded.
// Used for read-only queries.
func (c *Chain) View(fn func(rt Runtime) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := c.store.Begin()
	defer tx.Discard()
	rt := &txRuntime{
		kv:   tx,
		time: uint64(c.clock.Now().Unix()),
		addr: c.addr,
	}
	return fn(rt)
}

type txRuntime struct {
	kv        storage.KV
	witnesses []common.Address
	time      uint64
	addr      common.Address
	events    []Event
}

func (rt *txRuntime) Store() storage.KV { return rt.kv }

func (rt *txRuntime) IsWitness(addr common.Address) bool {
	for _, w := range rt.witnesses {
		if w == addr {
			return true
		}
	}
	return false
}

func (rt *txRuntime) Time() uint64 { return rt.time }

func (rt *txRuntime) NextUID() uint64 {
	var next uint64 = 1
	if b, ok := rt.kv.Get(uidCounterKey); ok {
		next = binary.BigEndian.Uint64(b) + 1
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], next)
	rt.kv.Set(uidCounterKey, b[:])
	return next
}

func (rt *txRuntime) Notify(kind EventKind, addr common.Address, data any) {
	rt.events = append(rt.events, Event{Kind: kind, Address: addr, Data: data})
}

func (rt *txRuntime) ChainAddress() common.Address { return rt.addr }

var _ Runtime = (*txRuntime)(nil)
