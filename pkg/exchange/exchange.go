// Package exchange is the ledger-embedded trading venue: it matches
// buy/sell orders for fungible asset pairs, custodies escrowed funds in
// the chain's own holding account, and settles fills atomically within
// the calling transaction. Every operation is deterministic: identical
// inputs over identical state produce identical storage mutations and
// events on every replaying node.
package exchange

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/storage"
	"github.com/umbra-chain/umbra/pkg/token"
)

// TokenRegistry is the asset metadata collaborator.
type TokenRegistry interface {
	Get(symbol string) (token.Info, bool)
}

// Ledger is the balance/transfer collaborator. Transfers report
// rejection through their boolean; the engine turns that into an
// aborting error.
type Ledger interface {
	BalanceOf(symbol string, addr common.Address) *big.Int
	Transfer(symbol string, from, to common.Address, amount *big.Int) bool
	TransferItem(symbol string, from, to common.Address, itemID *big.Int) bool
	OwnerOfItem(symbol string, itemID *big.Int) (common.Address, bool)
}

// Exchange binds the engine to one ledger call's runtime. Constructing
// it is free; all state lives behind rt.Store().
type Exchange struct {
	rt     chain.Runtime
	tokens TokenRegistry
	ledger Ledger

	orderMap storage.Map // uid -> book key
	escrows  storage.Map // uid -> remaining escrow amount
	fills    storage.Map // uid -> filled base amount (auxiliary)
}

func New(rt chain.Runtime, tokens TokenRegistry, ledger Ledger) *Exchange {
	kv := rt.Store()
	return &Exchange{
		rt:       rt,
		tokens:   tokens,
		ledger:   ledger,
		orderMap: storage.NewMap(kv, "exchange.ordermap"),
		escrows:  storage.NewMap(kv, "exchange.escrow"),
		fills:    storage.NewMap(kv, "exchange.fill"),
	}
}

func (ex *Exchange) bookList(key string) storage.List {
	return storage.NewList(ex.rt.Store(), "exchange.orders."+key)
}

// OpenLimitOrder submits a limit order. With ioc set, any part not
// filled within this call is refunded instead of resting.
func (ex *Exchange) OpenLimitOrder(from common.Address, baseSymbol, quoteSymbol string, orderSize, price *big.Int, side Side, ioc bool) error {
	orderType := Limit
	if ioc {
		orderType = ImmediateOrCancel
	}
	return ex.OpenOrder(from, baseSymbol, quoteSymbol, side, orderType, orderSize, price)
}

// OpenMarketOrder submits a market order. orderSize is the escrow
// commitment verbatim, in the escrow asset's minor units (base for
// Sell, quote for Buy).
func (ex *Exchange) OpenMarketOrder(from common.Address, baseSymbol, quoteSymbol string, orderSize *big.Int, side Side) error {
	return ex.OpenOrder(from, baseSymbol, quoteSymbol, side, Market, orderSize, new(big.Int))
}

// OpenOrder validates, escrows, inserts and immediately matches a new
// taker order, then disposes of any remainder per the order type.
func (ex *Exchange) OpenOrder(from common.Address, baseSymbol, quoteSymbol string, side Side, orderType OrderType, orderSize, price *big.Int) error {
	if !ex.rt.IsWitness(from) {
		return fmt.Errorf("%w: order creator %s", chain.ErrAuthorization, from.Hex())
	}
	if baseSymbol == quoteSymbol {
		return fmt.Errorf("%w: invalid base/quote pair", chain.ErrValidation)
	}

	baseToken, err := ex.fungibleToken(baseSymbol)
	if err != nil {
		return err
	}
	quoteToken, err := ex.fungibleToken(quoteSymbol)
	if err != nil {
		return err
	}

	if orderType != Market {
		if orderSize.Cmp(minimumTokenQuantity(baseToken)) < 0 {
			return fmt.Errorf("%w: order size is not sufficient", chain.ErrValidation)
		}
		if price.Cmp(minimumTokenQuantity(quoteToken)) < 0 {
			return fmt.Errorf("%w: order price is not sufficient", chain.ErrValidation)
		}
	}

	uid := ex.rt.NextUID()

	escrowSymbol := CalculateEscrowSymbol(baseToken, quoteToken, side)
	escrowToken := baseToken
	if escrowSymbol == quoteSymbol {
		escrowToken = quoteToken
	}

	var escrowAmount *big.Int
	if orderType == Market {
		escrowAmount = new(big.Int).Set(orderSize)
		if escrowAmount.Cmp(minimumTokenQuantity(escrowToken)) < 0 {
			return fmt.Errorf("%w: market order size is not sufficient", chain.ErrValidation)
		}
	} else {
		escrowAmount = CalculateEscrowAmount(orderSize, price, baseToken, quoteToken, side)
	}

	if ex.ledger.BalanceOf(escrowSymbol, from).Cmp(escrowAmount) < 0 {
		return fmt.Errorf("%w: %s escrow requires %s", chain.ErrInsufficientFunds, escrowSymbol, escrowAmount)
	}
	if !ex.ledger.Transfer(escrowSymbol, from, ex.rt.ChainAddress(), escrowAmount) {
		return fmt.Errorf("%w: escrow lock of %s %s", chain.ErrTransferRejected, escrowAmount, escrowSymbol)
	}

	order := Order{
		UID:         uid,
		Timestamp:   ex.rt.Time(),
		Creator:     from,
		Amount:      new(big.Int).Set(orderSize),
		BaseSymbol:  baseSymbol,
		Price:       new(big.Int).Set(price),
		QuoteSymbol: quoteSymbol,
		Side:        side,
		Type:        orderType,
	}
	ex.rt.Notify(chain.EventOrderCreated, from, uid)

	key := bookKey(side, quoteSymbol, baseSymbol)
	list := ex.bookList(key)
	orderIndex := list.Append(order)
	ex.orderMap.Set(storage.UIDKey(uid), key)

	escrowUsage, err := ex.matchOrder(&order, baseToken, quoteToken, escrowSymbol, escrowAmount)
	if err != nil {
		return err
	}

	// Terminal disposition of the taker.
	leftover := new(big.Int).Sub(escrowAmount, escrowUsage)
	if leftover.Sign() == 0 || orderType != Limit {
		// The matching loop only removes from the opposite list, so
		// orderIndex is still valid here.
		if err := list.RemoveAt(orderIndex); err != nil {
			return fmt.Errorf("%w: %v", chain.ErrInternal, err)
		}
		ex.orderMap.Delete(storage.UIDKey(uid))
		ex.escrows.Delete(storage.UIDKey(uid))

		if leftover.Sign() > 0 {
			if !ex.ledger.Transfer(escrowSymbol, ex.rt.ChainAddress(), from, leftover) {
				return fmt.Errorf("%w: escrow refund of %s %s", chain.ErrTransferRejected, leftover, escrowSymbol)
			}
			ex.rt.Notify(chain.EventTokenReceive, from, chain.TokenEventData{
				ChainAddress: ex.rt.ChainAddress(), Symbol: escrowSymbol, Value: leftover,
			})
			ex.rt.Notify(chain.EventOrderCancelled, from, uid)
		} else {
			ex.rt.Notify(chain.EventOrderClosed, from, uid)
		}
	} else {
		ex.escrows.Set(storage.UIDKey(uid), leftover)
	}

	return nil
}

func (ex *Exchange) fungibleToken(symbol string) (token.Info, error) {
	info, ok := ex.tokens.Get(symbol)
	if !ok {
		return token.Info{}, fmt.Errorf("%w: invalid token %s", chain.ErrValidation, symbol)
	}
	if !info.Fungible {
		return token.Info{}, fmt.Errorf("%w: token %s must be fungible", chain.ErrValidation, symbol)
	}
	return info, nil
}

// CancelOrder removes a resting order and refunds its remaining escrow
// to its creator. Only the creator may cancel.
func (ex *Exchange) CancelOrder(uid uint64) error {
	var key string
	if !ex.orderMap.Get(storage.UIDKey(uid), &key) {
		return fmt.Errorf("%w: order %d", chain.ErrNotFound, uid)
	}
	list := ex.bookList(key)

	count := list.Count()
	for i := uint64(0); i < count; i++ {
		var order Order
		if err := list.Get(i, &order); err != nil {
			return fmt.Errorf("%w: %v", chain.ErrInternal, err)
		}
		if order.UID != uid {
			continue
		}
		if !ex.rt.IsWitness(order.Creator) {
			return fmt.Errorf("%w: only creator may cancel order %d", chain.ErrAuthorization, uid)
		}

		if err := list.RemoveAt(i); err != nil {
			return fmt.Errorf("%w: %v", chain.ErrInternal, err)
		}
		ex.orderMap.Delete(storage.UIDKey(uid))
		ex.fills.Delete(storage.UIDKey(uid))

		var leftover big.Int
		if ex.escrows.Get(storage.UIDKey(uid), &leftover) {
			ex.escrows.Delete(storage.UIDKey(uid))
			if leftover.Sign() > 0 {
				escrowSymbol := order.QuoteSymbol
				if order.Side == Sell {
					escrowSymbol = order.BaseSymbol
				}
				if !ex.ledger.Transfer(escrowSymbol, ex.rt.ChainAddress(), order.Creator, &leftover) {
					return fmt.Errorf("%w: cancel refund of %s %s", chain.ErrTransferRejected, leftover.String(), escrowSymbol)
				}
				ex.rt.Notify(chain.EventTokenReceive, order.Creator, chain.TokenEventData{
					ChainAddress: ex.rt.ChainAddress(), Symbol: escrowSymbol, Value: &leftover,
				})
			}
		}
		return nil
	}

	// Index entry pointed at a list the order is no longer in.
	return fmt.Errorf("%w: order %d", chain.ErrNotFound, uid)
}

// GetOrder fetches a single resting order by identifier.
func (ex *Exchange) GetOrder(uid uint64) (Order, error) {
	var key string
	if !ex.orderMap.Get(storage.UIDKey(uid), &key) {
		return Order{}, fmt.Errorf("%w: order %d", chain.ErrNotFound, uid)
	}
	list := ex.bookList(key)

	count := list.Count()
	for i := uint64(0); i < count; i++ {
		var order Order
		if err := list.Get(i, &order); err != nil {
			return Order{}, fmt.Errorf("%w: %v", chain.ErrInternal, err)
		}
		if order.UID == uid {
			return order, nil
		}
	}
	return Order{}, fmt.Errorf("%w: order %d", chain.ErrNotFound, uid)
}

// GetOrderLeftoverEscrow returns an order's remaining escrow.
func (ex *Exchange) GetOrderLeftoverEscrow(uid uint64) (*big.Int, error) {
	var leftover big.Int
	if !ex.escrows.Get(storage.UIDKey(uid), &leftover) {
		return nil, fmt.Errorf("%w: order %d", chain.ErrNotFound, uid)
	}
	return &leftover, nil
}

// GetOrderFilled returns the cumulative base amount settled against an
// order, zero if it never traded.
func (ex *Exchange) GetOrderFilled(uid uint64) *big.Int {
	var filled big.Int
	if !ex.fills.Get(storage.UIDKey(uid), &filled) {
		return new(big.Int)
	}
	return &filled
}

// GetOrderBook snapshots both sides of a pair's book, buys first.
// An empty pair yields an empty slice, never an error.
func (ex *Exchange) GetOrderBook(baseSymbol, quoteSymbol string) []Order {
	buys := ex.GetOrderBookSide(baseSymbol, quoteSymbol, Buy)
	sells := ex.GetOrderBookSide(baseSymbol, quoteSymbol, Sell)
	return append(buys, sells...)
}

// GetOrderBookSide snapshots one side of a pair's book in list order.
func (ex *Exchange) GetOrderBookSide(baseSymbol, quoteSymbol string, side Side) []Order {
	list := ex.bookList(bookKey(side, quoteSymbol, baseSymbol))
	count := list.Count()
	orders := make([]Order, 0, count)
	for i := uint64(0); i < count; i++ {
		var order Order
		if err := list.Get(i, &order); err != nil {
			break
		}
		orders = append(orders, order)
	}
	return orders
}
