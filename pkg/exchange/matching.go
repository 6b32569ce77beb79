package exchange

import (
	"fmt"
	"math/big"

	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/storage"
	"github.com/umbra-chain/umbra/pkg/token"
)

// matchOrder runs the matching loop for a freshly inserted taker order
// against the opposite-side list of the same pair. Returns the total
// taker escrow consumed. Maker orders whose escrow is fully consumed
// are removed from book, index and escrow map inside the loop.
//
// Best-maker selection is a full deterministic scan every iteration:
// relying on insertion order would make replay results depend on
// removal history, which swap-remove does not preserve.
func (ex *Exchange) matchOrder(taker *Order, baseToken, quoteToken token.Info, escrowSymbol string, escrowAmount *big.Int) (*big.Int, error) {
	makerKey := bookKey(taker.Side.Opposite(), taker.QuoteSymbol, taker.BaseSymbol)
	makerList := ex.bookList(makerKey)

	escrowToken := baseToken
	makerEscrowSymbol := taker.QuoteSymbol
	makerEscrowToken := quoteToken
	if escrowSymbol == taker.QuoteSymbol {
		escrowToken = quoteToken
		makerEscrowSymbol = taker.BaseSymbol
		makerEscrowToken = baseToken
	}

	escrowUsage := new(big.Int)

	for escrowUsage.Cmp(escrowAmount) < 0 {
		bestIndex, best, found, err := ex.findBestMaker(makerList, taker)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		takerAvailable := new(big.Int).Sub(escrowAmount, escrowUsage)

		var makerEscrow big.Int
		if !ex.escrows.Get(storage.UIDKey(best.UID), &makerEscrow) {
			return nil, fmt.Errorf("%w: orderbook entry %d has no registered escrow", chain.ErrInternal, best.UID)
		}

		// Bound the fill by both parties' escrow, converting across
		// assets at the maker's price.
		var takerEscrowUsage, makerEscrowUsage *big.Int
		if escrowSymbol == taker.BaseSymbol {
			makerEscrowBaseEquivalent := ConvertQuoteToBase(&makerEscrow, best.Price, baseToken)
			takerEscrowUsage = bigMin(takerAvailable, makerEscrowBaseEquivalent)
			makerEscrowUsage = CalculateEscrowAmount(takerEscrowUsage, best.Price, baseToken, quoteToken, Buy)
		} else {
			takerEscrowBaseEquivalent := ConvertQuoteToBase(takerAvailable, best.Price, baseToken)
			makerEscrowUsage = bigMin(&makerEscrow, takerEscrowBaseEquivalent)
			takerEscrowUsage = CalculateEscrowAmount(makerEscrowUsage, best.Price, baseToken, quoteToken, Buy)
		}

		if takerEscrowUsage.Cmp(takerAvailable) > 0 {
			return nil, fmt.Errorf("%w: taker fill %s exceeds available escrow %s", chain.ErrInternal, takerEscrowUsage, takerAvailable)
		}
		if makerEscrowUsage.Cmp(&makerEscrow) > 0 {
			return nil, fmt.Errorf("%w: maker fill %s exceeds available escrow %s", chain.ErrInternal, makerEscrowUsage, &makerEscrow)
		}

		// Sub-threshold legs end matching instead of settling dust;
		// this also bounds the loop against ever-smaller increments.
		if takerEscrowUsage.Cmp(minimumTokenQuantity(escrowToken)) < 0 ||
			makerEscrowUsage.Cmp(minimumTokenQuantity(makerEscrowToken)) < 0 {
			break
		}

		chainAddr := ex.rt.ChainAddress()
		if !ex.ledger.Transfer(escrowSymbol, chainAddr, best.Creator, takerEscrowUsage) {
			return nil, fmt.Errorf("%w: settlement of %s %s to maker", chain.ErrTransferRejected, takerEscrowUsage, escrowSymbol)
		}
		if !ex.ledger.Transfer(makerEscrowSymbol, chainAddr, taker.Creator, makerEscrowUsage) {
			return nil, fmt.Errorf("%w: settlement of %s %s to taker", chain.ErrTransferRejected, makerEscrowUsage, makerEscrowSymbol)
		}

		ex.rt.Notify(chain.EventTokenReceive, best.Creator, chain.TokenEventData{
			ChainAddress: chainAddr, Symbol: escrowSymbol, Value: takerEscrowUsage,
		})
		ex.rt.Notify(chain.EventTokenReceive, taker.Creator, chain.TokenEventData{
			ChainAddress: chainAddr, Symbol: makerEscrowSymbol, Value: makerEscrowUsage,
		})

		escrowUsage.Add(escrowUsage, takerEscrowUsage)

		ex.rt.Notify(chain.EventOrderFilled, taker.Creator, taker.UID)
		ex.rt.Notify(chain.EventOrderFilled, best.Creator, best.UID)

		baseFilled := takerEscrowUsage
		if escrowSymbol == taker.QuoteSymbol {
			baseFilled = makerEscrowUsage
		}
		ex.addFill(taker.UID, baseFilled)
		ex.addFill(best.UID, baseFilled)

		if makerEscrowUsage.Cmp(&makerEscrow) == 0 {
			if err := makerList.RemoveAt(bestIndex); err != nil {
				return nil, fmt.Errorf("%w: %v", chain.ErrInternal, err)
			}
			ex.orderMap.Delete(storage.UIDKey(best.UID))
			ex.escrows.Delete(storage.UIDKey(best.UID))
			ex.rt.Notify(chain.EventOrderClosed, best.Creator, best.UID)
		} else {
			ex.escrows.Set(storage.UIDKey(best.UID), new(big.Int).Sub(&makerEscrow, makerEscrowUsage))
		}
	}

	return escrowUsage, nil
}

// findBestMaker scans the whole opposite list and picks the best
// eligible maker by price, ties broken by earliest timestamp.
func (ex *Exchange) findBestMaker(makerList storage.List, taker *Order) (uint64, Order, bool, error) {
	var (
		bestIndex uint64
		best      Order
		found     bool
	)

	count := makerList.Count()
	for i := uint64(0); i < count; i++ {
		var maker Order
		if err := makerList.Get(i, &maker); err != nil {
			return 0, Order{}, false, fmt.Errorf("%w: %v", chain.ErrInternal, err)
		}

		if taker.Type != Market {
			if taker.Side == Buy && maker.Price.Cmp(taker.Price) > 0 {
				continue // too expensive, we won't buy at this price
			}
			if taker.Side == Sell && maker.Price.Cmp(taker.Price) < 0 {
				continue // too cheap, we won't sell at this price
			}
		}

		if !found || betterMaker(taker.Side, maker, best) {
			bestIndex = i
			best = maker
			found = true
		}
	}

	return bestIndex, best, found, nil
}

// betterMaker reports whether a beats b from the taker's point of view:
// a Buy taker wants the lowest price, a Sell taker the highest, with
// the earlier timestamp winning at equal price.
func betterMaker(takerSide Side, a, b Order) bool {
	cmp := a.Price.Cmp(b.Price)
	if cmp == 0 {
		return a.Timestamp < b.Timestamp
	}
	if takerSide == Buy {
		return cmp < 0
	}
	return cmp > 0
}

func (ex *Exchange) addFill(uid uint64, baseAmount *big.Int) {
	var filled big.Int
	ex.fills.Get(storage.UIDKey(uid), &filled)
	filled.Add(&filled, baseAmount)
	ex.fills.Set(storage.UIDKey(uid), &filled)
}
