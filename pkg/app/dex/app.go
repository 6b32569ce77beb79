package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/exchange"
	"github.com/umbra-chain/umbra/pkg/storage"
	"github.com/umbra-chain/umbra/pkg/token"
	"github.com/umbra-chain/umbra/pkg/util"
)

// GenesisToken declares an asset created at first boot.
type GenesisToken struct {
	Symbol   string
	Decimals uint32
	Fungible bool
}

// GenesisAccount seeds a development balance at first boot.
type GenesisAccount struct {
	Address common.Address
	Symbol  string
	Amount  *big.Int
}

// App binds the venue's ledger calls to a single persistent chain
// instance. Every mutating method runs as one atomic call witnessed by
// the acting address; queries run against committed state only.
type App struct {
	chain *chain.Chain
	log   *zap.SugaredLogger
}

func NewApp(store *storage.Store, chainAddr common.Address, clock util.Clock, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{chain: chain.New(store, chainAddr, clock, log), log: log}
}

// ChainAddress is the venue's custodial escrow account.
func (a *App) ChainAddress() common.Address { return a.chain.Address() }

// Bootstrap creates the genesis assets and dev balances. It is a no-op
// when the first declared token already exists, so restarting a node
// never re-mints.
func (a *App) Bootstrap(tokens []GenesisToken, accounts []GenesisAccount) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := a.chain.Execute(nil, func(rt chain.Runtime) error {
		reg := token.NewRegistry(rt.Store())
		if reg.Exists(tokens[0].Symbol) {
			return nil
		}
		led := token.NewLedger(rt.Store())
		for _, t := range tokens {
			if err := reg.Create(token.Info{Symbol: t.Symbol, Decimals: t.Decimals, Fungible: t.Fungible}); err != nil {
				return err
			}
			a.log.Infow("token_created", "symbol", t.Symbol, "decimals", t.Decimals, "fungible", t.Fungible)
		}
		for _, acc := range accounts {
			led.Mint(acc.Symbol, acc.Address, acc.Amount)
			a.log.Infow("genesis_balance", "address", acc.Address.Hex(), "symbol", acc.Symbol, "amount", acc.Amount.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}

func (a *App) call(witness common.Address, fn func(ex *exchange.Exchange) error) ([]chain.Event, error) {
	return a.chain.Execute([]common.Address{witness}, func(rt chain.Runtime) error {
		return fn(exchange.New(rt, token.NewRegistry(rt.Store()), token.NewLedger(rt.Store())))
	})
}

func (a *App) view(fn func(ex *exchange.Exchange) error) error {
	return a.chain.View(func(rt chain.Runtime) error {
		return fn(exchange.New(rt, token.NewRegistry(rt.Store()), token.NewLedger(rt.Store())))
	})
}

func (a *App) OpenLimitOrder(from common.Address, baseSymbol, quoteSymbol string, size, price *big.Int, side exchange.Side, ioc bool) ([]chain.Event, error) {
	return a.call(from, func(ex *exchange.Exchange) error {
		return ex.OpenLimitOrder(from, baseSymbol, quoteSymbol, size, price, side, ioc)
	})
}

func (a *App) OpenMarketOrder(from common.Address, baseSymbol, quoteSymbol string, size *big.Int, side exchange.Side) ([]chain.Event, error) {
	return a.call(from, func(ex *exchange.Exchange) error {
		return ex.OpenMarketOrder(from, baseSymbol, quoteSymbol, size, side)
	})
}

func (a *App) CancelOrder(from common.Address, uid uint64) ([]chain.Event, error) {
	return a.call(from, func(ex *exchange.Exchange) error {
		return ex.CancelOrder(uid)
	})
}

func (a *App) SwapTokens(buyer, seller common.Address, baseSymbol, quoteSymbol string, amount, price *big.Int, signature []byte) ([]chain.Event, error) {
	return a.call(buyer, func(ex *exchange.Exchange) error {
		return ex.SwapTokens(buyer, seller, baseSymbol, quoteSymbol, amount, price, signature)
	})
}

func (a *App) SwapToken(buyer, seller common.Address, baseSymbol, quoteSymbol string, tokenID, price *big.Int, signature []byte) ([]chain.Event, error) {
	return a.call(buyer, func(ex *exchange.Exchange) error {
		return ex.SwapToken(buyer, seller, baseSymbol, quoteSymbol, tokenID, price, signature)
	})
}

func (a *App) Order(uid uint64) (exchange.Order, error) {
	var out exchange.Order
	err := a.view(func(ex *exchange.Exchange) error {
		order, err := ex.GetOrder(uid)
		if err != nil {
			return err
		}
		out = order
		return nil
	})
	return out, err
}

func (a *App) OrderLeftoverEscrow(uid uint64) (*big.Int, error) {
	var out *big.Int
	err := a.view(func(ex *exchange.Exchange) error {
		left, err := ex.GetOrderLeftoverEscrow(uid)
		if err != nil {
			return err
		}
		out = left
		return nil
	})
	return out, err
}

func (a *App) OrderFilled(uid uint64) *big.Int {
	out := new(big.Int)
	a.view(func(ex *exchange.Exchange) error {
		out = ex.GetOrderFilled(uid)
		return nil
	})
	return out
}

func (a *App) OrderBook(baseSymbol, quoteSymbol string) []exchange.Order {
	var out []exchange.Order
	a.view(func(ex *exchange.Exchange) error {
		out = ex.GetOrderBook(baseSymbol, quoteSymbol)
		return nil
	})
	return out
}

func (a *App) OrderBookSide(baseSymbol, quoteSymbol string, side exchange.Side) []exchange.Order {
	var out []exchange.Order
	a.view(func(ex *exchange.Exchange) error {
		out = ex.GetOrderBookSide(baseSymbol, quoteSymbol, side)
		return nil
	})
	return out
}

func (a *App) Token(symbol string) (token.Info, bool) {
	var (
		out token.Info
		ok  bool
	)
	a.chain.View(func(rt chain.Runtime) error {
		out, ok = token.NewRegistry(rt.Store()).Get(symbol)
		return nil
	})
	return out, ok
}

func (a *App) Balance(symbol string, addr common.Address) *big.Int {
	out := new(big.Int)
	a.chain.View(func(rt chain.Runtime) error {
		out = token.NewLedger(rt.Store()).BalanceOf(symbol, addr)
		return nil
	})
	return out
}
