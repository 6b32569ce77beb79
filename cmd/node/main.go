package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/umbra-chain/umbra/params"
	"github.com/umbra-chain/umbra/pkg/api"
	"github.com/umbra-chain/umbra/pkg/app/dex"
	"github.com/umbra-chain/umbra/pkg/storage"
	"github.com/umbra-chain/umbra/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	if err := os.MkdirAll(cfg.Node.DataDir, 0755); err != nil {
		log.Fatalf("data dir: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	store, err := storage.Open(filepath.Join(cfg.Node.DataDir, "chain"))
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	app := dex.NewApp(store, cfg.Node.ChainAddress, util.RealClock{}, sugar)
	sugar.Infow("chain_initialized", "chain_address", app.ChainAddress().Hex())

	tokens := make([]dex.GenesisToken, len(cfg.Genesis.Tokens))
	for i, t := range cfg.Genesis.Tokens {
		tokens[i] = dex.GenesisToken{Symbol: t.Symbol, Decimals: t.Decimals, Fungible: t.Fungible}
	}
	accounts := make([]dex.GenesisAccount, len(cfg.Genesis.Accounts))
	for i, a := range cfg.Genesis.Accounts {
		accounts[i] = dex.GenesisAccount{Address: a.Address, Symbol: a.Symbol, Amount: a.Amount}
	}
	if err := app.Bootstrap(tokens, accounts); err != nil {
		sugar.Fatalw("bootstrap_failed", "err", err)
	}

	server := api.NewServer(app)
	sugar.Infow("api_starting", "addr", cfg.Node.APIAddr)
	if err := server.Start(cfg.Node.APIAddr); err != nil {
		sugar.Fatalw("api_server_failed", "err", err)
	}
}
