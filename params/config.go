package params

import (
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Node struct {
	// DataDir holds the pebble database and log files.
	DataDir string
	APIAddr string
	LogFile string
	// ChainAddress is the venue's custodial escrow account. All open
	// orders park their escrow under this address.
	ChainAddress common.Address
}

type TokenSpec struct {
	Symbol   string
	Decimals uint32
	Fungible bool
}

type AccountSpec struct {
	Address common.Address
	Symbol  string
	Amount  *big.Int
}

type Genesis struct {
	Tokens   []TokenSpec
	Accounts []AccountSpec
}

type Config struct {
	Node    Node
	Genesis Genesis
}

func Default() Config {
	return Config{
		Node: Node{
			DataDir:      "data",
			APIAddr:      ":8080",
			LogFile:      "data/node.log",
			ChainAddress: common.HexToAddress("0x00000000000000000000000000000000756d6272"),
		},
		Genesis: Genesis{
			Tokens: []TokenSpec{
				{Symbol: "UMB", Decimals: 8, Fungible: true},
				{Symbol: "USDC", Decimals: 2, Fungible: true},
			},
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Node.DataDir = getEnv("DATA_DIR", cfg.Node.DataDir)
	cfg.Node.APIAddr = getEnv("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)
	if addr := os.Getenv("CHAIN_ADDRESS"); common.IsHexAddress(addr) {
		cfg.Node.ChainAddress = common.HexToAddress(addr)
	}

	// Genesis tokens as "SYMBOL:decimals[,SYMBOL:decimals...]",
	// e.g. "UMB:8,USDC:2". Symbols prefixed with "!" are non-fungible.
	if tokens := os.Getenv("GENESIS_TOKENS"); tokens != "" {
		if parsed := parseTokens(tokens); len(parsed) > 0 {
			cfg.Genesis.Tokens = parsed
		}
	}

	// Dev balances as "0xaddr:SYMBOL:amount[,...]"; intended for
	// devnet faucets only.
	if accounts := os.Getenv("GENESIS_ACCOUNTS"); accounts != "" {
		cfg.Genesis.Accounts = parseAccounts(accounts)
	}

	return cfg
}

func parseTokens(s string) []TokenSpec {
	var out []TokenSpec
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			continue
		}
		symbol := parts[0]
		fungible := true
		if strings.HasPrefix(symbol, "!") {
			symbol = strings.TrimPrefix(symbol, "!")
			fungible = false
		}
		decimals, ok := new(big.Int).SetString(parts[1], 10)
		if !ok || symbol == "" {
			continue
		}
		out = append(out, TokenSpec{Symbol: symbol, Decimals: uint32(decimals.Uint64()), Fungible: fungible})
	}
	return out
}

func parseAccounts(s string) []AccountSpec {
	var out []AccountSpec
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 || !common.IsHexAddress(parts[0]) {
			continue
		}
		amount, ok := new(big.Int).SetString(parts[2], 10)
		if !ok {
			continue
		}
		out = append(out, AccountSpec{
			Address: common.HexToAddress(parts[0]),
			Symbol:  parts[1],
			Amount:  amount,
		})
	}
	return out
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
