package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/crypto"
	"github.com/umbra-chain/umbra/pkg/exchange"
)

// sign-swap produces the seller's signature for an OTC trade and the
// ready-to-POST JSON payload for /api/v1/swaps. Run without -key to
// generate a throwaway devnet keypair.
func main() {
	var (
		keyHex      = flag.String("key", "", "seller private key hex (generates a new key when empty)")
		buyerHex    = flag.String("buyer", "", "buyer address")
		baseSymbol  = flag.String("base", "UMB", "base token symbol")
		quoteSymbol = flag.String("quote", "USDC", "quote token symbol")
		valueStr    = flag.String("value", "5000", "base amount (or item id with -nft)")
		priceStr    = flag.String("price", "45000", "quote amount the buyer pays")
		nft         = flag.Bool("nft", false, "treat value as a non-fungible item id")
	)
	flag.Parse()

	var (
		signer *crypto.Signer
		err    error
	)
	if *keyHex == "" {
		fmt.Println("Generating new keypair...")
		signer, err = crypto.GenerateKey()
		if err == nil {
			fmt.Printf("Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
		}
	} else {
		signer, err = crypto.FromPrivateKeyHex(*keyHex)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seller Address: %s\n\n", signer.Address().Hex())

	if !common.IsHexAddress(*buyerHex) {
		fmt.Println("Error: -buyer must be a hex address")
		os.Exit(1)
	}
	value, ok := new(big.Int).SetString(*valueStr, 10)
	if !ok {
		fmt.Printf("Error: invalid value %q\n", *valueStr)
		os.Exit(1)
	}
	price, ok := new(big.Int).SetString(*priceStr, 10)
	if !ok {
		fmt.Printf("Error: invalid price %q\n", *priceStr)
		os.Exit(1)
	}

	swap := exchange.TokenSwap{
		Buyer:       common.HexToAddress(*buyerHex),
		Seller:      signer.Address(),
		BaseSymbol:  *baseSymbol,
		QuoteSymbol: *quoteSymbol,
		Value:       value,
		Price:       price,
	}

	signature, err := signer.Sign(swap.Hash())
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Swap Terms:")
	fmt.Printf("  Buyer:  %s\n", swap.Buyer.Hex())
	fmt.Printf("  Seller: %s\n", swap.Seller.Hex())
	fmt.Printf("  Pair:   %s/%s\n", swap.BaseSymbol, swap.QuoteSymbol)
	fmt.Printf("  Value:  %s\n", swap.Value.String())
	fmt.Printf("  Price:  %s\n\n", swap.Price.String())
	fmt.Printf("Signature: 0x%x\n\n", signature)

	// Sanity check the signature before handing it out.
	if !crypto.VerifySignature(signer.Address(), swap.Hash(), signature) {
		fmt.Println("Signature verification FAILED")
		os.Exit(1)
	}

	payload := map[string]any{
		"buyer":       swap.Buyer.Hex(),
		"seller":      swap.Seller.Hex(),
		"baseSymbol":  swap.BaseSymbol,
		"quoteSymbol": swap.QuoteSymbol,
		"value":       swap.Value.String(),
		"price":       swap.Price.String(),
		"signature":   fmt.Sprintf("0x%x", signature),
	}
	if *nft {
		payload["nonFungible"] = true
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("To settle this swap:")
	fmt.Println("  POST http://localhost:8080/api/v1/swaps")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(body))
}
