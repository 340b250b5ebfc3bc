// Example usage of the OpenSea SDK Go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	opensea "github.com/kaifufi/opensea-sdk-go"
	"github.com/kaifufi/opensea-sdk-go/chain"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	tokenAddress := flag.String("token", "", "asset contract address")
	tokenID := flag.String("id", "", "asset token id")
	account := flag.String("account", "", "account address for ownership and order creation")
	schemaName := flag.String("schema", "ERC721", "asset schema: ERC721, ERC20 or ERC1155")
	flag.Parse()

	// A missing .env is fine; values may come from the real environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	schema, err := chain.SchemaByName(*schemaName)
	if err != nil {
		log.Fatalf("Invalid schema: %v", err)
	}

	config, err := opensea.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := opensea.NewClient(*config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Example: Get open sell orders for the asset
	fmt.Println("Fetching orders...")
	side := opensea.OrderSideSell
	orders, count, err := client.GetOrders(ctx, opensea.OrderQuery{
		AssetContractAddress: *tokenAddress,
		TokenID:              *tokenID,
		Side:                 &side,
		Limit:                10,
	})
	if err != nil {
		log.Printf("Failed to get orders: %v", err)
	} else {
		fmt.Printf("Found %d orders (%d total)\n", len(orders), count)
		for _, order := range orders {
			fmt.Printf("  %s price=%s expired=%v\n", order.Hash, order.CurrentPrice, opensea.IsExpired(order, time.Now()))
		}
	}

	// Example: Get the asset
	fmt.Println("\nFetching asset...")
	asset, err := client.GetAsset(ctx, *tokenAddress, *tokenID, true)
	if err != nil {
		log.Printf("Failed to get asset: %v", err)
	} else {
		fmt.Printf("Asset: %s owned by %s\n", asset.Name, asset.Owner.Address)
		for _, order := range asset.Orders {
			fee := opensea.FeeFromBasisPoints(order.CurrentPrice, asset.AssetContract.SellerFeeBasisPoints)
			fmt.Printf("  %s price=%s seller fee=%s\n", order.Hash, order.CurrentPrice, fee)
		}
	}

	if *account == "" || config.RPCURL == "" {
		return
	}

	// Example: Check ownership
	fmt.Println("\nChecking ownership...")
	ownership := client.GetAssetOwnership(ctx, *account, chain.Asset{
		TokenID:      *tokenID,
		TokenAddress: *tokenAddress,
	}, schema)
	fmt.Printf("Ownership: %s\n", ownership)

	// Example: Create a signed buy order for 0.01 WETH
	fmt.Println("\nCreating order...")
	price, err := opensea.ToBaseUnits(decimal.RequireFromString("0.01"), 18)
	if err != nil {
		log.Fatalf("Failed to convert price: %v", err)
	}
	order, err := client.CreateOrder(ctx, opensea.CreateOrderInput{
		Maker:          *account,
		Side:           opensea.OrderSideBuy,
		SaleKind:       opensea.SaleKindFixedPrice,
		Target:         *tokenAddress,
		PaymentToken:   os.Getenv("OPENSEA_PAYMENT_TOKEN"),
		BasePrice:      price,
		ExpirationTime: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		log.Printf("Failed to create order: %v", err)
		return
	}
	fmt.Printf("Order hash: %s\n", order.Hash)

	posted, err := client.PostOrder(ctx, order)
	if err != nil {
		log.Printf("Failed to post order: %v", err)
		return
	}
	fmt.Printf("Posted order: %s\n", posted.Hash)
}
