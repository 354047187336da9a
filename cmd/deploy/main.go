// cmd/deploy/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"power-token-exchange/config"
	"power-token-exchange/contracts"
	"power-token-exchange/logger"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// deploy publishes CarbonCreditNFT using ETH_RPC_URL, CHAIN_ID,
// SIGNER_PRIVATE_KEY and CONTRACT_ARTIFACT.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.EthRPCURL == "" || cfg.SignerPrivateKey == "" {
		return fmt.Errorf("ETH_RPC_URL and SIGNER_PRIVATE_KEY are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	art, err := contracts.LoadArtifact(cfg.ContractArtifact)
	if err != nil {
		return err
	}
	auth, err := contracts.NewTransactor(cfg.SignerPrivateKey, cfg.ChainID)
	if err != nil {
		return err
	}
	client, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect RPC %s: %w", cfg.EthRPCURL, err)
	}
	defer client.Close()

	address, err := contracts.Deploy(ctx, client, auth, art)
	if err != nil {
		return err
	}
	fmt.Println("CarbonCreditNFT deployed to:", address.Hex())
	return nil
}
