package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/x402-foundation/x402-settlement/chain"
	"github.com/x402-foundation/x402-settlement/deploy"
)

func deployRun(args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	rpcURL := fs.String("rpc", "", "RPC endpoint (required)")
	keyHex := fs.String("key", "", "Hex private key of the funding account (required)")
	saltHex := fs.String("salt", "", "32-byte salt (required)")
	initCode := fs.String("init-code", "", "Init code hex (required)")
	dbPath := fs.String("db", "deployments.db", "Deployment record store path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rpcURL == "" || *keyHex == "" || *saltHex == "" || *initCode == "" {
		fs.Usage()
		return fmt.Errorf("-rpc, -key, -salt and -init-code are required")
	}
	saltBytes, err := hexutil.Decode(*saltHex)
	if err != nil || len(saltBytes) != 32 {
		return fmt.Errorf("invalid salt %q", *saltHex)
	}
	code, err := hexutil.Decode(*initCode)
	if err != nil {
		return fmt.Errorf("invalid init code: %w", err)
	}

	ctx := context.Background()
	client, err := chain.Dial(ctx, *rpcURL, *keyHex)
	if err != nil {
		return err
	}
	store, err := deploy.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var salt [32]byte
	copy(salt[:], saltBytes)
	result, err := deploy.NewDeployer(client).Deploy(ctx, salt, code)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, result.Record); err != nil {
		return err
	}

	slog.Info("deployment recorded",
		"address", result.Record.Address,
		"network", result.Record.Network,
		"skipped", result.Skipped)
	fmt.Println(result.Record.Address)
	return nil
}
