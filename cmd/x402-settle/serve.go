package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	settlement "github.com/x402-foundation/x402-settlement"
	"github.com/x402-foundation/x402-settlement/chain"
	"github.com/x402-foundation/x402-settlement/httpapi"
)

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	rpcURL := fs.String("rpc", "", "RPC endpoint (required)")
	keyHex := fs.String("key", "", "Hex private key of the submitting account (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rpcURL == "" || *keyHex == "" {
		fs.Usage()
		return fmt.Errorf("-rpc and -key are required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := chain.Dial(context.Background(), *rpcURL, *keyHex)
	if err != nil {
		return err
	}
	authority := chain.NewAuthority(client)

	engine, err := settlement.NewEngine(authority,
		settlement.WithTokenPermitter(authority),
		settlement.WithRecorder(func(ev settlement.SettlementRecorded) {
			logger.Info("settlement recorded",
				"owner", ev.Owner.Hex(), "to", ev.To.Hex(),
				"amount", ev.Amount, "token", ev.Token.Hex())
		}),
	)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(engine, httpapi.WithLogger(logger))
	return server.Run(*addr)
}
