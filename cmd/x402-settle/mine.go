package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	settlement "github.com/x402-foundation/x402-settlement"
	"github.com/x402-foundation/x402-settlement/vanity"
)

func mine(args []string) error {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	name := fs.String("name", "engine", "Contract name folded into each salt")
	pattern := fs.String("pattern", "", "Target hex pattern (required)")
	contains := fs.Bool("contains", false, "Match the pattern anywhere, not just as prefix")
	budget := fs.Uint64("budget", 1_000_000, "Attempt budget")
	deployer := fs.String("deployer", settlement.DeterministicDeployerAddress.Hex(), "Deterministic deployer address")
	initCodeHash := fs.String("init-code-hash", "", "keccak256 of the init code (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pattern == "" || *initCodeHash == "" {
		fs.Usage()
		return fmt.Errorf("-pattern and -init-code-hash are required")
	}
	if !common.IsHexAddress(*deployer) {
		return fmt.Errorf("invalid deployer address %q", *deployer)
	}
	hashBytes, err := hexutil.Decode(*initCodeHash)
	if err != nil || len(hashBytes) != 32 {
		return fmt.Errorf("invalid init code hash %q", *initCodeHash)
	}

	mode := vanity.ModePrefix
	if *contains {
		mode = vanity.ModeContains
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := vanity.Mine(ctx, vanity.Options{
		ContractName: *name,
		Deployer:     common.HexToAddress(*deployer),
		InitCodeHash: common.BytesToHash(hashBytes),
		Pattern:      *pattern,
		Mode:         mode,
		Budget:       *budget,
	})
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"found":    result.Found,
		"attempts": result.Attempts,
		"elapsed":  result.Elapsed.String(),
	}
	if result.Found {
		out["address"] = result.Match.Address.Hex()
		out["salt"] = hexutil.Encode(result.Match.Salt[:])
		out["counter"] = result.Match.Counter
	} else if result.Best != nil {
		out["bestAddress"] = result.Best.Address.Hex()
		out["bestSalt"] = hexutil.Encode(result.Best.Salt[:])
		out["bestOffset"] = result.Best.Offset
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}
