package main

import (
	"flag"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	settlement "github.com/x402-foundation/x402-settlement"
	"github.com/x402-foundation/x402-settlement/deploy"
)

func address(args []string) error {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	deployer := fs.String("deployer", settlement.DeterministicDeployerAddress.Hex(), "Deterministic deployer address")
	saltHex := fs.String("salt", "", "32-byte salt (required)")
	initCode := fs.String("init-code", "", "Init code hex (mutually exclusive with -init-code-hash)")
	initCodeHash := fs.String("init-code-hash", "", "keccak256 of the init code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *saltHex == "" {
		fs.Usage()
		return fmt.Errorf("-salt is required")
	}
	saltBytes, err := hexutil.Decode(*saltHex)
	if err != nil || len(saltBytes) != 32 {
		return fmt.Errorf("invalid salt %q", *saltHex)
	}

	var hash common.Hash
	switch {
	case *initCode != "":
		code, err := hexutil.Decode(*initCode)
		if err != nil {
			return fmt.Errorf("invalid init code: %w", err)
		}
		hash = deploy.InitCodeHash(code)
	case *initCodeHash != "":
		hashBytes, err := hexutil.Decode(*initCodeHash)
		if err != nil || len(hashBytes) != 32 {
			return fmt.Errorf("invalid init code hash %q", *initCodeHash)
		}
		hash = common.BytesToHash(hashBytes)
	default:
		fs.Usage()
		return fmt.Errorf("one of -init-code or -init-code-hash is required")
	}

	var salt [32]byte
	copy(salt[:], saltBytes)
	fmt.Println(deploy.ComputeAddress(common.HexToAddress(*deployer), salt, hash).Hex())
	return nil
}
