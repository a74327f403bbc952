// Package deploy implements deterministic (CREATE2) address computation and
// idempotent deployment through the well-known deterministic deployer, plus
// persistence of deployment records.
package deploy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ComputeAddress maps (deployer, salt, initCodeHash) to the contract
// address per the CREATE2 rule:
//
//	last20Bytes(keccak256(0xFF ‖ deployer ‖ salt ‖ initCodeHash))
//
// The same triple yields the identical address on every chain sharing the
// deployer, which is what pins the engine to one canonical address.
func ComputeAddress(deployer common.Address, salt [32]byte, initCodeHash common.Hash) common.Address {
	return crypto.CreateAddress2(deployer, salt, initCodeHash.Bytes())
}

// BuildInitCode appends ABI-encoded constructor arguments to the creation
// code. args describes the constructor signature; values are the concrete
// arguments.
func BuildInitCode(creationCode []byte, args abi.Arguments, values ...interface{}) ([]byte, error) {
	if len(args) == 0 {
		return creationCode, nil
	}
	encoded, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("encode constructor args: %w", err)
	}
	return append(append([]byte{}, creationCode...), encoded...), nil
}

// InitCodeHash hashes init code for address computation and mining. The
// hash is fixed for a whole vanity search.
func InitCodeHash(initCode []byte) common.Hash {
	return crypto.Keccak256Hash(initCode)
}
