package settlement

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PermitAuthority is the external component owning nonce bookkeeping and
// performing the actual signature-checked transfer. The engine treats it as
// untrusted: it may revert, and it may attempt to call back into the engine.
type PermitAuthority interface {
	// Address is the Authority's identity. Token allowances that back
	// delegated transfers are granted to this address.
	Address() common.Address

	// PermitWitnessTransferFrom moves transfer.RequestedAmount of
	// permit.Permitted.Token from owner to transfer.To, after independently
	// verifying the signature against owner (with the witness digest bound
	// in), nonce freshness, and the permit deadline.
	PermitWitnessTransferFrom(
		ctx context.Context,
		permit Permit,
		transfer TransferDetails,
		owner common.Address,
		witness common.Hash,
		witnessTypeString string,
		signature []byte,
	) error
}

// TokenPermitter exposes the optional EIP-2612 style self-service permit of
// a token: a signed allowance grant submitted by a third party.
type TokenPermitter interface {
	Permit(
		ctx context.Context,
		token common.Address,
		owner common.Address,
		spender common.Address,
		value *big.Int,
		deadline *big.Int,
		v uint8,
		r [32]byte,
		s [32]byte,
	) error
}
