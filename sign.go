package settlement

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Sign produces the payer's 65-byte authorization signature over the full
// EIP-712 digest for (permit, witness) with the given spender bound in.
// The recovery byte uses the 27/28 convention expected on-chain.
func Sign(key *ecdsa.PrivateKey, chainID *big.Int, authority common.Address, spender common.Address, permit Permit, witness Witness) ([]byte, error) {
	digest := PermitDigest(chainID, authority, permit, spender, WitnessHash(witness))
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("sign authorization: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// TypedData builds the complete EIP-712 typed-data payload for an
// authorization, suitable for wallets that sign typed data directly. Its
// digest is identical to PermitDigest; the fixed-order canonicalizer and
// this generic path must never diverge.
func TypedData(chainID *big.Int, authority common.Address, spender common.Address, permit Permit, witness Witness) apitypes.TypedData {
	extra := witness.Extra
	if extra == nil {
		extra = []byte{}
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PermitWitnessTransferFrom": {
				{Name: "permitted", Type: "TokenPermissions"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "witness", Type: "Witness"},
			},
			"TokenPermissions": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
			"Witness": {
				{Name: "extra", Type: "bytes"},
				{Name: "to", Type: "address"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
			},
		},
		PrimaryType: "PermitWitnessTransferFrom",
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			ChainId:           (*math.HexOrDecimal256)(bigOrZero(chainID)),
			VerifyingContract: authority.Hex(),
		},
		Message: map[string]interface{}{
			"permitted": map[string]interface{}{
				"token":  permit.Permitted.Token.Hex(),
				"amount": bigOrZero(permit.Permitted.Amount),
			},
			"spender":  spender.Hex(),
			"nonce":    bigOrZero(permit.Nonce),
			"deadline": bigOrZero(permit.Deadline),
			"witness": map[string]interface{}{
				"extra":       extra,
				"to":          witness.To.Hex(),
				"validAfter":  bigOrZero(witness.ValidAfter),
				"validBefore": bigOrZero(witness.ValidBefore),
			},
		},
	}
}

// TypedDataDigest hashes the typed-data payload through the generic EIP-712
// path: keccak256("\x19\x01" ‖ domainSeparator ‖ structHash).
func TypedDataDigest(data apitypes.TypedData) (common.Hash, error) {
	structHash, err := data.HashStruct(data.PrimaryType, data.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash struct: %w", err)
	}
	domainSeparator, err := data.HashStruct("EIP712Domain", data.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash domain: %w", err)
	}
	raw := []byte{0x19, 0x01}
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256Hash(raw), nil
}
