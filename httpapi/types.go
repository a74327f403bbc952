package httpapi

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	settlement "github.com/x402-foundation/x402-settlement"
)

// Wire types follow the x402 convention: uint256 values as decimal
// strings, addresses and byte strings as 0x-prefixed hex.

// PermitJSON mirrors settlement.Permit.
type PermitJSON struct {
	Permitted struct {
		Token  string `json:"token"`
		Amount string `json:"amount"`
	} `json:"permitted"`
	Nonce    string `json:"nonce"`
	Deadline string `json:"deadline"`
}

// WitnessJSON mirrors settlement.Witness.
type WitnessJSON struct {
	Extra       string `json:"extra"`
	To          string `json:"to"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
}

// SelfPermitJSON carries an optional EIP-2612 permit: the 65-byte
// signature is split into v, r, s server-side.
type SelfPermitJSON struct {
	Value     string `json:"value"`
	Deadline  string `json:"deadline"`
	Signature string `json:"signature"`
}

// SettleRequest is the body of POST /settle and POST /verify.
type SettleRequest struct {
	Permit     PermitJSON      `json:"permit"`
	Amount     string          `json:"amount"`
	Owner      string          `json:"owner"`
	Witness    WitnessJSON     `json:"witness"`
	Signature  string          `json:"signature"`
	SelfPermit *SelfPermitJSON `json:"selfPermit,omitempty"`
}

// SettleResponse reports the outcome of a settlement call.
type SettleResponse struct {
	Success       bool   `json:"success"`
	ErrorReason   string `json:"errorReason,omitempty"`
	Owner         string `json:"owner,omitempty"`
	To            string `json:"to,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Token         string `json:"token,omitempty"`
	WitnessDigest string `json:"witnessDigest,omitempty"`
	SelfPermit    string `json:"selfPermit,omitempty"`
}

// VerifyResponse reports local validation only; a valid response does not
// imply the signature or nonce would be accepted downstream.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	WitnessDigest string `json:"witnessDigest,omitempty"`
}

// ConstantsResponse publishes the values an off-chain signer needs to
// construct a compatible authorization.
type ConstantsResponse struct {
	DomainName            string `json:"domainName"`
	PermitAuthority       string `json:"permitAuthority"`
	Engine                string `json:"engine"`
	DeterministicDeployer string `json:"deterministicDeployer"`
	WitnessType           string `json:"witnessType"`
	WitnessTypeString     string `json:"witnessTypeString"`
	WitnessTypehash       string `json:"witnessTypehash"`
	PermitWitnessTypehash string `json:"permitWitnessTypehash"`
}

// ToRequest converts the wire form into engine types.
func (r SettleRequest) ToRequest() (settlement.Request, error) {
	var req settlement.Request
	var err error

	if req.Owner, err = parseAddress(r.Owner); err != nil {
		return req, fmt.Errorf("owner: %w", err)
	}
	if req.Permit.Permitted.Token, err = parseAddress(r.Permit.Permitted.Token); err != nil {
		return req, fmt.Errorf("permit.permitted.token: %w", err)
	}
	if req.Permit.Permitted.Amount, err = parseBig(r.Permit.Permitted.Amount); err != nil {
		return req, fmt.Errorf("permit.permitted.amount: %w", err)
	}
	if req.Permit.Nonce, err = parseBig(r.Permit.Nonce); err != nil {
		return req, fmt.Errorf("permit.nonce: %w", err)
	}
	if req.Permit.Deadline, err = parseBig(r.Permit.Deadline); err != nil {
		return req, fmt.Errorf("permit.deadline: %w", err)
	}
	if req.Amount, err = parseBig(r.Amount); err != nil {
		return req, fmt.Errorf("amount: %w", err)
	}
	if req.Witness.To, err = parseAddress(r.Witness.To); err != nil {
		return req, fmt.Errorf("witness.to: %w", err)
	}
	if req.Witness.ValidAfter, err = parseBig(r.Witness.ValidAfter); err != nil {
		return req, fmt.Errorf("witness.validAfter: %w", err)
	}
	if req.Witness.ValidBefore, err = parseBig(r.Witness.ValidBefore); err != nil {
		return req, fmt.Errorf("witness.validBefore: %w", err)
	}
	if req.Witness.Extra, err = parseHexBytes(r.Witness.Extra); err != nil {
		return req, fmt.Errorf("witness.extra: %w", err)
	}
	if req.Signature, err = parseHexBytes(r.Signature); err != nil {
		return req, fmt.Errorf("signature: %w", err)
	}
	return req, nil
}

// ToSelfPermit converts the wire form, splitting the signature into v, r, s.
func (p SelfPermitJSON) ToSelfPermit() (settlement.SelfPermit, error) {
	var sp settlement.SelfPermit
	var err error
	if sp.Value, err = parseBig(p.Value); err != nil {
		return sp, fmt.Errorf("selfPermit.value: %w", err)
	}
	if sp.Deadline, err = parseBig(p.Deadline); err != nil {
		return sp, fmt.Errorf("selfPermit.deadline: %w", err)
	}
	sig, err := parseHexBytes(p.Signature)
	if err != nil {
		return sp, fmt.Errorf("selfPermit.signature: %w", err)
	}
	if len(sig) != 65 {
		return sp, errors.New("selfPermit.signature: must be 65 bytes")
	}
	copy(sp.R[:], sig[0:32])
	copy(sp.S[:], sig[32:64])
	sp.V = sig[64]
	return sp, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty numeric value")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid uint256 %q", s)
	}
	return v, nil
}

func parseHexBytes(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	return hexutil.Decode(s)
}
