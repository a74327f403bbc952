package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	settlement "github.com/x402-foundation/x402-settlement"
)

// Authority is the on-chain Permit Authority seen through a Client. Each
// delegated transfer becomes one transaction to the canonical Permit2
// contract; failures surface as revert errors from the node, passed
// through to the engine unmodified.
type Authority struct {
	client *Client
	addr   common.Address
}

// NewAuthority binds a client to the canonical Permit Authority address.
func NewAuthority(client *Client) *Authority {
	return &Authority{client: client, addr: settlement.PermitAuthorityAddress}
}

// Address implements settlement.PermitAuthority.
func (a *Authority) Address() common.Address { return a.addr }

// PermitWitnessTransferFrom implements settlement.PermitAuthority by
// submitting the transfer transaction and waiting for it to be mined. The
// signature must bind the client's sender address as spender, since the
// Authority checks msg.sender against the signed spender.
func (a *Authority) PermitWitnessTransferFrom(
	ctx context.Context,
	permit settlement.Permit,
	transfer settlement.TransferDetails,
	owner common.Address,
	witness common.Hash,
	witnessTypeString string,
	signature []byte,
) error {
	permitArg := struct {
		Permitted struct {
			Token  common.Address
			Amount *big.Int
		}
		Nonce    *big.Int
		Deadline *big.Int
	}{
		Permitted: struct {
			Token  common.Address
			Amount *big.Int
		}{
			Token:  permit.Permitted.Token,
			Amount: permit.Permitted.Amount,
		},
		Nonce:    permit.Nonce,
		Deadline: permit.Deadline,
	}
	transferArg := struct {
		To              common.Address
		RequestedAmount *big.Int
	}{
		To:              transfer.To,
		RequestedAmount: transfer.RequestedAmount,
	}

	txHash, err := a.client.invoke(ctx, a.addr, PermitWitnessTransferFromABI,
		"permitWitnessTransferFrom",
		permitArg, transferArg, owner, [32]byte(witness), witnessTypeString, signature,
	)
	if err != nil {
		return err
	}
	return a.client.WaitMined(ctx, txHash)
}

// Permit implements settlement.TokenPermitter by submitting the token's
// self-service permit transaction.
func (a *Authority) Permit(ctx context.Context, token, owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error {
	txHash, err := a.client.invoke(ctx, token, ERC2612PermitABI,
		"permit", owner, spender, value, deadline, v, r, s,
	)
	if err != nil {
		return err
	}
	return a.client.WaitMined(ctx, txHash)
}
