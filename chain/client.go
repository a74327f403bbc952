// Package chain backs the settlement engine and the deployer with a real
// EVM node: it signs and submits transactions to the on-chain Permit
// Authority and the deterministic deployer.
package chain

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// receiptPollInterval is how often WaitMined polls for a receipt.
const receiptPollInterval = 2 * time.Second

// Client wraps an ethclient with a signing key. It is the transaction
// sender for both settlement delegation and deployment.
type Client struct {
	eth     *ethclient.Client
	key     *ecdsa.PrivateKey
	sender  common.Address
	chainID *big.Int
}

// Dial connects to an RPC endpoint and derives the sender identity from a
// hex-encoded private key.
func Dial(ctx context.Context, rpcURL, privateKeyHex string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Client{
		eth:     eth,
		key:     key,
		sender:  crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Sender returns the transaction sender address.
func (c *Client) Sender() common.Address { return c.sender }

// ChainID returns the connected chain's id.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// ChainLabel returns the CAIP-2 network identifier, e.g. "eip155:8453".
func (c *Client) ChainLabel() string {
	return fmt.Sprintf("eip155:%s", c.chainID)
}

// CodeAt returns the bytecode at addr in the latest block.
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.eth.CodeAt(ctx, addr, nil)
}

// Send signs and submits a transaction carrying calldata to `to`.
func (c *Client) Send(ctx context.Context, to common.Address, calldata []byte) (common.Hash, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}

	// Pre-EIP-1559 chains report no base fee and reject dynamic-fee
	// transactions; price those legacy-style.
	var tipCap, gasPrice *big.Int
	if head.BaseFee != nil {
		tipCap, err = c.eth.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest tip cap: %w", err)
		}
	} else {
		gasPrice, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
		}
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.sender,
		To:   &to,
		Data: calldata,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := newTransaction(c.chainID, nonce, to, calldata, gas, tipCap, head.BaseFee, gasPrice)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash(), nil
}

// WaitMined blocks until the transaction is mined, failing when it
// reverted or the context expires.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newTransaction builds the transaction for the chain's fee model: a
// dynamic-fee transaction when the chain reports a base fee (fee cap is
// tip + 2x base fee), a legacy transaction otherwise.
func newTransaction(chainID *big.Int, nonce uint64, to common.Address, calldata []byte, gas uint64, tipCap, baseFee, gasPrice *big.Int) *ethtypes.Transaction {
	if baseFee == nil {
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &to,
			Data:     calldata,
		})
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(baseFee, big.NewInt(2)))
	return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      calldata,
	})
}

// invoke packs a method call against abiJSON and submits it.
func (c *Client) invoke(ctx context.Context, to common.Address, abiJSON []byte, method string, args ...interface{}) (common.Hash, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse abi: %w", err)
	}
	calldata, err := parsed.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return c.Send(ctx, to, calldata)
}
