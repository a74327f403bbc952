package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	settlement "github.com/x402-foundation/x402-settlement"
)

// ErrNoCode means the deployment transaction was mined but the predicted
// address holds no bytecode. The deterministic deployer returns no
// structured success signal, so a reverting constructor is only visible
// this way.
var ErrNoCode = errors.New("no bytecode at predicted address after deployment")

// Backend is the minimal ledger access the deployer needs.
type Backend interface {
	// ChainLabel names the network for record keeping (e.g. "eip155:8453").
	ChainLabel() string
	// CodeAt returns the bytecode at an address.
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	// Send submits a transaction carrying calldata to `to` and returns the
	// transaction hash.
	Send(ctx context.Context, to common.Address, calldata []byte) (common.Hash, error)
	// WaitMined blocks until the transaction is mined, failing if it
	// reverted.
	WaitMined(ctx context.Context, tx common.Hash) error
}

// Deployer performs idempotent deterministic deployments: predict the
// address, skip when code is already present, otherwise send
// salt ‖ initCode to the deterministic deployer and verify bytecode
// afterward.
type Deployer struct {
	backend Backend
	factory common.Address
	logger  *slog.Logger
}

// Result describes one deployment attempt.
type Result struct {
	Record  Record
	Skipped bool
	TxHash  common.Hash
}

// NewDeployer creates a deployer using the canonical deterministic
// deployer address unless overridden.
func NewDeployer(backend Backend, opts ...DeployerOption) *Deployer {
	d := &Deployer{
		backend: backend,
		factory: settlement.DeterministicDeployerAddress,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DeployerOption configures a Deployer.
type DeployerOption func(*Deployer)

// WithFactory overrides the deterministic deployer address.
func WithFactory(factory common.Address) DeployerOption {
	return func(d *Deployer) { d.factory = factory }
}

// WithLogger overrides the deployer's logger.
func WithLogger(logger *slog.Logger) DeployerOption {
	return func(d *Deployer) { d.logger = logger }
}

// Deploy deploys initCode under salt. Idempotent: if code already exists at
// the predicted address the deployment is skipped, not retried.
func (d *Deployer) Deploy(ctx context.Context, salt [32]byte, initCode []byte) (*Result, error) {
	predicted := ComputeAddress(d.factory, salt, InitCodeHash(initCode))

	code, err := d.backend.CodeAt(ctx, predicted)
	if err != nil {
		return nil, fmt.Errorf("check code at %s: %w", predicted.Hex(), err)
	}
	if len(code) > 0 {
		d.logger.Info("deployment skipped, code already present",
			"address", predicted.Hex(), "network", d.backend.ChainLabel())
		return &Result{Record: d.record(predicted, salt), Skipped: true}, nil
	}

	calldata := append(salt[:], initCode...)
	txHash, err := d.backend.Send(ctx, d.factory, calldata)
	if err != nil {
		return nil, fmt.Errorf("send deployment: %w", err)
	}
	if err := d.backend.WaitMined(ctx, txHash); err != nil {
		return nil, fmt.Errorf("wait for deployment %s: %w", txHash.Hex(), err)
	}

	code, err = d.backend.CodeAt(ctx, predicted)
	if err != nil {
		return nil, fmt.Errorf("verify code at %s: %w", predicted.Hex(), err)
	}
	if len(code) == 0 {
		return nil, ErrNoCode
	}

	d.logger.Info("deployed",
		"address", predicted.Hex(), "tx", txHash.Hex(), "network", d.backend.ChainLabel())
	rec := d.record(predicted, salt)
	rec.TxHash = txHash.Hex()
	return &Result{Record: rec, TxHash: txHash}, nil
}

func (d *Deployer) record(addr common.Address, salt [32]byte) Record {
	return NewRecord(d.backend.ChainLabel(), addr, salt, d.factory, time.Now())
}
