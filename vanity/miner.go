// Package vanity searches CREATE2 salts for addresses matching a
// human-chosen hex pattern. The search is purely computational: no ledger
// interaction, no external state, so cancellation is just halting the loop.
package vanity

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MatchMode selects where the pattern must appear in the address.
type MatchMode int

const (
	// ModePrefix requires the lowercased address (without 0x) to start
	// with the pattern. Default.
	ModePrefix MatchMode = iota
	// ModeContains accepts the pattern anywhere in the address.
	ModeContains
)

// String returns the mode name.
func (m MatchMode) String() string {
	if m == ModeContains {
		return "contains"
	}
	return "prefix"
}

// Candidate is one checked salt/address pair. Offset is the byte index of
// the pattern's occurrence in the 40-char hex address, or -1 if absent.
type Candidate struct {
	Counter uint64         `json:"counter"`
	Salt    [32]byte       `json:"salt"`
	Address common.Address `json:"address"`
	Offset  int            `json:"offset"`
}

// Progress is handed to the progress callback at each batch boundary.
type Progress struct {
	Attempts uint64
	Rate     float64 // attempts per second
	Elapsed  time.Duration
	Best     *Candidate
}

// Result is the outcome of a mining run. When Found is false, Best carries
// the closest partial match seen (pattern occurrence at the smallest
// offset), if any.
type Result struct {
	Found    bool       `json:"found"`
	Match    *Candidate `json:"match,omitempty"`
	Best     *Candidate `json:"best,omitempty"`
	Attempts uint64     `json:"attempts"`
	Elapsed  time.Duration
}

// Options configures a mining run. InitCodeHash and Deployer are fixed for
// the whole search; only the salt varies.
type Options struct {
	ContractName string
	Deployer     common.Address
	InitCodeHash common.Hash
	Pattern      string
	Mode         MatchMode
	Budget       uint64
	// BatchSize is the progress-reporting interval in attempts.
	BatchSize uint64
	Progress  func(Progress)
	Logger    *slog.Logger
}

const defaultBatchSize = 50_000

var hexAlphabet = "0123456789abcdef"

// Salt derives the candidate salt for counter i. Distinct counters map to
// distinct salts; the text folded into the hash carries no other meaning.
func Salt(contractName string, i uint64) [32]byte {
	seed := fmt.Sprintf("x402-%s-v%d", strings.ToLower(contractName), i)
	return crypto.Keccak256Hash([]byte(seed))
}

// Mine runs the search until a match, budget exhaustion, or context
// cancellation. Each attempt is independent; the loop is single-threaded
// like the reference search.
func Mine(ctx context.Context, opts Options) (*Result, error) {
	pattern := strings.ToLower(opts.Pattern)
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	if len(pattern) > 2*common.AddressLength {
		return nil, fmt.Errorf("pattern longer than an address: %q", opts.Pattern)
	}
	for _, c := range pattern {
		if !strings.ContainsRune(hexAlphabet, c) {
			return nil, fmt.Errorf("pattern is not hex: %q", opts.Pattern)
		}
	}
	batch := opts.BatchSize
	if batch == 0 {
		batch = defaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var best *Candidate
	start := time.Now()

	for i := uint64(0); i <= opts.Budget; i++ {
		if i > 0 && i%batch == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			reportProgress(logger, opts.Progress, i, start, best)
		}

		salt := Salt(opts.ContractName, i)
		addr := crypto.CreateAddress2(opts.Deployer, salt, opts.InitCodeHash.Bytes())
		hexAddr := hex.EncodeToString(addr.Bytes())

		offset := strings.Index(hexAddr, pattern)
		matched := offset == 0 || (opts.Mode == ModeContains && offset >= 0)
		candidate := Candidate{Counter: i, Salt: salt, Address: addr, Offset: offset}

		if matched {
			elapsed := time.Since(start)
			logger.Info("vanity match",
				"address", addr.Hex(), "counter", i,
				"attempts", i+1, "elapsed", elapsed.Round(time.Millisecond))
			return &Result{Found: true, Match: &candidate, Attempts: i + 1, Elapsed: elapsed}, nil
		}
		if offset >= 0 && (best == nil || offset < best.Offset) {
			best = &candidate
		}
	}

	elapsed := time.Since(start)
	logger.Info("budget exhausted without full match",
		"attempts", opts.Budget+1, "elapsed", elapsed.Round(time.Millisecond))
	return &Result{Best: best, Attempts: opts.Budget + 1, Elapsed: elapsed}, nil
}

func reportProgress(logger *slog.Logger, fn func(Progress), attempts uint64, start time.Time, best *Candidate) {
	elapsed := time.Since(start)
	p := Progress{
		Attempts: attempts,
		Rate:     float64(attempts) / elapsed.Seconds(),
		Elapsed:  elapsed,
		Best:     best,
	}
	if fn != nil {
		fn(p)
		return
	}
	args := []any{"attempts", p.Attempts, "rate", int(p.Rate), "elapsed", elapsed.Round(time.Second)}
	if best != nil {
		args = append(args, "best", best.Address.Hex(), "offset", best.Offset)
	}
	logger.Info("mining", args...)
}
