package settlement

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyKeccak is keccak256 of the zero-length byte string.
var emptyKeccak = common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

func testWitness() Witness {
	return Witness{
		Extra:       []byte{0xde, 0xad},
		To:          common.HexToAddress("0x2222222222222222222222222222222222222222"),
		ValidAfter:  big.NewInt(1_700_000_000),
		ValidBefore: big.NewInt(1_700_003_600),
	}
}

func TestWitnessHashLayout(t *testing.T) {
	w := testWitness()

	// Recompute by hand: typehash, hashed extra, then static fields in
	// declaration order, each as a 32-byte word.
	var buf []byte
	buf = append(buf, WitnessTypehash.Bytes()...)
	buf = append(buf, crypto.Keccak256(w.Extra)...)
	buf = append(buf, common.LeftPadBytes(w.To.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(w.ValidAfter.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(w.ValidBefore.Bytes(), 32)...)
	expected := crypto.Keccak256Hash(buf)

	require.Equal(t, expected, WitnessHash(w))
}

func TestWitnessHashEmptyExtra(t *testing.T) {
	w := testWitness()

	w.Extra = nil
	nilHash := WitnessHash(w)
	w.Extra = []byte{}
	emptyHash := WitnessHash(w)

	// Zero-length extra must hash to the canonical empty keccak digest,
	// whether the slice is nil or empty.
	require.Equal(t, nilHash, emptyHash)

	var buf []byte
	buf = append(buf, WitnessTypehash.Bytes()...)
	buf = append(buf, emptyKeccak.Bytes()...)
	buf = append(buf, common.LeftPadBytes(w.To.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(w.ValidAfter.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(w.ValidBefore.Bytes(), 32)...)
	require.Equal(t, crypto.Keccak256Hash(buf), nilHash)
}

func TestWitnessHashSensitivity(t *testing.T) {
	base := WitnessHash(testWitness())

	t.Run("extra", func(t *testing.T) {
		w := testWitness()
		w.Extra = []byte{0xde, 0xae}
		assert.NotEqual(t, base, WitnessHash(w))
	})
	t.Run("to", func(t *testing.T) {
		w := testWitness()
		w.To = common.HexToAddress("0x3333333333333333333333333333333333333333")
		assert.NotEqual(t, base, WitnessHash(w))
	})
	t.Run("validAfter", func(t *testing.T) {
		w := testWitness()
		w.ValidAfter = big.NewInt(1_700_000_001)
		assert.NotEqual(t, base, WitnessHash(w))
	})
	t.Run("validBefore", func(t *testing.T) {
		w := testWitness()
		w.ValidBefore = big.NewInt(1_700_003_601)
		assert.NotEqual(t, base, WitnessHash(w))
	})
}

func TestWitnessHashNilTimesAreZero(t *testing.T) {
	w := testWitness()
	w.ValidAfter = nil
	w.ValidBefore = nil
	withNil := WitnessHash(w)

	w.ValidAfter = big.NewInt(0)
	w.ValidBefore = big.NewInt(0)
	require.Equal(t, WitnessHash(w), withNil)
}
