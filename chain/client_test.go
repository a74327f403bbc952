package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionFeeModel(t *testing.T) {
	to := common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	calldata := []byte{0x01, 0x02}

	t.Run("dynamic fee when base fee present", func(t *testing.T) {
		tx := newTransaction(big.NewInt(8453), 7, to, calldata, 60_000,
			big.NewInt(2), big.NewInt(100), nil)

		require.Equal(t, uint8(ethtypes.DynamicFeeTxType), tx.Type())
		assert.Zero(t, tx.GasTipCap().Cmp(big.NewInt(2)))
		// Fee cap is tip + 2x base fee.
		assert.Zero(t, tx.GasFeeCap().Cmp(big.NewInt(202)))
		assert.Equal(t, uint64(7), tx.Nonce())
		assert.Equal(t, uint64(60_000), tx.Gas())
		assert.Equal(t, &to, tx.To())
	})

	t.Run("legacy when base fee absent", func(t *testing.T) {
		tx := newTransaction(big.NewInt(1337), 7, to, calldata, 60_000,
			nil, nil, big.NewInt(5))

		require.Equal(t, uint8(ethtypes.LegacyTxType), tx.Type())
		assert.Zero(t, tx.GasPrice().Cmp(big.NewInt(5)))
		assert.Equal(t, calldata, tx.Data())
	})
}
