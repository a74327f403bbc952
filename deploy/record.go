package deploy

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
)

// Record is the informational output of a deployment: where the contract
// lives, under which salt, on which network. Persisted for bookkeeping;
// never consumed by the engine.
type Record struct {
	ID        string    `json:"id"`
	Network   string    `json:"network"`
	Address   string    `json:"address"`
	Salt      string    `json:"salt"`
	Deployer  string    `json:"deployer"`
	TxHash    string    `json:"txHash,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRecord builds a record with a fresh ID.
func NewRecord(network string, addr common.Address, salt [32]byte, deployer common.Address, at time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		Network:   network,
		Address:   addr.Hex(),
		Salt:      hexutil.Encode(salt[:]),
		Deployer:  deployer.Hex(),
		CreatedAt: at.UTC(),
	}
}
