package onchain

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller is the read-only contract surface every on-chain lookup goes
// through. *ethclient.Client satisfies it; tests substitute a fake.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Caller = (*ethclient.Client)(nil)

// KeyBytes32 renders a field element as the fixed-width key contracts
// index by.
func KeyBytes32(key *big.Int) [32]byte {
	var out [32]byte
	key.FillBytes(out[:])

	return out
}
