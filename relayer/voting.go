package relayer

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const voteTxPath = "/integrations/proof-verification-relayer/v3/vote"

type voteTxAttributes struct {
	TxData      string `json:"tx_data"`
	Destination string `json:"destination"`
}

// SubmitVote hands prepared vote call data to the voting relayer and
// returns the submission identifier.
func (c *Client) SubmitVote(ctx context.Context, calldata []byte,
	destination common.Address) (string, error) {

	data, err := c.post(ctx, voteTxPath, "vote", voteTxAttributes{
		TxData:      "0x" + hex.EncodeToString(calldata),
		Destination: destination.Hex(),
	})
	if err != nil {
		return "", err
	}

	if data.ID == "" {
		return "", errors.New("voting relayer returned no submission id")
	}

	return data.ID, nil
}
