package relayer

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const registerTxPath = "/integrations/registration-relayer/v1/register"

type registerTxAttributes struct {
	TxData      string `json:"tx_data"`
	NoSend      bool   `json:"no_send"`
	Destination string `json:"destination"`
}

// SubmitRegistration hands prepared register call data to the transaction
// relayer and returns the submission identifier.
func (c *Client) SubmitRegistration(ctx context.Context, calldata []byte,
	destination common.Address, noSend bool) (string, error) {

	data, err := c.post(ctx, registerTxPath, "register", registerTxAttributes{
		TxData:      "0x" + hex.EncodeToString(calldata),
		NoSend:      noSend,
		Destination: destination.Hex(),
	})
	if err != nil {
		return "", err
	}

	if data.ID == "" {
		return "", errors.New("registration relayer returned no submission id")
	}

	return data.ID, nil
}
