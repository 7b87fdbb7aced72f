package circuits

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// NumericEncoding selects how numeric circuit inputs are rendered. The
// prover bindings on different platforms parse numbers differently, so the
// integration layer picks one encoding and threads it through every builder
// call. Both encodings represent identical field values.
type NumericEncoding int

const (
	Decimal NumericEncoding = iota
	HexPrefixed
)

// Format renders v in the selected encoding.
func (e NumericEncoding) Format(v *big.Int) string {
	if e == HexPrefixed {
		return fmt.Sprintf("0x%x", v)
	}
	return v.String()
}

// FormatBytes expands a byte array into per-byte encoded values, the form
// circuits consume byte-array inputs in.
func (e NumericEncoding) FormatBytes(data []byte) []string {
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = e.Format(big.NewInt(int64(b)))
	}
	return out
}

// Inputs is the witness-input map handed to the external prover. Field
// names and arities are fixed by each circuit's contract.
type Inputs map[string]interface{}

// JSON marshals the input map for the prover boundary.
func (in Inputs) JSON() ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling circuit inputs")
	}

	return data, nil
}
