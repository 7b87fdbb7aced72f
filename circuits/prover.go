package circuits

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Circuit names the circuit family a witness map targets. The external
// prover resolves the name to circuit bytecode and a trusted setup.
type Circuit string

const (
	RegisterIdentityLight160 Circuit = "registerIdentityLight160"
	RegisterIdentityLight224 Circuit = "registerIdentityLight224"
	RegisterIdentityLight256 Circuit = "registerIdentityLight256"
	RegisterIdentityLight384 Circuit = "registerIdentityLight384"
	RegisterIdentityLight512 Circuit = "registerIdentityLight512"
	QueryIdentity            Circuit = "queryIdentity"
)

// PubSignalsCount returns the number of fixed-width public signals the
// circuit's proof output starts with.
func (c Circuit) PubSignalsCount() int {
	if c == QueryIdentity {
		return 24
	}
	return 3
}

// Prover is the external proving boundary: given a circuit name and a
// marshaled witness-input map it returns a single hex string whose first
// PubSignalsCount*64 characters are the public signals and whose remainder
// is the proof. Proving takes seconds of CPU; callers cancel through ctx
// by abandoning the flow.
type Prover interface {
	Prove(ctx context.Context, circuit Circuit, inputs []byte) (string, error)
}

var ErrEmptyProof = errors.New("prover returned an empty proof")

// Proof is a split prover output.
type Proof struct {
	// PubSignals are the fixed-width public signals, each a 0x-prefixed
	// 32-byte hex value.
	PubSignals []string
	// ProofHex is the remaining proof material, hex without prefix.
	ProofHex string
}

// SplitProof separates the prover's hex output into public signals and
// proof per the circuit's signal count.
func SplitProof(out string, pubSignalsCount int) (*Proof, error) {
	out = strings.TrimPrefix(out, "0x")
	if out == "" {
		return nil, ErrEmptyProof
	}

	signalsLen := pubSignalsCount * 64
	if len(out) < signalsLen {
		return nil, errors.Errorf("proof output too short: %d hex chars, want at least %d", len(out), signalsLen)
	}

	signals := make([]string, pubSignalsCount)
	for i := 0; i < pubSignalsCount; i++ {
		signals[i] = "0x" + out[i*64:(i+1)*64]
	}

	return &Proof{
		PubSignals: signals,
		ProofHex:   out[signalsLen:],
	}, nil
}

// Bytes returns the raw concatenation of public signals and proof, the
// form the verification relayer consumes base64-encoded.
func (p *Proof) Bytes() ([]byte, error) {
	var sb strings.Builder
	for _, s := range p.PubSignals {
		sb.WriteString(strings.TrimPrefix(s, "0x"))
	}
	sb.WriteString(p.ProofHex)

	data, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, errors.Wrap(err, "decoding proof hex")
	}

	return data, nil
}
