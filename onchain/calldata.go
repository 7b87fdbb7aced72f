package onchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// RegisterPassport is the passport struct the registry's register call
// consumes. Field order matches the contract tuple.
type RegisterPassport struct {
	DataGroupCommitment [32]byte
	Dg1Hash             [32]byte
	PublicKey           []byte
	PassportHash        [32]byte
	Verifier            common.Address
}

const registerSignature = "register(uint256,(bytes32,bytes32,bytes,bytes32,address),bytes,bytes)"

// RegisterCalldata ABI-encodes the registry call binding the profile key,
// the verified passport record, the relayer's signature over it and the
// registration proof.
func RegisterCalldata(profileKey *big.Int, passport RegisterPassport, signature, proof []byte) ([]byte, error) {
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating uint256 type")
	}

	passportT, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "dataGroupCommitment", Type: "bytes32"},
		{Name: "dg1Hash", Type: "bytes32"},
		{Name: "publicKey", Type: "bytes"},
		{Name: "passportHash", Type: "bytes32"},
		{Name: "verifier", Type: "address"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating passport tuple type")
	}

	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating bytes type")
	}

	arguments := abi.Arguments{
		{Type: uint256T},
		{Type: passportT},
		{Type: bytesT},
		{Type: bytesT},
	}

	packed, err := arguments.Pack(profileKey, passport, signature, proof)
	if err != nil {
		return nil, errors.Wrap(err, "packing register arguments")
	}

	return withSelector(registerSignature, packed), nil
}

const voteSignature = "vote(uint256,uint256[],uint256[],bytes)"

// VoteCalldata ABI-encodes the voting call: the proposal, the chosen
// options, the query-identity public signals and the proof.
func VoteCalldata(proposalID *big.Int, votes, pubSignals []*big.Int, proof []byte) ([]byte, error) {
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating uint256 type")
	}

	uint256ArrT, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating uint256[] type")
	}

	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating bytes type")
	}

	arguments := abi.Arguments{
		{Type: uint256T},
		{Type: uint256ArrT},
		{Type: uint256ArrT},
		{Type: bytesT},
	}

	packed, err := arguments.Pack(proposalID, votes, pubSignals, proof)
	if err != nil {
		return nil, errors.Wrap(err, "packing vote arguments")
	}

	return withSelector(voteSignature, packed), nil
}

func withSelector(signature string, packed []byte) []byte {
	selector := crypto.Keccak256([]byte(signature))[:4]

	return append(selector, packed...)
}
