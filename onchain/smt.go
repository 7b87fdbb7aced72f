package onchain

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-merkletree-sql/v2"
	"github.com/pkg/errors"
)

const smtABI = `[{"inputs":[{"internalType":"bytes32","name":"key_","type":"bytes32"}],"name":"getProof","outputs":[{"components":[{"internalType":"bytes32","name":"root","type":"bytes32"},{"internalType":"bytes32[]","name":"siblings","type":"bytes32[]"},{"internalType":"bool","name":"existence","type":"bool"}],"internalType":"struct SparseMerkleTree.Proof","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"getRoot","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}]`

// SMTProof is an inclusion/exclusion proof from the on-chain Poseidon
// sparse Merkle tree.
type SMTProof struct {
	Root      *merkletree.Hash
	Siblings  []*merkletree.Hash
	Existence bool
}

type smtProofRaw struct {
	Root      [32]byte
	Siblings  [][32]byte
	Existence bool
}

// SMT reads proofs from a Poseidon SMT contract.
type SMT struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
}

func NewSMT(caller Caller, address common.Address) (*SMT, error) {
	parsed, err := abi.JSON(strings.NewReader(smtABI))
	if err != nil {
		return nil, errors.Wrap(err, "parsing smt abi")
	}

	return &SMT{
		caller:  caller,
		address: address,
		abi:     parsed,
	}, nil
}

// GetProof fetches the tree proof for an index.
func (s *SMT) GetProof(ctx context.Context, index [32]byte) (*SMTProof, error) {
	data, err := s.abi.Pack("getProof", index)
	if err != nil {
		return nil, errors.Wrap(err, "packing getProof call")
	}

	rawResp, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.address, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "calling getProof")
	}

	out, err := s.abi.Unpack("getProof", rawResp)
	if err != nil {
		return nil, errors.Wrap(err, "unpacking getProof result")
	}

	raw := abi.ConvertType(out[0], new(smtProofRaw)).(*smtProofRaw)

	root, err := hashFromBytes32(raw.Root)
	if err != nil {
		return nil, errors.Wrap(err, "converting proof root")
	}

	siblings := make([]*merkletree.Hash, len(raw.Siblings))
	for i, sibling := range raw.Siblings {
		if siblings[i], err = hashFromBytes32(sibling); err != nil {
			return nil, errors.Wrapf(err, "converting sibling %d", i)
		}
	}

	return &SMTProof{
		Root:      root,
		Siblings:  siblings,
		Existence: raw.Existence,
	}, nil
}

// Root reads the current tree root.
func (s *SMT) Root(ctx context.Context) (*merkletree.Hash, error) {
	data, err := s.abi.Pack("getRoot")
	if err != nil {
		return nil, errors.Wrap(err, "packing getRoot call")
	}

	rawResp, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.address, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "calling getRoot")
	}

	out, err := s.abi.Unpack("getRoot", rawResp)
	if err != nil {
		return nil, errors.Wrap(err, "unpacking getRoot result")
	}

	root := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)

	return hashFromBytes32(root)
}

// PreparedSiblings pads or clamps the sibling list to the fixed arity a
// circuit consumes.
func (p *SMTProof) PreparedSiblings(size int) []*merkletree.Hash {
	out := make([]*merkletree.Hash, 0, size)
	if len(p.Siblings) > size {
		return append(out, p.Siblings[:size]...)
	}

	out = append(out, p.Siblings...)
	for len(out) < size {
		out = append(out, &merkletree.HashZero)
	}

	return out
}

func hashFromBytes32(b [32]byte) (*merkletree.Hash, error) {
	return merkletree.NewHashFromBigInt(new(big.Int).SetBytes(b[:]))
}
