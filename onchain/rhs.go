package onchain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-merkletree-sql/v2"
	mp "github.com/iden3/merkletree-proof"
	"github.com/pkg/errors"
)

// TreeProofSource generates proofs for an index under a known tree root.
type TreeProofSource interface {
	GetProof(ctx context.Context, root *merkletree.Hash, index *big.Int) (*SMTProof, error)
}

// RootSource reports the current root of a published tree.
type RootSource interface {
	Root(ctx context.Context) (*merkletree.Hash, error)
}

var (
	_ TreeProofSource = (*RHSSource)(nil)
	_ RootSource      = (*SMT)(nil)
)

// RHSSource serves SMT proofs from a reverse hash service instead of a
// contract read. Deployments that publish tree nodes to an RHS use it as a
// drop-in proof source once the current root is known.
type RHSSource struct {
	cli *mp.HTTPReverseHashCli
}

func NewRHSSource(rhsURL string) (*RHSSource, error) {
	if rhsURL == "" {
		return nil, errors.New("reverse hash service url is empty")
	}

	return &RHSSource{
		cli: &mp.HTTPReverseHashCli{
			URL:         rhsURL,
			HTTPTimeout: 10 * time.Second,
		},
	}, nil
}

// GetProof walks the published tree nodes from root down to the index.
func (s *RHSSource) GetProof(ctx context.Context, root *merkletree.Hash, index *big.Int) (*SMTProof, error) {
	key, err := merkletree.NewHashFromBigInt(index)
	if err != nil {
		return nil, errors.Wrap(err, "converting index to tree key")
	}

	proof, err := s.cli.GenerateProof(ctx, root, key)
	if errors.Is(err, mp.ErrNodeNotFound) {
		return nil, errors.Wrap(err, "tree root is not published to the reverse hash service")
	} else if err != nil {
		return nil, errors.Wrap(err, "generating proof")
	}

	return &SMTProof{
		Root:      root,
		Siblings:  proof.AllSiblings(),
		Existence: proof.Existence,
	}, nil
}

// RHSProofSource pairs a tree proof source with the contract its current
// root is read from. It serves the registration flow, which addresses one
// fixed tree.
type RHSProofSource struct {
	tree  TreeProofSource
	roots RootSource
}

func NewRHSProofSource(tree TreeProofSource, roots RootSource) *RHSProofSource {
	return &RHSProofSource{tree: tree, roots: roots}
}

// GetProof resolves the current root and proves the index under it.
func (s *RHSProofSource) GetProof(ctx context.Context, index [32]byte) (*SMTProof, error) {
	root, err := s.roots.Root(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading tree root")
	}

	return s.tree.GetProof(ctx, root, new(big.Int).SetBytes(index[:]))
}

// RHSVotingProofSource serves per-proposal nullifier trees: the current
// root is read from whichever tree contract the caller names.
type RHSVotingProofSource struct {
	tree   TreeProofSource
	caller Caller
}

func NewRHSVotingProofSource(tree TreeProofSource, caller Caller) *RHSVotingProofSource {
	return &RHSVotingProofSource{tree: tree, caller: caller}
}

// GetProof resolves the named tree's current root and proves the index
// under it.
func (s *RHSVotingProofSource) GetProof(ctx context.Context, smt common.Address, index [32]byte) (*SMTProof, error) {
	contract, err := NewSMT(s.caller, smt)
	if err != nil {
		return nil, err
	}

	root, err := contract.Root(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading tree root")
	}

	return s.tree.GetProof(ctx, root, new(big.Int).SetBytes(index[:]))
}
