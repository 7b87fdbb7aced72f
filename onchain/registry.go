package onchain

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const registryABI = `[{"inputs":[{"internalType":"bytes32","name":"passportKey_","type":"bytes32"}],"name":"getPassportInfo","outputs":[{"components":[{"internalType":"bytes32","name":"activeIdentity","type":"bytes32"},{"internalType":"uint64","name":"identityReissueCounter","type":"uint64"}],"internalType":"struct IStateKeeper.PassportInfo","name":"passportInfo_","type":"tuple"},{"components":[{"internalType":"bytes32","name":"activePassport","type":"bytes32"},{"internalType":"uint64","name":"issueTimestamp","type":"uint64"}],"internalType":"struct IStateKeeper.IdentityInfo","name":"identityInfo_","type":"tuple"}],"stateMutability":"view","type":"function"}]`

// PassportInfo is the registry's record for a passport key. ActiveIdentity
// is all-zero while the document is unregistered.
type PassportInfo struct {
	ActiveIdentity         [32]byte
	IdentityReissueCounter uint64
}

// IdentityInfo is the registry's record for the identity currently bound
// to a passport.
type IdentityInfo struct {
	ActivePassport [32]byte
	IssueTimestamp uint64
}

// Registry reads the on-chain identity registry.
type Registry struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
}

func NewRegistry(caller Caller, address common.Address) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, errors.Wrap(err, "parsing registry abi")
	}

	return &Registry{
		caller:  caller,
		address: address,
		abi:     parsed,
	}, nil
}

// GetPassportInfo reads the passport and identity records for a passport
// key.
func (r *Registry) GetPassportInfo(ctx context.Context, passportKey [32]byte) (*PassportInfo, *IdentityInfo, error) {
	data, err := r.abi.Pack("getPassportInfo", passportKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "packing getPassportInfo call")
	}

	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "calling getPassportInfo")
	}

	out, err := r.abi.Unpack("getPassportInfo", raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unpacking getPassportInfo result")
	}

	passport := abi.ConvertType(out[0], new(PassportInfo)).(*PassportInfo)
	identity := abi.ConvertType(out[1], new(IdentityInfo)).(*IdentityInfo)

	return passport, identity, nil
}

// Registered reports whether any identity is bound to the passport.
func (p *PassportInfo) Registered() bool {
	return p.ActiveIdentity != [32]byte{}
}

// ActiveIdentityKey returns the bound identity as a field element.
func (p *PassportInfo) ActiveIdentityKey() *big.Int {
	return new(big.Int).SetBytes(p.ActiveIdentity[:])
}
