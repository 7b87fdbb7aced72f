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

const proposalsABI = `[{"inputs":[{"internalType":"uint256","name":"proposalId_","type":"uint256"}],"name":"getProposalInfo","outputs":[{"components":[{"internalType":"address","name":"proposalSMT","type":"address"},{"internalType":"uint8","name":"status","type":"uint8"},{"components":[{"internalType":"uint64","name":"startTimestamp","type":"uint64"},{"internalType":"uint64","name":"duration","type":"uint64"},{"internalType":"uint256","name":"multichoice","type":"uint256"},{"internalType":"uint256[]","name":"acceptedOptions","type":"uint256[]"},{"internalType":"string","name":"description","type":"string"},{"internalType":"address[]","name":"votingWhitelist","type":"address[]"},{"internalType":"bytes[]","name":"votingWhitelistData","type":"bytes[]"}],"internalType":"struct ProposalsState.ProposalConfig","name":"config","type":"tuple"}],"internalType":"struct ProposalsState.ProposalInfo","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"proposalId_","type":"uint256"}],"name":"getProposalEventId","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"proposalId_","type":"uint256"},{"internalType":"address","name":"voting_","type":"address"}],"name":"getProposalRules","outputs":[{"components":[{"internalType":"uint256","name":"selector","type":"uint256"},{"internalType":"uint256[]","name":"citizenshipWhitelist","type":"uint256[]"},{"internalType":"uint256","name":"timestampUpperbound","type":"uint256"},{"internalType":"uint256","name":"identityCounterUpperbound","type":"uint256"},{"internalType":"uint256","name":"sex","type":"uint256"},{"internalType":"uint256","name":"birthDateLowerbound","type":"uint256"},{"internalType":"uint256","name":"birthDateUpperbound","type":"uint256"},{"internalType":"uint256","name":"expirationDateLowerbound","type":"uint256"}],"internalType":"struct BaseVoting.VotingRules","name":"","type":"tuple"}],"stateMutability":"view","type":"function"}]`

// ProposalConfig is the proposal's declared parameters: the voting window,
// the accepted answers, the metadata CID and the per-voting-contract rule
// blobs.
type ProposalConfig struct {
	StartTimestamp      uint64
	Duration            uint64
	Multichoice         *big.Int
	AcceptedOptions     []*big.Int
	Description         string
	VotingWhitelist     []common.Address
	VotingWhitelistData [][]byte
}

// ProposalInfo is the on-chain state of a proposal.
type ProposalInfo struct {
	ProposalSMT common.Address
	Status      uint8
	Config      ProposalConfig
}

// ProposalCriteria is the disclosure predicate a voting contract enforces:
// which MRZ facts a voter must prove and their bounds. Bounds not in use
// carry the encoded all-zero MRZ date (dates) or zero (the rest).
type ProposalCriteria struct {
	Selector                  *big.Int
	CitizenshipWhitelist      []*big.Int
	TimestampUpperbound       *big.Int
	IdentityCounterUpperbound *big.Int
	Sex                       *big.Int
	BirthDateLowerbound       *big.Int
	BirthDateUpperbound       *big.Int
	ExpirationDateLowerbound  *big.Int
}

// Proposals reads proposal state and rules from the proposals contract.
type Proposals struct {
	caller  Caller
	address common.Address
	abi     abi.ABI
}

func NewProposals(caller Caller, address common.Address) (*Proposals, error) {
	parsed, err := abi.JSON(strings.NewReader(proposalsABI))
	if err != nil {
		return nil, errors.Wrap(err, "parsing proposals abi")
	}

	return &Proposals{
		caller:  caller,
		address: address,
		abi:     parsed,
	}, nil
}

func (p *Proposals) GetProposalInfo(ctx context.Context, proposalID *big.Int) (*ProposalInfo, error) {
	out, err := p.call(ctx, "getProposalInfo", proposalID)
	if err != nil {
		return nil, err
	}

	return abi.ConvertType(out[0], new(ProposalInfo)).(*ProposalInfo), nil
}

func (p *Proposals) GetProposalEventID(ctx context.Context, proposalID *big.Int) (*big.Int, error) {
	out, err := p.call(ctx, "getProposalEventId", proposalID)
	if err != nil {
		return nil, err
	}

	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (p *Proposals) GetProposalRules(ctx context.Context, proposalID *big.Int, voting common.Address) (*ProposalCriteria, error) {
	out, err := p.call(ctx, "getProposalRules", proposalID, voting)
	if err != nil {
		return nil, err
	}

	return abi.ConvertType(out[0], new(ProposalCriteria)).(*ProposalCriteria), nil
}

func (p *Proposals) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := p.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "packing %s call", method)
	}

	raw, err := p.caller.CallContract(ctx, ethereum.CallMsg{To: &p.address, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", method)
	}

	out, err := p.abi.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "unpacking %s result", method)
	}

	return out, nil
}

// EndTimestamp is the close of the proposal's voting window.
func (i *ProposalInfo) EndTimestamp() uint64 {
	return i.Config.StartTimestamp + i.Config.Duration
}
