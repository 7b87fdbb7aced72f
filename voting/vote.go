package voting

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/zkident/go-passport-processor/circuits"
	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/identity"
	"github.com/zkident/go-passport-processor/loaders"
	"github.com/zkident/go-passport-processor/onchain"
)

// Proposals reads proposal state from the proposals contract.
type Proposals interface {
	GetProposalInfo(ctx context.Context, proposalID *big.Int) (*onchain.ProposalInfo, error)
	GetProposalEventID(ctx context.Context, proposalID *big.Int) (*big.Int, error)
	GetProposalRules(ctx context.Context, proposalID *big.Int, voting common.Address) (*onchain.ProposalCriteria, error)
}

// QueryProver produces query-identity proofs for a registered document.
type QueryProver interface {
	QueryProof(ctx context.Context, doc *document.Document, profile *identity.Profile,
		params circuits.QueryProofParams) (*circuits.Proof, error)
}

// Submitter broadcasts prepared vote call data.
type Submitter interface {
	SubmitVote(ctx context.Context, calldata []byte, destination common.Address) (string, error)
}

// MetadataSource resolves a proposal's off-chain metadata document.
type MetadataSource interface {
	Load(ctx context.Context, u string) (*loaders.ProposalMetadata, error)
}

var _ MetadataSource = (*loaders.MetadataLoader)(nil)

// Config is the immutable voting flow configuration.
type Config struct {
	VotingAddress common.Address
}

// Service runs the vote flow: eligibility, duplicate check, proof,
// call data, submission.
type Service struct {
	cfg       Config
	proposals Proposals
	smt       ProofSource
	prover    QueryProver
	submitter Submitter
	metadata  MetadataSource
	log       *slog.Logger
}

// for tests
var timeNow = time.Now

type Option func(*Service)

// WithMetadataSource enables ProposalMetadata lookups.
func WithMetadataSource(source MetadataSource) Option {
	return func(s *Service) {
		s.metadata = source
	}
}

func NewService(cfg Config, proposals Proposals, smt ProofSource,
	prover QueryProver, submitter Submitter, log *slog.Logger,
	opts ...Option) *Service {

	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		cfg:       cfg,
		proposals: proposals,
		smt:       smt,
		prover:    prover,
		submitter: submitter,
		log:       log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Vote checks eligibility, proves the disclosure the proposal demands and
// submits the vote. Any failing step abandons the attempt.
func (s *Service) Vote(ctx context.Context, proposalID *big.Int, votes []*big.Int,
	doc *document.Document, profile *identity.Profile) (string, error) {

	info, err := s.proposals.GetProposalInfo(ctx, proposalID)
	if err != nil {
		return "", errors.Wrap(err, "reading proposal info")
	}

	rules, err := s.proposals.GetProposalRules(ctx, proposalID, s.cfg.VotingAddress)
	if err != nil {
		return "", errors.Wrap(err, "reading proposal rules")
	}

	if err = VerifyEligibility(timeNow(), info, rules, doc); err != nil {
		return "", err
	}

	eventID, err := s.proposals.GetProposalEventID(ctx, proposalID)
	if err != nil {
		return "", errors.Wrap(err, "reading proposal event id")
	}

	voted, err := IsAlreadyVoted(ctx, s.smt, info.ProposalSMT, profile, eventID)
	if err != nil {
		return "", err
	}
	if voted {
		return "", ErrAlreadyVoted
	}

	commitment, err := VoteCommitment(votes)
	if err != nil {
		return "", err
	}

	mrz, err := document.ParseMRZ(doc.DG1)
	if err != nil {
		return "", errors.Wrap(err, "parsing mrz")
	}

	params := circuits.QueryProofParams{
		EventID:                   eventID,
		EventData:                 commitment,
		Selector:                  rules.Selector,
		TimestampUpperBound:       rules.TimestampUpperbound,
		IdentityCounterUpperBound: rules.IdentityCounterUpperbound,
		BirthDateLowerBound:       rules.BirthDateLowerbound,
		BirthDateUpperBound:       rules.BirthDateUpperbound,
		ExpirationDateLowerBound:  rules.ExpirationDateLowerbound,
		CitizenshipMask:           document.CountryCode(mrz.IssuingCountry),
	}

	proof, err := s.prover.QueryProof(ctx, doc, profile, params)
	if err != nil {
		return "", errors.Wrap(err, "generating query proof")
	}

	pubSignals, err := signalInts(proof.PubSignals)
	if err != nil {
		return "", err
	}

	proofBytes, err := hex.DecodeString(proof.ProofHex)
	if err != nil {
		return "", errors.Wrap(err, "decoding proof hex")
	}

	calldata, err := onchain.VoteCalldata(proposalID, votes, pubSignals, proofBytes)
	if err != nil {
		return "", err
	}

	id, err := s.submitter.SubmitVote(ctx, calldata, s.cfg.VotingAddress)
	if err != nil {
		return "", errors.Wrap(err, "submitting vote")
	}

	s.log.Info("vote submitted", "proposal", proposalID.String(), "id", id)

	return id, nil
}

// ProposalMetadata resolves the metadata document the proposal's
// description CID points at.
func (s *Service) ProposalMetadata(ctx context.Context,
	info *onchain.ProposalInfo) (*loaders.ProposalMetadata, error) {

	if s.metadata == nil {
		return nil, errors.New("metadata source is not configured")
	}
	if info == nil || info.Config.Description == "" {
		return nil, errors.New("proposal carries no metadata reference")
	}

	u := info.Config.Description
	if !strings.Contains(u, "://") {
		// A bare CID resolves through ipfs.
		u = "ipfs://" + u
	}

	metadata, err := s.metadata.Load(ctx, u)
	if err != nil {
		return nil, errors.Wrap(err, "loading proposal metadata")
	}

	return metadata, nil
}

// VoteCommitment hashes the chosen options into the event data the
// query-identity proof binds the vote to. The keccak digest is truncated
// to 31 bytes so the commitment always fits a circuit field element.
func VoteCommitment(votes []*big.Int) (*big.Int, error) {
	uint256ArrT, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating uint256[] type")
	}

	arguments := abi.Arguments{{Type: uint256ArrT}}

	packed, err := arguments.Pack(votes)
	if err != nil {
		return nil, errors.Wrap(err, "packing votes")
	}

	hash := sha3.NewLegacyKeccak256()
	hash.Write(packed)

	return new(big.Int).SetBytes(hash.Sum(nil)[:31]), nil
}

func signalInts(signals []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(signals))
	for i, s := range signals {
		v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
		if !ok {
			return nil, errors.Errorf("malformed public signal %q", s)
		}
		out[i] = v
	}

	return out, nil
}
