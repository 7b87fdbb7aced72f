// Package registration sequences the identity registration flow: classify
// the document against the on-chain registry, build and prove the
// registration circuit, have the verification relayer attest the SOD, then
// submit the register call through the transaction relayer.
package registration

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/algorithms"
	"github.com/zkident/go-passport-processor/circuits"
	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/identity"
	"github.com/zkident/go-passport-processor/onchain"
	"github.com/zkident/go-passport-processor/relayer"
	"github.com/zkident/go-passport-processor/sod"
)

// Status classifies a document against the registry.
type Status int

const (
	NotRegistered Status = iota
	RegisteredWithThisKey
	RegisteredWithOtherKey
)

func (s Status) String() string {
	switch s {
	case NotRegistered:
		return "not registered"
	case RegisteredWithThisKey:
		return "registered with this key"
	case RegisteredWithOtherKey:
		return "registered with another key"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyRegistered      = errors.New("document is already registered with this key")
	ErrRegisteredWithOtherKey = errors.New("document is registered with another key")
	ErrNotRegistered          = errors.New("document is not registered")
	ErrProfileMismatch        = errors.New("profile key does not match the registered identity")
)

// Registry reads the on-chain identity registry.
type Registry interface {
	GetPassportInfo(ctx context.Context, passportKey [32]byte) (*onchain.PassportInfo, *onchain.IdentityInfo, error)
}

// ProofSource serves SMT inclusion proofs for registered identities.
type ProofSource interface {
	GetProof(ctx context.Context, index [32]byte) (*onchain.SMTProof, error)
}

// Verifier attests a parsed SOD and registration proof.
type Verifier interface {
	VerifySOD(ctx context.Context, doc *document.Document, so *sod.SecurityObject,
		proofBytes []byte) (*relayer.VerificationResult, error)
}

// Submitter broadcasts prepared register call data.
type Submitter interface {
	SubmitRegistration(ctx context.Context, calldata []byte,
		destination common.Address, noSend bool) (string, error)
}

// Config is the immutable flow configuration. A Service never mutates it
// and callers may share one value across flows.
type Config struct {
	RegistryAddress common.Address
	Encoding        circuits.NumericEncoding
	NoSend          bool
}

// Service runs registration and query-proof flows. Each flow is a single
// pass: any failing step abandons the attempt and the caller may re-invoke
// the whole flow.
type Service struct {
	cfg       Config
	registry  Registry
	smt       ProofSource
	verifier  Verifier
	submitter Submitter
	prover    circuits.Prover
	log       *slog.Logger
}

func NewService(cfg Config, registry Registry, smt ProofSource,
	verifier Verifier, submitter Submitter, prover circuits.Prover,
	log *slog.Logger) *Service {

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		registry:  registry,
		smt:       smt,
		verifier:  verifier,
		submitter: submitter,
		prover:    prover,
		log:       log,
	}
}

// DocumentStatus classifies the document's registry record against the
// caller's profile key.
func (s *Service) DocumentStatus(ctx context.Context, doc *document.Document,
	profile *identity.Profile) (Status, error) {

	passportKey, err := identity.PassportKey(doc)
	if err != nil {
		return 0, errors.Wrap(err, "deriving passport key")
	}

	passport, _, err := s.registry.GetPassportInfo(ctx, onchain.KeyBytes32(passportKey))
	if err != nil {
		return 0, errors.Wrap(err, "reading passport info")
	}

	if !passport.Registered() {
		return NotRegistered, nil
	}

	profileKey, err := profile.PublicKeyHash()
	if err != nil {
		return 0, errors.Wrap(err, "deriving profile key")
	}

	if passport.ActiveIdentityKey().Cmp(profileKey) == 0 {
		return RegisteredWithThisKey, nil
	}

	return RegisteredWithOtherKey, nil
}

// RegisterIdentity runs the full registration flow and returns the
// transaction relayer's submission identifier. Already-registered
// documents fail before any proof work.
func (s *Service) RegisterIdentity(ctx context.Context, doc *document.Document,
	profile *identity.Profile) (string, error) {

	status, err := s.DocumentStatus(ctx, doc, profile)
	if err != nil {
		return "", err
	}
	switch status {
	case RegisteredWithThisKey:
		return "", ErrAlreadyRegistered
	case RegisteredWithOtherKey:
		return "", ErrRegisteredWithOtherKey
	}

	so, err := sod.ParseSOD(doc.SOD)
	if err != nil {
		return "", errors.Wrap(err, "parsing sod")
	}

	circuit := registrationCircuit(so.HashAlgorithm)
	s.log.Info("building registration proof", "circuit", string(circuit))

	inputs, err := circuits.BuildLiteRegistrationInputs(doc, profile, s.cfg.Encoding)
	if err != nil {
		return "", err
	}

	inputsJSON, err := inputs.JSON()
	if err != nil {
		return "", err
	}

	out, err := s.prover.Prove(ctx, circuit, inputsJSON)
	if err != nil {
		return "", errors.Wrap(err, "proving registration")
	}

	proof, err := circuits.SplitProof(out, circuit.PubSignalsCount())
	if err != nil {
		return "", err
	}

	proofBytes, err := proof.Bytes()
	if err != nil {
		return "", err
	}

	result, err := s.verifier.VerifySOD(ctx, doc, so, proofBytes)
	if err != nil {
		return "", errors.Wrap(err, "verifying sod")
	}

	calldata, err := s.registerCalldata(doc, profile, proof, result, proofBytes)
	if err != nil {
		return "", err
	}

	id, err := s.submitter.SubmitRegistration(ctx, calldata,
		s.cfg.RegistryAddress, s.cfg.NoSend)
	if err != nil {
		return "", errors.Wrap(err, "submitting registration")
	}

	s.log.Info("registration submitted", "id", id)

	return id, nil
}

// QueryProof builds and proves a query-identity disclosure for a
// registered document. The profile key must match the registry's active
// identity, otherwise the proof could never verify on-chain.
func (s *Service) QueryProof(ctx context.Context, doc *document.Document,
	profile *identity.Profile, params circuits.QueryProofParams) (*circuits.Proof, error) {

	passportKey, err := identity.PassportKey(doc)
	if err != nil {
		return nil, errors.Wrap(err, "deriving passport key")
	}

	passport, idInfo, err := s.registry.GetPassportInfo(ctx, onchain.KeyBytes32(passportKey))
	if err != nil {
		return nil, errors.Wrap(err, "reading passport info")
	}

	if !passport.Registered() {
		return nil, ErrNotRegistered
	}

	profileKey, err := profile.PublicKeyHash()
	if err != nil {
		return nil, errors.Wrap(err, "deriving profile key")
	}

	if passport.ActiveIdentityKey().Cmp(profileKey) != 0 {
		return nil, ErrProfileMismatch
	}

	smtProof, err := s.smt.GetProof(ctx, onchain.KeyBytes32(passportKey))
	if err != nil {
		return nil, errors.Wrap(err, "fetching smt proof")
	}

	inputs, err := circuits.BuildQueryIdentityInputs(params, doc, smtProof,
		passport, idInfo, profile, s.cfg.Encoding)
	if err != nil {
		return nil, err
	}

	inputsJSON, err := inputs.JSON()
	if err != nil {
		return nil, err
	}

	out, err := s.prover.Prove(ctx, circuits.QueryIdentity, inputsJSON)
	if err != nil {
		return nil, errors.Wrap(err, "proving query identity")
	}

	return circuits.SplitProof(out, circuits.QueryIdentity.PubSignalsCount())
}

func (s *Service) registerCalldata(doc *document.Document,
	profile *identity.Profile, proof *circuits.Proof,
	result *relayer.VerificationResult, proofBytes []byte) ([]byte, error) {

	passportKey, err := identity.PassportKey(doc)
	if err != nil {
		return nil, errors.Wrap(err, "deriving passport key")
	}

	profileKey, err := profile.PublicKeyHash()
	if err != nil {
		return nil, errors.Wrap(err, "deriving profile key")
	}

	publicKey, err := hexDecode(result.PassportPublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "decoding passport public key")
	}

	signature, err := hexDecode(result.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "decoding verifier signature")
	}

	dgCommitment, err := signalBytes32(proof.PubSignals[0])
	if err != nil {
		return nil, errors.Wrap(err, "decoding data group commitment signal")
	}

	dg1Hash, err := signalBytes32(proof.PubSignals[1])
	if err != nil {
		return nil, errors.Wrap(err, "decoding dg1 hash signal")
	}

	passport := onchain.RegisterPassport{
		DataGroupCommitment: dgCommitment,
		Dg1Hash:             dg1Hash,
		PublicKey:           publicKey,
		PassportHash:        onchain.KeyBytes32(passportKey),
		Verifier:            common.HexToAddress(result.Verifier),
	}

	return onchain.RegisterCalldata(profileKey, passport, signature, proofBytes)
}

// registrationCircuit picks the lite circuit matching the SOD's data-group
// hash width.
func registrationCircuit(alg algorithms.HashAlgorithm) circuits.Circuit {
	switch alg {
	case algorithms.SHA1:
		return circuits.RegisterIdentityLight160
	case algorithms.SHA224:
		return circuits.RegisterIdentityLight224
	case algorithms.SHA384:
		return circuits.RegisterIdentityLight384
	case algorithms.SHA512:
		return circuits.RegisterIdentityLight512
	default:
		return circuits.RegisterIdentityLight256
	}
}

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func signalBytes32(signal string) ([32]byte, error) {
	var out [32]byte

	raw, err := hexDecode(signal)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, errors.Errorf("signal is %d bytes, want 32", len(raw))
	}

	copy(out[:], raw)
	return out, nil
}
