// Package voting gates and runs proposal voting: eligibility checks of a
// document against a proposal's criteria, duplicate-vote detection through
// the proposal's nullifier tree, and the vote submission flow itself.
package voting

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/identity"
	"github.com/zkident/go-passport-processor/onchain"
)

var (
	ErrVotingNotStarted       = errors.New("voting has not started yet")
	ErrVotingEnded            = errors.New("voting has ended")
	ErrCitizenshipNotAllowed  = errors.New("citizenship is not allowed to vote")
	ErrSexMismatch            = errors.New("sex does not match the proposal criteria")
	ErrBirthDateOutOfRange    = errors.New("birth date is out of the allowed range")
	ErrDocumentExpiresTooSoon = errors.New("document expires too soon")
	ErrAlreadyVoted           = errors.New("already voted on this proposal")
)

// disabledBound is the encoded all-zero MRZ date: a date bound carrying it
// is switched off.
var disabledBound = document.DisabledDate.Encoded()

// VerifyEligibility checks the document against the proposal's declared
// criteria, failing on the first violated one. The check order is fixed:
// timing, citizenship, sex, birth-date bounds, expiration bound.
func VerifyEligibility(now time.Time, info *onchain.ProposalInfo,
	rules *onchain.ProposalCriteria, doc *document.Document) error {

	ts := uint64(now.Unix())
	if ts < info.Config.StartTimestamp {
		return ErrVotingNotStarted
	}
	if ts > info.EndTimestamp() {
		return ErrVotingEnded
	}

	mrz, err := document.ParseMRZ(doc.DG1)
	if err != nil {
		return errors.Wrap(err, "parsing mrz")
	}

	if len(rules.CitizenshipWhitelist) > 0 {
		citizenship := document.CountryCode(mrz.IssuingCountry)

		allowed := false
		for _, c := range rules.CitizenshipWhitelist {
			if c.Cmp(citizenship) == 0 {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrCitizenshipNotAllowed
		}
	}

	if rules.Sex != nil && rules.Sex.Sign() != 0 {
		if rules.Sex.Cmp(big.NewInt(int64(mrz.Sex))) != 0 {
			return ErrSexMismatch
		}
	}

	birth := mrz.BirthDate.Encoded()
	if enabled(rules.BirthDateLowerbound) && birth.Cmp(rules.BirthDateLowerbound) < 0 {
		return ErrBirthDateOutOfRange
	}
	if enabled(rules.BirthDateUpperbound) && birth.Cmp(rules.BirthDateUpperbound) > 0 {
		return ErrBirthDateOutOfRange
	}

	if enabled(rules.ExpirationDateLowerbound) &&
		mrz.ExpiryDate.Encoded().Cmp(rules.ExpirationDateLowerbound) < 0 {
		return ErrDocumentExpiresTooSoon
	}

	return nil
}

func enabled(bound *big.Int) bool {
	return bound != nil && bound.Cmp(disabledBound) != 0
}

// ProofSource serves proofs from a proposal's nullifier tree.
type ProofSource interface {
	GetProof(ctx context.Context, smt common.Address, index [32]byte) (*onchain.SMTProof, error)
}

// IsAlreadyVoted reports whether the profile's event nullifier is already
// a member of the proposal's nullifier tree.
func IsAlreadyVoted(ctx context.Context, source ProofSource,
	smt common.Address, profile *identity.Profile, eventID *big.Int) (bool, error) {

	nullifier, err := profile.EventNullifier(eventID)
	if err != nil {
		return false, errors.Wrap(err, "deriving event nullifier")
	}

	proof, err := source.GetProof(ctx, smt, onchain.KeyBytes32(nullifier))
	if err != nil {
		return false, errors.Wrap(err, "fetching nullifier proof")
	}

	return proof.Existence, nil
}
