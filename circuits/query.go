package circuits

import (
	"encoding/hex"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/identity"
	"github.com/zkident/go-passport-processor/onchain"
)

// treeDepth is the fixed depth of the on-chain Poseidon SMT; the circuit
// always consumes exactly this many siblings.
const treeDepth = 80

var (
	ErrNoSMTProof     = errors.New("smt proof is required")
	ErrNoPassportInfo = errors.New("on-chain passport info is required")
)

// for tests
var timeNow = time.Now

// QueryProofParams is the normalized parameter set of the query-identity
// circuit. The circuit consumes fixed-arity inputs, so bounds that are not
// in use carry a "disabled" value instead of being omitted: the encoded
// all-zero MRZ date for date bounds, zero for the rest. Nil fields are
// filled with their disabled value by the builder.
type QueryProofParams struct {
	EventID   *big.Int
	EventData *big.Int
	Selector  *big.Int

	TimestampLowerBound       *big.Int
	TimestampUpperBound       *big.Int
	IdentityCounterLowerBound *big.Int
	IdentityCounterUpperBound *big.Int
	BirthDateLowerBound       *big.Int
	BirthDateUpperBound       *big.Int
	ExpirationDateLowerBound  *big.Int
	ExpirationDateUpperBound  *big.Int

	CitizenshipMask *big.Int
}

// DisabledDateBound returns the sentinel date bound: the encoded all-zero
// MRZ date.
func DisabledDateBound() *big.Int {
	return document.DisabledDate.Encoded()
}

// BuildQueryIdentityInputs assembles the witness map for the query-identity
// circuit. It requires the registry's SMT inclusion proof and passport
// record up front; missing either is a precondition failure, never a call
// into the prover with partial inputs.
func BuildQueryIdentityInputs(
	params QueryProofParams,
	doc *document.Document,
	proof *onchain.SMTProof,
	passport *onchain.PassportInfo,
	idInfo *onchain.IdentityInfo,
	profile *identity.Profile,
	enc NumericEncoding,
) (Inputs, error) {
	if proof == nil {
		return nil, ErrNoSMTProof
	}
	if passport == nil || idInfo == nil {
		return nil, ErrNoPassportInfo
	}
	if doc == nil {
		return nil, errors.New("document is required")
	}
	if profile == nil {
		return nil, errors.New("profile is required")
	}

	passportKey, err := identity.PassportKey(doc)
	if err != nil {
		return nil, errors.Wrap(err, "deriving passport key")
	}

	siblings := make([]string, 0, treeDepth)
	for _, sibling := range proof.PreparedSiblings(treeDepth) {
		siblings = append(siblings, enc.Format(sibling.BigInt()))
	}

	return Inputs{
		"event_id":      enc.Format(orZero(params.EventID)),
		"event_data":    enc.Format(orZero(params.EventData)),
		"id_state_root": enc.Format(proof.Root.BigInt()),
		"selector":      enc.Format(orZero(params.Selector)),
		"current_date":  currentDateHex(timeNow()),

		"timestamp_lowerbound":        enc.Format(orZero(params.TimestampLowerBound)),
		"timestamp_upperbound":        enc.Format(orZero(params.TimestampUpperBound)),
		"identity_counter_lowerbound": enc.Format(orZero(params.IdentityCounterLowerBound)),
		"identity_counter_upperbound": enc.Format(orZero(params.IdentityCounterUpperBound)),
		"birth_date_lowerbound":       enc.Format(orDisabledDate(params.BirthDateLowerBound)),
		"birth_date_upperbound":       enc.Format(orDisabledDate(params.BirthDateUpperBound)),
		"expiration_date_lowerbound":  enc.Format(orDisabledDate(params.ExpirationDateLowerBound)),
		"expiration_date_upperbound":  enc.Format(orDisabledDate(params.ExpirationDateUpperBound)),

		"citizenship_mask": enc.Format(orZero(params.CitizenshipMask)),

		"sk_identity":      enc.Format(profile.SecretScalar()),
		"pk_passport_hash": enc.Format(passportKey),
		"dg1":              enc.FormatBytes(doc.DG1),
		"siblings":         siblings,

		"timestamp":        enc.Format(new(big.Int).SetUint64(idInfo.IssueTimestamp)),
		"identity_counter": enc.Format(new(big.Int).SetUint64(passport.IdentityReissueCounter)),
	}, nil
}

// currentDateHex renders the wall-clock date as the circuit expects it: the
// six ASCII digits of YYMMDD, hex-encoded.
func currentDateHex(t time.Time) string {
	return "0x" + hex.EncodeToString([]byte(t.UTC().Format("060102")))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func orDisabledDate(v *big.Int) *big.Int {
	if v == nil {
		return DisabledDateBound()
	}
	return v
}
