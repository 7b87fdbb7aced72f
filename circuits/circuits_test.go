package circuits

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/iden3/go-merkletree-sql/v2"
	"github.com/stretchr/testify/require"

	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/identity"
	"github.com/zkident/go-passport-processor/onchain"
	tst "github.com/zkident/go-passport-processor/testing"
)

func TestNumericEncodingFormat(t *testing.T) {
	v := big.NewInt(255)

	require.Equal(t, "255", Decimal.Format(v))
	require.Equal(t, "0xff", HexPrefixed.Format(v))
}

func TestNumericEncodingFormatBytes(t *testing.T) {
	data := []byte{0, 1, 255}

	require.Equal(t, []string{"0", "1", "255"}, Decimal.FormatBytes(data))
	require.Equal(t, []string{"0x0", "0x1", "0xff"}, HexPrefixed.FormatBytes(data))
}

func testDocument(t *testing.T) *document.Document {
	t.Helper()

	sodBytes := tst.SODBytes("2.16.840.1.101.3.4.2.1", "1.2.840.113549.1.1.11",
		[]byte{0x11}, []byte{0x22}, []byte{0x33})
	doc, err := document.New(
		tst.DG1TD3("UKR", "FA123456", "UKR", "900101", "F", "330101"),
		sodBytes,
	)
	require.NoError(t, err)
	return doc
}

func TestBuildLiteRegistrationInputs(t *testing.T) {
	doc := testDocument(t)
	profile := identity.NewProfile()

	inputs, err := BuildLiteRegistrationInputs(doc, profile, Decimal)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	dg1, ok := inputs["dg1"].([]string)
	require.True(t, ok)
	require.Len(t, dg1, len(doc.DG1))

	require.Equal(t, profile.SecretScalar().String(), inputs["sk_identity"])

	_, err = inputs.JSON()
	require.NoError(t, err)
}

func TestBuildLiteRegistrationInputs_MissingDocument(t *testing.T) {
	_, err := BuildLiteRegistrationInputs(nil, identity.NewProfile(), Decimal)
	require.Error(t, err)
}

func testSMTProof(t *testing.T) *onchain.SMTProof {
	t.Helper()

	root, err := merkletree.NewHashFromBigInt(big.NewInt(12345))
	require.NoError(t, err)
	sibling, err := merkletree.NewHashFromBigInt(big.NewInt(678))
	require.NoError(t, err)

	return &onchain.SMTProof{
		Root:      root,
		Siblings:  []*merkletree.Hash{sibling},
		Existence: true,
	}
}

func TestBuildQueryIdentityInputs(t *testing.T) {
	restore := timeNow
	timeNow = func() time.Time { return time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = restore }()

	doc := testDocument(t)
	profile := identity.NewProfile()
	proof := testSMTProof(t)
	passport := &onchain.PassportInfo{IdentityReissueCounter: 2}
	idInfo := &onchain.IdentityInfo{IssueTimestamp: 1700000000}

	params := QueryProofParams{
		EventID:             big.NewInt(42),
		Selector:            big.NewInt(0x1A01),
		CitizenshipMask:     document.CountryCode("UKR"),
		BirthDateLowerBound: document.Date("700101").Encoded(),
	}

	inputs, err := BuildQueryIdentityInputs(params, doc, proof, passport, idInfo, profile, Decimal)
	require.NoError(t, err)

	require.Equal(t, "42", inputs["event_id"])
	require.Equal(t, "0", inputs["event_data"])
	require.Equal(t, "12345", inputs["id_state_root"])
	require.Equal(t, "0x323430373135", inputs["current_date"])

	// Unset bounds carry their disabled values, never get omitted.
	require.Equal(t, "0", inputs["timestamp_lowerbound"])
	require.Equal(t, DisabledDateBound().String(), inputs["birth_date_upperbound"])
	require.Equal(t, DisabledDateBound().String(), inputs["expiration_date_lowerbound"])
	require.Equal(t, document.Date("700101").Encoded().String(), inputs["birth_date_lowerbound"])

	siblings, ok := inputs["siblings"].([]string)
	require.True(t, ok)
	require.Len(t, siblings, treeDepth)
	require.Equal(t, "678", siblings[0])
	require.Equal(t, "0", siblings[1])
	require.Equal(t, "0", siblings[treeDepth-1])

	require.Equal(t, "1700000000", inputs["timestamp"])
	require.Equal(t, "2", inputs["identity_counter"])

	key, err := identity.PassportKey(doc)
	require.NoError(t, err)
	require.Equal(t, key.String(), inputs["pk_passport_hash"])

	data, err := inputs.JSON()
	require.NoError(t, err)
	require.True(t, json.Valid(data))
}

func TestBuildQueryIdentityInputs_Preconditions(t *testing.T) {
	doc := testDocument(t)
	profile := identity.NewProfile()
	proof := testSMTProof(t)

	_, err := BuildQueryIdentityInputs(QueryProofParams{}, doc, nil,
		&onchain.PassportInfo{}, &onchain.IdentityInfo{}, profile, Decimal)
	require.ErrorIs(t, err, ErrNoSMTProof)

	_, err = BuildQueryIdentityInputs(QueryProofParams{}, doc, proof,
		nil, &onchain.IdentityInfo{}, profile, Decimal)
	require.ErrorIs(t, err, ErrNoPassportInfo)

	_, err = BuildQueryIdentityInputs(QueryProofParams{}, doc, proof,
		&onchain.PassportInfo{}, nil, profile, Decimal)
	require.ErrorIs(t, err, ErrNoPassportInfo)
}

func TestSplitProof(t *testing.T) {
	signal := func(last byte) string {
		var b [32]byte
		b[31] = last
		out := ""
		for _, x := range b {
			out += hexByte(x)
		}
		return out
	}

	out := "0x" + signal(1) + signal(2) + signal(3) + "deadbeef"

	proof, err := SplitProof(out, 3)
	require.NoError(t, err)
	require.Len(t, proof.PubSignals, 3)
	require.Equal(t, "0x"+signal(2), proof.PubSignals[1])
	require.Equal(t, "deadbeef", proof.ProofHex)

	raw, err := proof.Bytes()
	require.NoError(t, err)
	require.Len(t, raw, 3*32+4)
	require.Equal(t, byte(0xde), raw[96])
}

func TestSplitProof_Empty(t *testing.T) {
	_, err := SplitProof("", 3)
	require.ErrorIs(t, err, ErrEmptyProof)

	_, err = SplitProof("0x", 3)
	require.ErrorIs(t, err, ErrEmptyProof)
}

func TestSplitProof_TooShort(t *testing.T) {
	_, err := SplitProof("0xabcd", 3)
	require.Error(t, err)
}

func TestPubSignalsCount(t *testing.T) {
	require.Equal(t, 3, RegisterIdentityLight256.PubSignalsCount())
	require.Equal(t, 24, QueryIdentity.PubSignalsCount())
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}
