package document

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/sod"
)

// Date is an MRZ date: six ASCII digits, YYMMDD.
type Date string

// DisabledDate is the canonical "no bound" sentinel: the all-zero MRZ date.
// Its Encoded form (0x303030303030) is what proposal criteria carry when a
// date predicate is switched off.
const DisabledDate Date = "000000"

// Encoded returns the date as a big-endian integer over its ASCII bytes.
// This is the encoding proposal criteria bounds and circuit inputs use.
func (d Date) Encoded() *big.Int {
	return new(big.Int).SetBytes([]byte(d))
}

// Valid reports whether the date is six ASCII digits.
func (d Date) Valid() bool {
	if len(d) != 6 {
		return false
	}
	for _, c := range d {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CountryCode converts a 3-letter issuing-state code to the big-endian
// integer of its ASCII bytes, the form citizenship whitelists use.
func CountryCode(code string) *big.Int {
	return new(big.Int).SetBytes([]byte(code))
}

// MRZ carries the machine-readable-zone fields eligibility checks and
// proof bounds read.
type MRZ struct {
	IssuingCountry string
	Nationality    string
	DocumentNumber string
	BirthDate      Date
	ExpiryDate     Date
	Sex            byte
}

const (
	td1Length = 90
	td3Length = 88
)

// ParseMRZ unwraps the DG1 container and extracts MRZ fields at the fixed
// offsets of the TD1 (id card) or TD3 (passport booklet) layout.
func ParseMRZ(dg1 []byte) (*MRZ, error) {
	text, err := mrzText(dg1)
	if err != nil {
		return nil, err
	}

	switch len(text) {
	case td3Length:
		return &MRZ{
			IssuingCountry: text[2:5],
			DocumentNumber: trimFiller(text[44:53]),
			Nationality:    text[54:57],
			BirthDate:      Date(text[57:63]),
			Sex:            text[64],
			ExpiryDate:     Date(text[65:71]),
		}, nil
	case td1Length:
		return &MRZ{
			IssuingCountry: text[2:5],
			DocumentNumber: trimFiller(text[5:14]),
			BirthDate:      Date(text[30:36]),
			Sex:            text[37],
			ExpiryDate:     Date(text[38:44]),
			Nationality:    text[45:48],
		}, nil
	default:
		return nil, errors.Errorf("unexpected mrz length %d", len(text))
	}
}

// mrzText locates the 5F1F data element within the DG1 container. A bare
// MRZ string without the container is accepted as well.
func mrzText(dg1 []byte) (string, error) {
	if len(dg1) == 0 {
		return "", errors.New("dg1 is empty")
	}

	if len(dg1) == td1Length || len(dg1) == td3Length {
		return string(dg1), nil
	}

	root, _, err := sod.Decode(dg1)
	if err != nil {
		return "", errors.Wrap(err, "malformed dg1")
	}

	node, err := sod.Walk(root, sod.Path{{Class: sod.ClassApplication, Tag: 31}})
	if err != nil {
		return "", err
	}

	return string(node.Value), nil
}

func trimFiller(s string) string {
	for len(s) > 0 && s[len(s)-1] == '<' {
		s = s[:len(s)-1]
	}
	return s
}
