// Package document holds the immutable scanned-document value and the MRZ
// fields the identity pipeline reads from it.
package document

import (
	"github.com/pkg/errors"
)

// Document is the raw material of every flow: the data groups and security
// object read from an ICAO-9303 travel document. It is constructed once
// from scanned bytes and never mutated; the library does not persist it.
type Document struct {
	// DG1 holds the MRZ container. Required.
	DG1 []byte
	// SOD holds the security object file. Required.
	SOD []byte

	// DG15 holds the active-authentication public key container, when the
	// document supports active authentication.
	DG15 []byte

	AASignature []byte
}

// New validates the required data groups and returns the document value.
func New(dg1, sod []byte) (*Document, error) {
	if len(dg1) == 0 {
		return nil, errors.New("dg1 is required")
	}
	if len(sod) == 0 {
		return nil, errors.New("sod is required")
	}

	return &Document{DG1: dg1, SOD: sod}, nil
}

// WithActiveAuth returns a copy carrying the active-authentication
// artifacts.
func (d *Document) WithActiveAuth(dg15, signature []byte) *Document {
	out := *d
	out.DG15 = dg15
	out.AASignature = signature
	return &out
}

// HasActiveAuth reports whether the document carries an
// active-authentication public key. It selects the passport key
// derivation path.
func (d *Document) HasActiveAuth() bool {
	return len(d.DG15) > 0
}
