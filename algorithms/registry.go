// Package algorithms maps ASN.1 object identifiers found in a document's
// security object to concrete hash functions and signature scheme families.
// The tables are total: an OID outside them is an error, never a default.
package algorithms

import (
	"crypto/sha1" //nolint:gosec //reason: SHA-1 SODs exist in the field and must be parsed
	"crypto/sha256"
	"crypto/sha512"

	"github.com/pkg/errors"
)

// ErrUnsupportedAlgorithm is returned for any OID outside the lookup tables.
var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

// HashAlgorithm enumerates every digest algorithm a supported security
// object may reference.
type HashAlgorithm int

const (
	SHA1 HashAlgorithm = iota
	SHA224
	SHA256
	SHA384
	SHA512
)

// SignatureAlgorithm enumerates supported signature scheme families.
type SignatureAlgorithm int

const (
	RSA SignatureAlgorithm = iota
	RSAPSS
	ECDSA
)

// Digest size produced by Digest32, fixed for every algorithm because
// downstream bit packing assumes exactly 256 input bits.
const DigestSize = 32

var hashOIDs = map[string]HashAlgorithm{
	"1.3.14.3.2.26":          SHA1,
	"2.16.840.1.101.3.4.2.4": SHA224,
	"2.16.840.1.101.3.4.2.1": SHA256,
	"2.16.840.1.101.3.4.2.2": SHA384,
	"2.16.840.1.101.3.4.2.3": SHA512,

	// Combined signature OIDs resolve to the digest they carry.
	"1.2.840.113549.1.1.5":  SHA1,
	"1.2.840.113549.1.1.14": SHA224,
	"1.2.840.113549.1.1.11": SHA256,
	"1.2.840.113549.1.1.12": SHA384,
	"1.2.840.113549.1.1.13": SHA512,
	"1.2.840.10045.4.1":     SHA1,
	"1.2.840.10045.4.3.1":   SHA224,
	"1.2.840.10045.4.3.2":   SHA256,
	"1.2.840.10045.4.3.3":   SHA384,
	"1.2.840.10045.4.3.4":   SHA512,
}

var signatureOIDs = map[string]SignatureAlgorithm{
	"1.2.840.113549.1.1.1":  RSA,
	"1.2.840.113549.1.1.5":  RSA,
	"1.2.840.113549.1.1.11": RSA,
	"1.2.840.113549.1.1.12": RSA,
	"1.2.840.113549.1.1.13": RSA,
	"1.2.840.113549.1.1.14": RSA,
	"1.2.840.113549.1.1.10": RSAPSS,
	"1.2.840.10045.2.1":     ECDSA,
	"1.2.840.10045.4.1":     ECDSA,
	"1.2.840.10045.4.3.1":   ECDSA,
	"1.2.840.10045.4.3.2":   ECDSA,
	"1.2.840.10045.4.3.3":   ECDSA,
	"1.2.840.10045.4.3.4":   ECDSA,
}

// HashAlgorithmFromOID resolves a plain digest OID or a combined
// signature OID to the digest algorithm it names.
func HashAlgorithmFromOID(oid string) (HashAlgorithm, error) {
	h, ok := hashOIDs[oid]
	if !ok {
		return 0, errors.WithMessagef(ErrUnsupportedAlgorithm, "hash oid %s", oid)
	}
	return h, nil
}

// SignatureAlgorithmFromOID resolves a signature OID to its scheme family.
func SignatureAlgorithmFromOID(oid string) (SignatureAlgorithm, error) {
	s, ok := signatureOIDs[oid]
	if !ok {
		return 0, errors.WithMessagef(ErrUnsupportedAlgorithm, "signature oid %s", oid)
	}
	return s, nil
}

// BitLength is the native digest width in bits.
func (h HashAlgorithm) BitLength() int {
	switch h {
	case SHA1:
		return 160
	case SHA224:
		return 224
	case SHA256:
		return 256
	case SHA384:
		return 384
	default:
		return 512
	}
}

// Digest32 hashes data and normalizes the result to exactly 32 bytes:
// digests shorter than 32 bytes are zero padded on the left, longer ones
// are truncated to their first 32 bytes.
func (h HashAlgorithm) Digest32(data []byte) [DigestSize]byte {
	var out [DigestSize]byte

	switch h {
	case SHA1:
		d := sha1.Sum(data) //nolint:gosec //reason: issuer-chosen algorithm
		copy(out[DigestSize-len(d):], d[:])
	case SHA224:
		d := sha256.Sum224(data)
		copy(out[DigestSize-len(d):], d[:])
	case SHA256:
		out = sha256.Sum256(data)
	case SHA384:
		d := sha512.Sum384(data)
		copy(out[:], d[:DigestSize])
	default:
		d := sha512.Sum512(data)
		copy(out[:], d[:DigestSize])
	}

	return out
}

// String returns the wire name the verification relayer expects.
func (h HashAlgorithm) String() string {
	switch h {
	case SHA1:
		return "SHA1"
	case SHA224:
		return "SHA224"
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	default:
		return "SHA512"
	}
}

// String returns the wire name the verification relayer expects.
func (s SignatureAlgorithm) String() string {
	switch s {
	case RSA:
		return "RSA"
	case RSAPSS:
		return "RSA-PSS"
	default:
		return "ECDSA"
	}
}
