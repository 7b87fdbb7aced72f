package identity

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/algorithms"
	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/sod"
)

// rsaChunkBits are the chunk widths the registration circuit consumes,
// listed least-significant chunk first. They sum to the 1024-bit window.
var rsaChunkBits = []uint{224, 200, 200, 200, 200}

const rsaKeyWindow = 1024

// ecCoordinateModulus reduces EC coordinates below the field prime before
// hashing: 2^248.
var ecCoordinateModulus = new(big.Int).Lsh(big.NewInt(1), 248)

// signedAttrKeyBits is how many of the digest's most significant bits feed
// the fallback derivation.
const signedAttrKeyBits = 252

// PassportKey derives the canonical field element identifying a document.
// The derivation path is selected solely by DG15 presence: active
// authentication documents derive from the embedded public key, all others
// from the signed attributes. The result is deterministic for fixed
// document bytes.
func PassportKey(doc *document.Document) (*big.Int, error) {
	if !doc.HasActiveAuth() {
		return PassportHash(doc)
	}

	key, err := sod.ParseDG15(doc.DG15)
	if err != nil {
		return nil, err
	}

	switch key.Kind {
	case sod.KeyRSA:
		return KeyFromRSAModulus(key.Modulus)
	case sod.KeyECDSA:
		return KeyFromECPoint(key.Point)
	default:
		return nil, errors.Errorf("unsupported key kind %d", key.Kind)
	}
}

// KeyFromRSAModulus hashes the top 1024 bits of an RSA modulus. The window
// is split into chunks of [224,200,200,200,200] bits starting at the least
// significant end, and hashed most-significant chunk first.
func KeyFromRSAModulus(modulus *big.Int) (*big.Int, error) {
	bitLen := modulus.BitLen()
	if bitLen < rsaKeyWindow {
		return nil, errors.Errorf("rsa modulus is %d bits, need at least %d",
			bitLen, rsaKeyWindow)
	}

	window := new(big.Int).Rsh(modulus, uint(bitLen-rsaKeyWindow))

	rest := new(big.Int).Set(window)
	chunks := make([]*big.Int, len(rsaChunkBits))
	for i, bits := range rsaChunkBits {
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
		chunks[i] = new(big.Int).And(rest, mask)
		rest.Rsh(rest, bits)
	}

	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}

	h, err := poseidon.Hash(chunks)
	if err != nil {
		return nil, errors.Wrap(err, "error hashing rsa chunks")
	}

	return h, nil
}

// KeyFromECPoint hashes the coordinates of an uncompressed EC point, each
// reduced modulo 2^248.
func KeyFromECPoint(point []byte) (*big.Int, error) {
	if len(point) != 65 || point[0] != 0x04 {
		return nil, errors.Errorf(
			"ec point must be 65 bytes with a 0x04 marker, got %d bytes", len(point))
	}

	x := new(big.Int).SetBytes(point[1:33])
	y := new(big.Int).SetBytes(point[33:65])
	x.Mod(x, ecCoordinateModulus)
	y.Mod(y, ecCoordinateModulus)

	h, err := poseidon.Hash([]*big.Int{x, y})
	if err != nil {
		return nil, errors.Wrap(err, "error hashing ec coordinates")
	}

	return h, nil
}

// PassportHash is the fallback derivation for documents without active
// authentication: the signed attributes are hashed with the algorithm the
// security object names, and the digest's top 252 bits are hashed as one
// field element.
func PassportHash(doc *document.Document) (*big.Int, error) {
	so, err := sod.ParseSOD(doc.SOD)
	if err != nil {
		return nil, err
	}

	return KeyFromSignedAttributes(so.SignedAttributes, so.HashAlgorithm)
}

// KeyFromSignedAttributes packs the most significant 252 bits of the
// 32-byte digest, MSB first, and Poseidon-hashes the packed value.
func KeyFromSignedAttributes(signedAttrs []byte, alg algorithms.HashAlgorithm) (*big.Int, error) {
	digest := alg.Digest32(signedAttrs)

	packed := new(big.Int).SetBytes(digest[:])
	packed.Rsh(packed, uint(algorithms.DigestSize*8-signedAttrKeyBits))

	h, err := poseidon.Hash([]*big.Int{packed})
	if err != nil {
		return nil, errors.Wrap(err, "error hashing signed attributes digest")
	}

	return h, nil
}
