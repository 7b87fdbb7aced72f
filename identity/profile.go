// Package identity derives the two key kinds every flow is built on: the
// profile key, a pseudonymous identifier computed from the user's private
// scalar, and the passport key, a canonical field element computed from the
// document itself.
package identity

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"
)

// Profile wraps the user's baby-jubjub private key. The profile key it
// exposes is independent of any document.
type Profile struct {
	key babyjub.PrivateKey
}

// NewProfile generates a fresh random profile.
func NewProfile() *Profile {
	return &Profile{key: babyjub.NewRandPrivKey()}
}

// NewProfileFromHex restores a profile from a 32-byte hex secret key.
func NewProfileFromHex(secretKeyHex string) (*Profile, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(secretKeyHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "error decoding secret key")
	}
	if len(raw) != len(babyjub.PrivateKey{}) {
		return nil, errors.Errorf("secret key must be %d bytes, got %d",
			len(babyjub.PrivateKey{}), len(raw))
	}

	var key babyjub.PrivateKey
	copy(key[:], raw)

	return &Profile{key: key}, nil
}

// SecretKeyHex returns the raw secret key for storage by the caller.
func (p *Profile) SecretKeyHex() string {
	return hex.EncodeToString(p.key[:])
}

// SecretScalar is the private identity scalar fed to circuits as
// sk_identity.
func (p *Profile) SecretScalar() *big.Int {
	return p.key.Scalar().BigInt()
}

// PublicKey is the twisted-Edwards point obtained by multiplying the base
// point with the secret scalar.
func (p *Profile) PublicKey() *babyjub.PublicKey {
	return p.key.Public()
}

// PublicKeyHash is the profile key: Poseidon over the public point
// coordinates.
func (p *Profile) PublicKeyHash() (*big.Int, error) {
	pub := p.key.Public()

	h, err := poseidon.Hash([]*big.Int{pub.X, pub.Y})
	if err != nil {
		return nil, errors.Wrap(err, "error hashing public key")
	}

	return h, nil
}

// PublicKeyHashHex renders the profile key as the 32-byte hex value the
// registry stores as the active identity.
func (p *Profile) PublicKeyHashHex() (string, error) {
	h, err := p.PublicKeyHash()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("0x%064x", h), nil
}

// EventNullifier binds a per-event pseudonym to the profile:
// Poseidon(sk, Poseidon(sk), eventID). The same profile and event always
// produce the same value, which is what duplicate-vote detection keys on.
func (p *Profile) EventNullifier(eventID *big.Int) (*big.Int, error) {
	sk := p.SecretScalar()

	skHash, err := poseidon.Hash([]*big.Int{sk})
	if err != nil {
		return nil, errors.Wrap(err, "error hashing secret scalar")
	}

	nullifier, err := poseidon.Hash([]*big.Int{sk, skHash, eventID})
	if err != nil {
		return nil, errors.Wrap(err, "error hashing nullifier")
	}

	return nullifier, nil
}

// SignPoseidon signs a field element with the profile key.
func (p *Profile) SignPoseidon(msg *big.Int) *babyjub.Signature {
	return p.key.SignPoseidon(msg)
}
