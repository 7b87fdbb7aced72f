package sod

import (
	"math/big"

	"github.com/pkg/errors"
)

// KeyKind discriminates the active-authentication public key family.
type KeyKind int

const (
	KeyRSA KeyKind = iota
	KeyECDSA
)

// ActiveAuthKey is the public key embedded in DG15.
type ActiveAuthKey struct {
	Kind KeyKind

	// RSA fields.
	Modulus  *big.Int
	Exponent *big.Int

	// ECDSA: the uncompressed point, 65 bytes with a leading 0x04.
	Point []byte
}

const (
	rsaEncryptionOID = "1.2.840.113549.1.1.1"
	ecPublicKeyOID   = "1.2.840.10045.2.1"
)

var spkiAlgorithmPath = Path{
	{Class: ClassUniversal, Tag: TagSequence},
	{Class: ClassUniversal, Tag: TagOID},
}

// ParseDG15 decodes the DG15 active-authentication container: an optional
// application wrapper around a SubjectPublicKeyInfo.
func ParseDG15(raw []byte) (*ActiveAuthKey, error) {
	root, _, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "malformed dg15")
	}

	spki := root
	if root.Class == ClassApplication && root.Tag == 15 {
		spki, err = Walk(root, Path{{Class: ClassUniversal, Tag: TagSequence}})
		if err != nil {
			return nil, err
		}
	}
	if spki.Class != ClassUniversal || spki.Tag != TagSequence {
		return nil, errors.New("dg15 does not hold a subject public key info")
	}

	oidNode, err := Walk(spki, spkiAlgorithmPath)
	if err != nil {
		return nil, err
	}
	oid, err := oidNode.OID()
	if err != nil {
		return nil, err
	}

	keyBits, err := Walk(spki, Path{{Class: ClassUniversal, Tag: TagBitString}})
	if err != nil {
		return nil, err
	}
	if len(keyBits.Value) < 2 || keyBits.Value[0] != 0 {
		return nil, errors.New("public key bit string has unused bits")
	}
	keyBytes := keyBits.Value[1:]

	switch oid {
	case rsaEncryptionOID:
		return parseRSAKey(keyBytes)
	case ecPublicKeyOID:
		return parseECKey(keyBytes)
	default:
		return nil, errors.Errorf("unsupported active authentication key oid %s", oid)
	}
}

func parseRSAKey(keyBytes []byte) (*ActiveAuthKey, error) {
	seq, _, err := Decode(keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "malformed rsa public key")
	}
	if seq.Class != ClassUniversal || seq.Tag != TagSequence || len(seq.Children) < 2 {
		return nil, errors.New("rsa public key is not a modulus/exponent sequence")
	}

	modulus := seq.Children[0]
	exponent := seq.Children[1]
	if modulus.Tag != TagInteger || exponent.Tag != TagInteger {
		return nil, errors.New("rsa public key fields are not integers")
	}

	return &ActiveAuthKey{
		Kind:     KeyRSA,
		Modulus:  new(big.Int).SetBytes(modulus.Value),
		Exponent: new(big.Int).SetBytes(exponent.Value),
	}, nil
}

func parseECKey(keyBytes []byte) (*ActiveAuthKey, error) {
	if len(keyBytes) != 65 || keyBytes[0] != 0x04 {
		return nil, errors.Errorf(
			"ec public key must be a 65-byte uncompressed point, got %d bytes", len(keyBytes))
	}

	point := make([]byte, len(keyBytes))
	copy(point, keyBytes)

	return &ActiveAuthKey{Kind: KeyECDSA, Point: point}, nil
}
