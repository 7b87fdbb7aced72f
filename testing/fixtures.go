package testing

import (
	"math/big"
	"strconv"
	"strings"
)

// TLV assembles a DER value from a single identifier octet and content.
func TLV(identifier byte, content []byte) []byte {
	out := []byte{identifier}
	n := len(content)
	switch {
	case n < 0x80:
		out = append(out, byte(n))
	case n <= 0xff:
		out = append(out, 0x81, byte(n))
	default:
		out = append(out, 0x82, byte(n>>8), byte(n))
	}
	return append(out, content...)
}

// OID encodes a dotted object identifier as a full DER TLV.
func OID(oid string) []byte {
	parts := strings.Split(oid, ".")
	first, _ := strconv.Atoi(parts[0])
	second, _ := strconv.Atoi(parts[1])

	content := []byte{byte(first*40 + second)}
	for _, p := range parts[2:] {
		v, _ := strconv.ParseUint(p, 10, 64)
		var enc []byte
		for {
			enc = append([]byte{byte(v&0x7f) | 0x80}, enc...)
			v >>= 7
			if v == 0 {
				break
			}
		}
		enc[len(enc)-1] &^= 0x80
		content = append(content, enc...)
	}
	return TLV(0x06, content)
}

func nullDER() []byte { return TLV(0x05, nil) }

func algSequence(oid string) []byte {
	return TLV(0x30, append(OID(oid), nullDER()...))
}

// SODBytes builds a minimal but structurally faithful EF.SOD: APPLICATION 23
// wrapping a CMS SignedData with one digest algorithm, encapsulated content,
// one certificate and one signer info carrying signed attributes.
func SODBytes(hashOID, sigOID string, signedAttrDigest, eContent, signature []byte) []byte {
	version := TLV(0x02, []byte{3})
	digestAlgs := TLV(0x31, algSequence(hashOID))

	encap := TLV(0x30, append(
		OID("2.23.136.1.1.1"),
		TLV(0xA0, TLV(0x04, eContent))...,
	))

	cert := TLV(0x30, TLV(0x02, []byte{1}))
	certs := TLV(0xA0, cert)

	messageDigestAttr := TLV(0x30, append(
		OID("1.2.840.113549.1.9.4"),
		TLV(0x31, TLV(0x04, signedAttrDigest))...,
	))
	signedAttrs := TLV(0xA0, messageDigestAttr)

	signerInfo := TLV(0x30, concat(
		TLV(0x02, []byte{1}),            // version
		TLV(0x30, TLV(0x02, []byte{1})), // issuerAndSerialNumber stub
		algSequence(hashOID),
		signedAttrs,
		algSequence(sigOID),
		TLV(0x04, signature),
	))
	signerInfos := TLV(0x31, signerInfo)

	signedData := TLV(0x30, concat(version, digestAlgs, encap, certs, signerInfos))
	contentInfo := TLV(0x30, append(
		OID("1.2.840.113549.1.7.2"),
		TLV(0xA0, signedData)...,
	))

	return TLV(0x77, contentInfo)
}

// DG15RSA builds a DG15 container around an RSA SubjectPublicKeyInfo.
func DG15RSA(modulus *big.Int, exponent int64) []byte {
	rsaKey := TLV(0x30, concat(
		TLV(0x02, modulus.Bytes()),
		TLV(0x02, big.NewInt(exponent).Bytes()),
	))

	spki := TLV(0x30, concat(
		TLV(0x30, append(OID("1.2.840.113549.1.1.1"), nullDER()...)),
		TLV(0x03, append([]byte{0}, rsaKey...)),
	))

	return TLV(0x6F, spki)
}

// DG15EC builds a DG15 container around an EC SubjectPublicKeyInfo holding
// an uncompressed point.
func DG15EC(point []byte) []byte {
	spki := TLV(0x30, concat(
		TLV(0x30, append(OID("1.2.840.10045.2.1"), OID("1.2.840.10045.3.1.7")...)),
		TLV(0x03, append([]byte{0}, point...)),
	))

	return TLV(0x6F, spki)
}

// DG1TD3 builds a DG1 container holding a TD3 (passport booklet) MRZ with
// the given fields. Name and check digits are filler.
func DG1TD3(issuing, docNo, nationality, birth, sex, expiry string) []byte {
	line1 := "P<" + issuing + pad("HOLDER<<SAMPLE", 39)
	line2 := pad(docNo, 9) + "0" + nationality + birth + "0" + sex + expiry + "0" +
		pad("", 14) + "0" + "0"

	mrz := line1 + line2
	return TLV(0x61, TLV2(0x5F, 0x1F, []byte(mrz)))
}

// TLV2 assembles a DER value with a two-octet identifier.
func TLV2(id1, id2 byte, content []byte) []byte {
	out := TLV(id2, content)
	return append([]byte{id1}, out...)
}

func pad(s string, n int) string {
	for len(s) < n {
		s += "<"
	}
	return s[:n]
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
