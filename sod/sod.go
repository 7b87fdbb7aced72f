package sod

import (
	"encoding/pem"

	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/algorithms"
)

// SecurityObject is the parsed EF.SOD: the CMS SignedData fields the
// identity pipeline needs, nothing more.
type SecurityObject struct {
	// HashAlgorithmOID names the digest used over the data groups.
	HashAlgorithmOID string
	HashAlgorithm    algorithms.HashAlgorithm

	SignatureAlgorithmOID string
	SignatureAlgorithm    algorithms.SignatureAlgorithm

	// SignedAttributes is re-encoded under the universal SET tag (0x31):
	// CMS requires the signature digest to be computed over the canonical
	// SET encoding, not the implicit [0] found on the wire.
	SignedAttributes []byte

	EncapsulatedContent []byte
	Signature           []byte

	// Certificates holds the raw DER of each embedded certificate,
	// document signer first.
	Certificates [][]byte

	Raw []byte
}

const signedDataOID = "1.2.840.113549.1.7.2"

var (
	contentInfoPath = Path{
		{Class: ClassUniversal, Tag: TagSequence},
	}
	signedDataPath = Path{
		{Class: ClassContextSpecific, Tag: 0},
		{Class: ClassUniversal, Tag: TagSequence},
	}
	digestAlgorithmPath = Path{
		{Class: ClassUniversal, Tag: TagSet},
		{Class: ClassUniversal, Tag: TagSequence},
		{Class: ClassUniversal, Tag: TagOID},
	}
	encapContentPath = Path{
		{Class: ClassUniversal, Tag: TagSequence},
		{Class: ClassContextSpecific, Tag: 0},
		{Class: ClassUniversal, Tag: TagOctetString},
	}
	signerInfoPath = Path{
		{Class: ClassUniversal, Tag: TagSet, Index: 1},
		{Class: ClassUniversal, Tag: TagSequence},
	}
)

// ParseSOD decodes an EF.SOD file. The input may carry the ICAO
// APPLICATION 23 wrapper or start directly at the CMS ContentInfo.
func ParseSOD(raw []byte) (*SecurityObject, error) {
	root, _, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "malformed security object")
	}

	contentInfo := root
	if root.Class == ClassApplication && root.Tag == 23 {
		contentInfo, err = Walk(root, contentInfoPath)
		if err != nil {
			return nil, err
		}
	}
	if contentInfo.Class != ClassUniversal || contentInfo.Tag != TagSequence {
		return nil, errors.New("content info is not a sequence")
	}

	oidNode, err := Walk(contentInfo, Path{{Class: ClassUniversal, Tag: TagOID}})
	if err != nil {
		return nil, err
	}
	contentType, err := oidNode.OID()
	if err != nil {
		return nil, err
	}
	if contentType != signedDataOID {
		return nil, errors.Errorf("unexpected content type %s", contentType)
	}

	signedData, err := Walk(contentInfo, signedDataPath)
	if err != nil {
		return nil, err
	}

	so := &SecurityObject{Raw: raw}

	digestOIDNode, err := Walk(signedData, digestAlgorithmPath)
	if err != nil {
		return nil, err
	}
	so.HashAlgorithmOID, err = digestOIDNode.OID()
	if err != nil {
		return nil, err
	}
	so.HashAlgorithm, err = algorithms.HashAlgorithmFromOID(so.HashAlgorithmOID)
	if err != nil {
		return nil, err
	}

	eContent, err := Walk(signedData, encapContentPath)
	if err != nil {
		return nil, err
	}
	so.EncapsulatedContent = eContent.Value

	// Certificates are carried under an implicit [0] between
	// encapContentInfo and signerInfos.
	certs, err := Walk(signedData, Path{{Class: ClassContextSpecific, Tag: 0}})
	if err == nil {
		for _, cert := range certs.Children {
			if cert.Class == ClassUniversal && cert.Tag == TagSequence {
				so.Certificates = append(so.Certificates, cert.Raw)
			}
		}
	}

	signerInfo, err := Walk(signedData, signerInfoPath)
	if err != nil {
		return nil, err
	}
	if err := so.parseSignerInfo(signerInfo); err != nil {
		return nil, err
	}

	return so, nil
}

// parseSignerInfo extracts signed attributes, the signature algorithm and
// the signature from the single SignerInfo. Children are positional per
// RFC 5652: version, sid, digestAlgorithm, [0] signedAttrs,
// signatureAlgorithm, signature.
func (so *SecurityObject) parseSignerInfo(si *Node) error {
	if len(si.Children) < 6 {
		return errors.Errorf("signer info holds %d fields, want at least 6", len(si.Children))
	}

	signedAttrs := si.Children[3]
	if signedAttrs.Class != ClassContextSpecific || signedAttrs.Tag != 0 {
		return errors.New("signer info carries no signed attributes")
	}
	so.SignedAttributes = retagAsSet(signedAttrs.Raw)

	sigAlg := si.Children[4]
	oidNode, err := Walk(sigAlg, Path{{Class: ClassUniversal, Tag: TagOID}})
	if err != nil {
		return err
	}
	so.SignatureAlgorithmOID, err = oidNode.OID()
	if err != nil {
		return err
	}
	so.SignatureAlgorithm, err = algorithms.SignatureAlgorithmFromOID(so.SignatureAlgorithmOID)
	if err != nil {
		return err
	}

	sig := si.Children[5]
	if sig.Class != ClassUniversal || sig.Tag != TagOctetString {
		return errors.New("signature is not an octet string")
	}
	so.Signature = sig.Value

	return nil
}

// retagAsSet rewrites the implicit [0] identifier octet to the universal
// SET tag. The content octets are already in canonical DER order, so the
// rest of the encoding is reused as is.
func retagAsSet(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	out[0] = 0x31
	return out
}

// CertificatePEM wraps the document signer certificate in PEM armor for
// the verification relayer.
func (so *SecurityObject) CertificatePEM() (string, error) {
	if len(so.Certificates) == 0 {
		return "", errors.New("security object carries no certificates")
	}

	block := &pem.Block{Type: "CERTIFICATE", Bytes: so.Certificates[0]}
	return string(pem.EncodeToMemory(block)), nil
}
