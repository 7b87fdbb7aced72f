package relayer

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/sod"
)

const verifySODPath = "/integrations/incognito-light-registrator/v1/registerid"

// DocumentSOD is the wire form of a parsed security object.
type DocumentSOD struct {
	// The active authentication signature, hex string
	AASignature string `json:"aa_signature,omitempty"`
	// The Data Group 15, hex string
	DG15 string `json:"dg15,omitempty"`
	// The encapsulated content, hex string
	EncapsulatedContent string `json:"encapsulated_content"`
	// The hash algorithm used to hash the content
	HashAlgorithm string `json:"hash_algorithm"`
	// The PEM file containing the public key
	PemFile string `json:"pem_file"`
	// Signature corresponding to the algorithm
	Signature string `json:"signature"`
	// The signature algorithm used to sign the content
	SignatureAlgorithm string `json:"signature_algorithm"`
	// The signed attributes, hex string
	SignedAttributes string `json:"signed_attributes"`
	// The document SOD, hex string
	SOD string `json:"sod,omitempty"`
}

type verifySODAttributes struct {
	DocumentSOD DocumentSOD `json:"document_sod"`
	ZKProof     string      `json:"zk_proof"`
}

// VerificationResult is the relayer's attestation over a verified
// document: the registry-ready passport public key and the verifier's
// signature binding it.
type VerificationResult struct {
	PassportPublicKey string `json:"passport_public_key"`
	Verifier          string `json:"verifier"`
	Signature         string `json:"signature"`
}

// NewDocumentSOD renders a document and its parsed security object into
// the verification relayer's wire form.
func NewDocumentSOD(doc *document.Document, so *sod.SecurityObject) (*DocumentSOD, error) {
	pemFile, err := so.CertificatePEM()
	if err != nil {
		return nil, errors.Wrap(err, "encoding signer certificate")
	}

	out := &DocumentSOD{
		EncapsulatedContent: hex.EncodeToString(so.EncapsulatedContent),
		HashAlgorithm:       so.HashAlgorithm.String(),
		PemFile:             pemFile,
		Signature:           hex.EncodeToString(so.Signature),
		SignatureAlgorithm:  so.SignatureAlgorithm.String(),
		SignedAttributes:    hex.EncodeToString(so.SignedAttributes),
		SOD:                 hex.EncodeToString(doc.SOD),
	}

	if doc.HasActiveAuth() {
		out.DG15 = hex.EncodeToString(doc.DG15)
		out.AASignature = hex.EncodeToString(doc.AASignature)
	}

	return out, nil
}

// VerifySOD posts the document's security object together with the
// registration proof and returns the relayer's attestation.
func (c *Client) VerifySOD(ctx context.Context, doc *document.Document,
	so *sod.SecurityObject, proofBytes []byte) (*VerificationResult, error) {

	documentSOD, err := NewDocumentSOD(doc, so)
	if err != nil {
		return nil, err
	}

	data, err := c.post(ctx, verifySODPath, "register_id", verifySODAttributes{
		DocumentSOD: *documentSOD,
		ZKProof:     base64.StdEncoding.EncodeToString(proofBytes),
	})
	if err != nil {
		return nil, err
	}

	var result VerificationResult
	if err = json.Unmarshal(data.Attributes, &result); err != nil {
		return nil, errors.Wrap(err, "decoding verification result")
	}

	if result.PassportPublicKey == "" || result.Signature == "" {
		return nil, errors.New("verification relayer returned an incomplete result")
	}

	return &result, nil
}
