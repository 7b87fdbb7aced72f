package circuits

import (
	"github.com/pkg/errors"

	"github.com/zkident/go-passport-processor/document"
	"github.com/zkident/go-passport-processor/identity"
)

// BuildLiteRegistrationInputs assembles the witness map for the lite
// registration circuit family, which binds the document's DG1 contents to
// the caller's private identity secret.
func BuildLiteRegistrationInputs(doc *document.Document, profile *identity.Profile, enc NumericEncoding) (Inputs, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}
	if profile == nil {
		return nil, errors.New("profile is required")
	}

	return Inputs{
		"dg1":         enc.FormatBytes(doc.DG1),
		"sk_identity": enc.Format(profile.SecretScalar()),
	}, nil
}
