package metadata

import (
	"fmt"
	"time"

	"github.com/fedops/mdpipe/pkg/isotime"
)

// Kind distinguishes the two top level element types a SAML metadata
// document can have.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSingleEntity is an md:EntityDescriptor document
	KindSingleEntity
	// KindAggregate is an md:EntitiesDescriptor document
	KindAggregate
)

func (k Kind) String() string {
	switch k {
	case KindSingleEntity:
		return "EntityDescriptor"
	case KindAggregate:
		return "EntitiesDescriptor"
	default:
		return "unknown"
	}
}

// AttributeModel is the normalised view of one metadata document: its kind
// and the top level attributes that matter for validity bookkeeping. The
// identifying fields are carried through for logging and export but are
// opaque to all validity computation. Both timestamps are optional and
// independent; no ordering between them is enforced at construction.
type AttributeModel struct {
	Kind Kind

	CreationInstant *time.Time
	ValidUntil      *time.Time

	EntityID    string
	DocumentID  string
	RegistrarID string

	SignatureMethod string
	DigestMethod    string
	ReferenceURI    string
}

type InvalidDocumentError struct {
	msg string
}

func NewInvalidDocumentError(format string, args ...any) InvalidDocumentError {
	return InvalidDocumentError{msg: fmt.Sprintf(format, args...)}
}

func (ide InvalidDocumentError) Error() string {
	return ide.msg
}

const (
	attrCreationInstant       = "creationInstant"
	attrValidUntil            = "validUntil"
	attrEntityID              = "entityID"
	attrDocumentID            = "ID"
	attrRegistrationAuthority = "registrationAuthority"
	attrSignatureMethod       = "signatureMethod"
	attrDigestMethod          = "digestMethod"
	attrReferenceURI          = "referenceURI"
)

// FromPairs builds an AttributeModel from the name/value mapping produced
// by an external field extractor. The document kind is signalled by the
// presence of a sentinel key named after the top level element.
func FromPairs(pairs map[string]string) (*AttributeModel, error) {
	model := &AttributeModel{}

	if _, ok := pairs[KindSingleEntity.String()]; ok {
		model.Kind = KindSingleEntity
	}

	if _, ok := pairs[KindAggregate.String()]; ok {
		if model.Kind != KindUnknown {
			return nil, NewInvalidDocumentError("document signals both single entity and aggregate kinds")
		}
		model.Kind = KindAggregate
	}

	if model.Kind == KindUnknown {
		return nil, NewInvalidDocumentError("document kind sentinel missing from attribute pairs")
	}

	if value, ok := pairs[attrCreationInstant]; ok {
		ts, err := isotime.ParseDateTime(value)
		if err != nil {
			return nil, NewInvalidDocumentError("bad %s attribute: %s", attrCreationInstant, err.Error())
		}
		model.CreationInstant = &ts
	}

	if value, ok := pairs[attrValidUntil]; ok {
		ts, err := isotime.ParseDateTime(value)
		if err != nil {
			return nil, NewInvalidDocumentError("bad %s attribute: %s", attrValidUntil, err.Error())
		}
		model.ValidUntil = &ts
	}

	model.EntityID = pairs[attrEntityID]
	model.DocumentID = pairs[attrDocumentID]
	model.RegistrarID = pairs[attrRegistrationAuthority]
	model.SignatureMethod = pairs[attrSignatureMethod]
	model.DigestMethod = pairs[attrDigestMethod]
	model.ReferenceURI = pairs[attrReferenceURI]

	return model, nil
}

// Pairs renders the model back to the flat name/value form.
func (m *AttributeModel) Pairs() map[string]string {
	pairs := map[string]string{
		m.Kind.String(): "",
	}

	if m.CreationInstant != nil {
		pairs[attrCreationInstant] = isotime.FormatDateTime(*m.CreationInstant)
	}

	if m.ValidUntil != nil {
		pairs[attrValidUntil] = isotime.FormatDateTime(*m.ValidUntil)
	}

	for name, value := range map[string]string{
		attrEntityID:              m.EntityID,
		attrDocumentID:            m.DocumentID,
		attrRegistrationAuthority: m.RegistrarID,
		attrSignatureMethod:       m.SignatureMethod,
		attrDigestMethod:          m.DigestMethod,
		attrReferenceURI:          m.ReferenceURI,
	} {
		if value != "" {
			pairs[name] = value
		}
	}

	return pairs
}
