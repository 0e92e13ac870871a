package metadata

import (
	"bytes"
	"encoding/xml"
	"io"

	xrv "github.com/mattermost/xml-roundtrip-validator"

	"github.com/fedops/mdpipe/pkg/isotime"
)

type xmlSignature struct {
	SignedInfo struct {
		SignatureMethod struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"SignatureMethod"`
		Reference struct {
			URI          string `xml:"URI,attr"`
			DigestMethod struct {
				Algorithm string `xml:"Algorithm,attr"`
			} `xml:"DigestMethod"`
		} `xml:"Reference"`
	} `xml:"SignedInfo"`
}

type xmlExtensions struct {
	PublicationInfo *struct {
		Publisher       string `xml:"publisher,attr"`
		CreationInstant string `xml:"creationInstant,attr"`
	} `xml:"PublicationInfo"`
	RegistrationInfo *struct {
		RegistrationAuthority string `xml:"registrationAuthority,attr"`
	} `xml:"RegistrationInfo"`
}

type xmlDescriptor struct {
	ID              string        `xml:"ID,attr"`
	EntityID        string        `xml:"entityID,attr"`
	Name            string        `xml:"Name,attr"`
	ValidUntil      string        `xml:"validUntil,attr"`
	CreationInstant string        `xml:"creationInstant,attr"`
	Extensions      xmlExtensions `xml:"Extensions"`
	Signature       *xmlSignature `xml:"Signature"`
}

// Extract decodes the top level attributes of a metadata document into an
// AttributeModel. The document kind follows from the root element, which
// may be either md:EntityDescriptor or md:EntitiesDescriptor. Creation
// instants are taken from a creationInstant attribute on the root when
// present, or from mdrpi:PublicationInfo otherwise.
func Extract(r io.Reader) (*AttributeModel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewInvalidDocumentError("unable to read document: %s", err.Error())
	}

	if err := xrv.Validate(bytes.NewReader(data)); err != nil {
		return nil, NewInvalidDocumentError("document failed xml validation: %s", err.Error())
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))

	var root xml.StartElement

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, NewInvalidDocumentError("unable to find document root: %s", err.Error())
		}

		if start, ok := token.(xml.StartElement); ok {
			root = start
			break
		}
	}

	model := &AttributeModel{}

	switch root.Name.Local {
	case "EntityDescriptor":
		model.Kind = KindSingleEntity
	case "EntitiesDescriptor":
		model.Kind = KindAggregate
	default:
		return nil, NewInvalidDocumentError("unexpected root element <%s>", root.Name.Local)
	}

	descriptor := &xmlDescriptor{}
	if err := decoder.DecodeElement(descriptor, &root); err != nil {
		return nil, NewInvalidDocumentError("unable to decode %s: %s", model.Kind.String(), err.Error())
	}

	model.EntityID = descriptor.EntityID
	model.DocumentID = descriptor.ID

	if descriptor.Extensions.RegistrationInfo != nil {
		model.RegistrarID = descriptor.Extensions.RegistrationInfo.RegistrationAuthority
	}

	if descriptor.Signature != nil {
		model.SignatureMethod = descriptor.Signature.SignedInfo.SignatureMethod.Algorithm
		model.DigestMethod = descriptor.Signature.SignedInfo.Reference.DigestMethod.Algorithm
		model.ReferenceURI = descriptor.Signature.SignedInfo.Reference.URI
	}

	if descriptor.ValidUntil != "" {
		ts, err := isotime.ParseDateTime(descriptor.ValidUntil)
		if err != nil {
			return nil, NewInvalidDocumentError("bad validUntil attribute: %s", err.Error())
		}
		model.ValidUntil = &ts
	}

	creationInstant := descriptor.CreationInstant
	if creationInstant == "" && descriptor.Extensions.PublicationInfo != nil {
		creationInstant = descriptor.Extensions.PublicationInfo.CreationInstant
	}

	if creationInstant != "" {
		ts, err := isotime.ParseDateTime(creationInstant)
		if err != nil {
			return nil, NewInvalidDocumentError("bad creationInstant attribute: %s", err.Error())
		}
		model.CreationInstant = &ts
	}

	return model, nil
}
