// Package ubl extracts routing metadata from UBL XML payloads: the document
// type (from the root element), the issuer RUC, the series-number id, and
// the voided-line sub-type code. It deliberately does not validate against
// the UBL schema — that is the authority's job.
package ubl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tributo/courier/document"
)

// Sentinel errors returned by Parse.
var (
	// ErrMalformed is returned when the payload is not well-formed XML.
	ErrMalformed = errors.New("ubl: malformed xml")

	// ErrUnsupportedType is returned when the root element names a document
	// type the scheduler does not handle.
	ErrUnsupportedType = errors.New("ubl: unsupported document type")
)

// rootTypes maps UBL root element local names to document types.
var rootTypes = map[string]document.Type{
	"Invoice":          document.TypeInvoice,
	"CreditNote":       document.TypeCreditNote,
	"DebitNote":        document.TypeDebitNote,
	"VoidedDocuments":  document.TypeVoidedDocument,
	"SummaryDocuments": document.TypeSummaryDocument,
	"Perception":       document.TypePerception,
	"Retention":        document.TypeRetention,
}

// Parse scans the payload and extracts the routing metadata the delivery
// pipeline needs. It is a streaming token scan, not a full unmarshal: UBL
// documents are large and only four fields matter here.
func Parse(payload []byte) (*document.XMLMeta, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	dec := xml.NewDecoder(bytes.NewReader(payload))

	meta := &document.XMLMeta{}
	var path []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)

			if len(path) == 1 {
				dt, ok := rootTypes[t.Name.Local]
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.Name.Local)
				}
				meta.DocumentType = dt
			}

		case xml.EndElement:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}

		case xml.CharData:
			// The decoder yields text outside any element for sloppy
			// payloads; only leaf text inside the document matters.
			if len(path) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			record(meta, path, text)
		}
	}

	if meta.DocumentType == "" {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}

	return meta, nil
}

// record captures a leaf text node when its element path is one of the
// fields the scheduler routes on. First occurrence wins throughout.
func record(meta *document.XMLMeta, path []string, text string) {
	leaf := path[len(path)-1]

	switch {
	// <Root><cbc:ID> — the series-number (e.g. F001-1, RA-20200328-1).
	case len(path) == 2 && leaf == "ID":
		if meta.DocumentID == "" {
			meta.DocumentID = text
		}

	// UBL 2.0 style: AccountingSupplierParty/CustomerAssignedAccountID.
	case leaf == "CustomerAssignedAccountID" && contains(path, "AccountingSupplierParty"):
		if meta.RUC == "" {
			meta.RUC = text
		}

	// UBL 2.1 style: AccountingSupplierParty/Party/PartyIdentification/ID.
	case leaf == "ID" && contains(path, "PartyIdentification") &&
		(contains(path, "AccountingSupplierParty") || contains(path, "AgentParty")):
		if meta.RUC == "" {
			meta.RUC = text
		}

	// VoidedDocumentsLine/DocumentTypeCode — the voided sub-type.
	case leaf == "DocumentTypeCode" && contains(path, "VoidedDocumentsLine"):
		if meta.VoidedLineCode == "" {
			meta.VoidedLineCode = text
		}
	}
}

func contains(path []string, name string) bool {
	for _, p := range path {
		if p == name {
			return true
		}
	}
	return false
}
