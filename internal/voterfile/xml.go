package voterfile

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// XML voter files arrive with varying namespace prefixes depending on the
// exporting system, so all element and attribute matching here is on local
// names only.
const (
	xmlVoterElement          = "Voter"
	xmlIdentificationElement = "VoterIdentification"
	xmlIdentificationAttr    = "Id"
	xmlAddressLineElement    = "AddressLine"
	xmlAddressTypeAttr       = "type"
	xmlAddressTypeEmail      = "email"
	xmlBallotFormElement     = "BallotFormIdentifier"
	xmlPollingPlaceElement   = "PollingPlaceIdentifier"
	xmlPollingPlaceAttr      = "IdNumber"
)

// ParseXML extracts voter records from an XML voter file. Each repeated
// voter element must carry an identification id, an email address line, a
// ballot form identifier (the precinct), and a polling place id number (the
// ballot style).
func ParseXML(data []byte) ([]VoterRecord, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Reason: "document has no root element"}
	}

	voterElements := findAllByLocalName(root, xmlVoterElement)
	records := make([]VoterRecord, 0, len(voterElements))
	for i, element := range voterElements {
		record, err := parseVoterElement(element, i+1)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := checkDuplicateEmails(records); err != nil {
		return nil, err
	}

	return records, nil
}

func parseVoterElement(element *etree.Element, ordinal int) (VoterRecord, error) {
	record := VoterRecord{}

	identification := findFirstByLocalName(element, xmlIdentificationElement)
	if identification != nil {
		record.ExternalID = strings.TrimSpace(attrByLocalName(identification, xmlIdentificationAttr))
	}
	if record.ExternalID == "" {
		return VoterRecord{}, missingField(ordinal, "voter identification id")
	}

	record.Email = strings.TrimSpace(emailAddressLine(element))
	if record.Email == "" {
		return VoterRecord{}, missingField(ordinal, "email address")
	}

	if ballotForm := findFirstByLocalName(element, xmlBallotFormElement); ballotForm != nil {
		record.Precinct = strings.TrimSpace(ballotForm.Text())
	}
	if record.Precinct == "" {
		return VoterRecord{}, missingField(ordinal, "ballot form identifier")
	}

	if pollingPlace := findFirstByLocalName(element, xmlPollingPlaceElement); pollingPlace != nil {
		record.BallotStyle = strings.TrimSpace(attrByLocalName(pollingPlace, xmlPollingPlaceAttr))
	}
	if record.BallotStyle == "" {
		return VoterRecord{}, missingField(ordinal, "polling place id number")
	}

	return record, nil
}

func emailAddressLine(element *etree.Element) string {
	for _, line := range findAllByLocalName(element, xmlAddressLineElement) {
		if attrByLocalName(line, xmlAddressTypeAttr) == xmlAddressTypeEmail {
			return line.Text()
		}
	}
	return ""
}

func missingField(ordinal int, field string) error {
	return &ParseError{Reason: fmt.Sprintf("voter element %d is missing its %s", ordinal, field)}
}

func findAllByLocalName(element *etree.Element, local string) []*etree.Element {
	var found []*etree.Element
	for _, child := range element.ChildElements() {
		if child.Tag == local {
			found = append(found, child)
		}
		found = append(found, findAllByLocalName(child, local)...)
	}
	return found
}

func findFirstByLocalName(element *etree.Element, local string) *etree.Element {
	for _, child := range element.ChildElements() {
		if child.Tag == local {
			return child
		}
		if nested := findFirstByLocalName(child, local); nested != nil {
			return nested
		}
	}
	return nil
}

func attrByLocalName(element *etree.Element, key string) string {
	for _, attr := range element.Attr {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}
