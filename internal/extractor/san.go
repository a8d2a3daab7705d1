package extractor

import (
	"crypto/x509/pkix"
	encasn1 "encoding/asn1"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// GeneralName tags from RFC 5280, section 4.2.1.6.
const (
	NameOther        = 0
	NameRFC822       = 1
	NameDNS          = 2
	NameX400Address  = 3
	NameDirectory    = 4
	NameEDIParty     = 5
	NameURI          = 6
	NameIPAddress    = 7
	NameRegisteredID = 8
)

// GeneralName is one entry of a subjectAltName extension.
type GeneralName struct {
	Tag   int
	Value string
}

// String returns the name's value. Email, URI and DNS names are their own
// string form; other kinds already carry a textual rendering in Value.
func (n GeneralName) String() string { return n.Value }

// ParseGeneralNames decodes a subjectAltName extension value, keeping the
// names in the order they are encoded.
func ParseGeneralNames(der []byte) ([]GeneralName, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("invalid subjectAltName: expected a single SEQUENCE")
	}

	var names []GeneralName
	for !seq.Empty() {
		var (
			value cryptobyte.String
			tag   cbasn1.Tag
		)
		if !seq.ReadAnyASN1(&value, &tag) {
			return nil, errors.New("invalid subjectAltName: truncated general name")
		}
		if tag&0xc0 != 0x80 {
			return nil, fmt.Errorf("invalid subjectAltName: unexpected tag 0x%02x", uint8(tag))
		}
		name, err := parseGeneralName(int(tag&0x1f), []byte(value))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func parseGeneralName(tag int, value []byte) (GeneralName, error) {
	n := GeneralName{Tag: tag}
	switch tag {
	case NameRFC822, NameDNS, NameURI:
		n.Value = string(value)
	case NameIPAddress:
		switch len(value) {
		case net.IPv4len, net.IPv6len:
			n.Value = net.IP(value).String()
		default:
			n.Value = fmt.Sprintf("IPAddress(%x)", value)
		}
	case NameDirectory:
		var rdns pkix.RDNSequence
		if rest, err := encasn1.Unmarshal(value, &rdns); err != nil || len(rest) != 0 {
			return n, fmt.Errorf("invalid directoryName: %v", err)
		}
		n.Value = "DirectoryName(" + rdns.String() + ")"
	case NameOther:
		s := cryptobyte.String(value)
		var oid encasn1.ObjectIdentifier
		if !s.ReadASN1ObjectIdentifier(&oid) {
			return n, errors.New("invalid otherName: missing type-id")
		}
		n.Value = "OtherName(" + oid.String() + ")"
		var inner cryptobyte.String
		if s.ReadASN1(&inner, cbasn1.Tag(0).ContextSpecific().Constructed()) {
			var text cryptobyte.String
			if inner.ReadASN1(&text, cbasn1.UTF8String) && utf8.Valid(text) {
				n.Value = "OtherName(" + oid.String() + ", " + string(text) + ")"
			}
		}
	case NameRegisteredID:
		b := cryptobyte.NewBuilder(nil)
		b.AddASN1(cbasn1.OBJECT_IDENTIFIER, func(c *cryptobyte.Builder) { c.AddBytes(value) })
		raw, err := b.Bytes()
		if err != nil {
			return n, fmt.Errorf("invalid registeredID: %w", err)
		}
		s := cryptobyte.String(raw)
		var oid encasn1.ObjectIdentifier
		if !s.ReadASN1ObjectIdentifier(&oid) {
			return n, errors.New("invalid registeredID")
		}
		n.Value = "RegisteredID(" + oid.String() + ")"
	default:
		n.Value = fmt.Sprintf("GeneralName[%d](%x)", tag, value)
	}
	return n, nil
}
