package extractor

import (
	encasn1 "encoding/asn1"
	"errors"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

type rawExtension struct {
	OID   string
	Value []byte
}

// certificateExtensions walks the DER structure of a certificate down to the
// TBS extension list without validating the contents of any field. It is
// used when the full parser rejects a certificate over a field that has no
// bearing on the extracted record, such as a SAN URI that is not RFC 3986.
func certificateExtensions(der []byte) ([]rawExtension, error) {
	input := cryptobyte.String(der)
	var cert, tbs cryptobyte.String
	if !input.ReadASN1(&cert, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("malformed certificate")
	}
	if !cert.ReadASN1(&tbs, cbasn1.SEQUENCE) {
		return nil, errors.New("malformed tbs certificate")
	}

	if !tbs.SkipOptionalASN1(cbasn1.Tag(0).Constructed().ContextSpecific()) ||
		!tbs.SkipASN1(cbasn1.INTEGER) {
		return nil, errors.New("malformed version or serial number")
	}
	// signature, issuer, validity, subject, subjectPublicKeyInfo
	for i := 0; i < 5; i++ {
		if !tbs.SkipASN1(cbasn1.SEQUENCE) {
			return nil, errors.New("malformed tbs certificate")
		}
	}
	if !tbs.SkipOptionalASN1(cbasn1.Tag(1).ContextSpecific()) ||
		!tbs.SkipOptionalASN1(cbasn1.Tag(2).ContextSpecific()) {
		return nil, errors.New("malformed unique identifier")
	}

	var (
		wrapped cryptobyte.String
		present bool
	)
	if !tbs.ReadOptionalASN1(&wrapped, &present, cbasn1.Tag(3).Constructed().ContextSpecific()) {
		return nil, errors.New("malformed extensions")
	}
	if !present {
		return nil, nil
	}
	var list cryptobyte.String
	if !wrapped.ReadASN1(&list, cbasn1.SEQUENCE) {
		return nil, errors.New("malformed extensions")
	}

	var exts []rawExtension
	for !list.Empty() {
		var (
			ext   cryptobyte.String
			oid   encasn1.ObjectIdentifier
			value []byte
		)
		if !list.ReadASN1(&ext, cbasn1.SEQUENCE) ||
			!ext.ReadASN1ObjectIdentifier(&oid) ||
			!ext.SkipOptionalASN1(cbasn1.BOOLEAN) ||
			!ext.ReadASN1Bytes(&value, cbasn1.OCTET_STRING) {
			return nil, errors.New("malformed extension")
		}
		exts = append(exts, rawExtension{OID: oid.String(), Value: value})
	}
	return exts, nil
}
