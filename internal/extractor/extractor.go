// Package extractor maps the identity extensions of a Fulcio-style signing
// certificate to a flat Record.
package extractor

import (
	"encoding/pem"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/chtzvt/rekorslurp/internal/entry"
	x509 "github.com/google/certificate-transparency-go/x509"
)

// ErrSkip is returned for entries that carry something other than a
// certificate, such as a bare public key. It is not a failure.
var ErrSkip = errors.New("entry does not contain a certificate")

// CertificateParseError reports PEM or DER that could not be parsed.
type CertificateParseError struct {
	LogIndex uint64
	Stage    string
	Err      error
}

func (e *CertificateParseError) Error() string {
	return fmt.Sprintf("log index %d: %s parsing failed: %v", e.LogIndex, e.Stage, e.Err)
}

func (e *CertificateParseError) Unwrap() error { return e.Err }

const (
	OIDSubjectAltName = "2.5.29.17"

	OIDFulcioIssuer                   = "1.3.6.1.4.1.57264.1.1"
	OIDFulcioGitHubWorkflowTrigger    = "1.3.6.1.4.1.57264.1.2"
	OIDFulcioGitHubWorkflowSHA        = "1.3.6.1.4.1.57264.1.3"
	OIDFulcioGitHubWorkflowName       = "1.3.6.1.4.1.57264.1.4"
	OIDFulcioGitHubWorkflowRepository = "1.3.6.1.4.1.57264.1.5"
	OIDFulcioGitHubWorkflowRef        = "1.3.6.1.4.1.57264.1.6"
)

// ExtensionFunc decodes an extension value into the named record field.
// A non-nil error leaves the field unset.
type ExtensionFunc func(value []byte) (field string, val string, err error)

func utf8Field(field string) ExtensionFunc {
	return func(value []byte) (string, string, error) {
		if !utf8.Valid(value) {
			return field, "", fmt.Errorf("%s is not valid UTF-8", field)
		}
		return field, string(value), nil
	}
}

var extensionFuncs = map[string]ExtensionFunc{
	OIDSubjectAltName: func(value []byte) (string, string, error) {
		names, err := ParseGeneralNames(value)
		if err != nil {
			return "Subject", "", err
		}
		if len(names) == 0 {
			return "Subject", "", errors.New("no general names present")
		}
		// Each name overwrites the previous one; the last name wins.
		return "Subject", names[len(names)-1].String(), nil
	},
	OIDFulcioIssuer:                   utf8Field("OIDCIssuer"),
	OIDFulcioGitHubWorkflowTrigger:    utf8Field("GitHubWorkflowTrigger"),
	OIDFulcioGitHubWorkflowSHA:        utf8Field("GitHubWorkflowSHA"),
	OIDFulcioGitHubWorkflowName:       utf8Field("GitHubWorkflowName"),
	OIDFulcioGitHubWorkflowRepository: utf8Field("GitHubWorkflowRepository"),
	OIDFulcioGitHubWorkflowRef:        utf8Field("GitHubWorkflowRef"),
}

// FulcioExtractor turns the PEM carried by a log entry into a Record.
type FulcioExtractor struct{}

// ExtractInput is a convenience wrapper around Extract for a decoded entry.
func (e *FulcioExtractor) ExtractInput(in *entry.Input) (*Record, error) {
	return e.Extract(in.LogIndex, in.Hash(), in.Certificate)
}

// Extract parses certPEM and returns the record for it. It returns ErrSkip
// when the PEM block is not a CERTIFICATE and a *CertificateParseError when
// the PEM or certificate cannot be parsed.
func (e *FulcioExtractor) Extract(logIndex uint64, hash string, certPEM []byte) (*Record, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, &CertificateParseError{LogIndex: logIndex, Stage: "PEM", Err: errors.New("no PEM block found")}
	}
	if block.Type != "CERTIFICATE" {
		return nil, ErrSkip
	}

	exts, err := extensionsOf(block.Bytes)
	if err != nil {
		return nil, &CertificateParseError{LogIndex: logIndex, Stage: "certificate", Err: err}
	}

	rec := &Record{LogIndex: logIndex, Hash: hash}
	for _, ext := range exts {
		fn, ok := extensionFuncs[ext.OID]
		if !ok {
			continue
		}
		name, val, err := fn(ext.Value)
		if err != nil {
			continue
		}
		if slot := rec.field(name); slot != nil {
			v := val
			*slot = &v
		}
	}
	return rec, nil
}

// extensionsOf returns the extensions of a DER certificate. When the parser
// rejects the certificate, the extensions are read structurally instead and
// the parser's error is reported only if that walk fails too.
func extensionsOf(der []byte) ([]rawExtension, error) {
	cert, err := x509.ParseCertificate(der)
	if !x509.IsFatal(err) {
		exts := make([]rawExtension, 0, len(cert.Extensions))
		for _, ext := range cert.Extensions {
			exts = append(exts, rawExtension{OID: ext.Id.String(), Value: ext.Value})
		}
		return exts, nil
	}
	exts, walkErr := certificateExtensions(der)
	if walkErr != nil {
		return nil, err
	}
	return exts, nil
}
