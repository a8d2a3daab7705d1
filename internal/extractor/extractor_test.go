package extractor

import (
	"crypto/x509/pkix"
	encasn1 "encoding/asn1"
	"encoding/json"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/chtzvt/rekorslurp/internal/entry"
	"github.com/chtzvt/rekorslurp/internal/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
)

func TestExtract_OIDCIssuerOnly(t *testing.T) {
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{
		Extensions: []pkix.Extension{testutil.FulcioExtension(1, "https://issuer.example")},
	})
	ex := &FulcioExtractor{}

	rec, err := ex.Extract(7, "sha256:abcd", certPEM)
	require.NoError(t, err)
	require.Equal(t, uint64(7), rec.LogIndex)
	require.Equal(t, "sha256:abcd", rec.Hash)
	require.NotNil(t, rec.OIDCIssuer)
	require.Equal(t, "https://issuer.example", *rec.OIDCIssuer)
	require.Nil(t, rec.Subject)
	require.Nil(t, rec.GitHubWorkflowTrigger)
	require.Nil(t, rec.GitHubWorkflowSHA)
	require.Nil(t, rec.GitHubWorkflowName)
	require.Nil(t, rec.GitHubWorkflowRepository)
	require.Nil(t, rec.GitHubWorkflowRef)
}

func TestExtract_AllGitHubFields(t *testing.T) {
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{
		URIs: []string{"https://github.com/octo/repo/.github/workflows/release.yml@refs/heads/main"},
		Extensions: []pkix.Extension{
			testutil.FulcioExtension(1, "https://token.actions.githubusercontent.com"),
			testutil.FulcioExtension(2, "push"),
			testutil.FulcioExtension(3, "0123456789abcdef0123456789abcdef01234567"),
			testutil.FulcioExtension(4, "Release"),
			testutil.FulcioExtension(5, "octo/repo"),
			testutil.FulcioExtension(6, "refs/heads/main"),
			testutil.FulcioExtension(7, "ignored"),
		},
	})

	rec, err := (&FulcioExtractor{}).Extract(1, "sha256:00", certPEM)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"LogIndex":                 uint64(1),
		"Hash":                     "sha256:00",
		"Subject":                  "https://github.com/octo/repo/.github/workflows/release.yml@refs/heads/main",
		"OIDCIssuer":               "https://token.actions.githubusercontent.com",
		"GitHubWorkflowTrigger":    "push",
		"GitHubWorkflowSHA":        "0123456789abcdef0123456789abcdef01234567",
		"GitHubWorkflowName":       "Release",
		"GitHubWorkflowRepository": "octo/repo",
		"GitHubWorkflowRef":        "refs/heads/main",
	}, rec.Map())
}

func TestExtract_SubjectLastNameWins(t *testing.T) {
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{
		DNSNames: []string{"a.example", "b.example"},
	})

	rec, err := (&FulcioExtractor{}).Extract(0, "sha256:00", certPEM)
	require.NoError(t, err)
	require.NotNil(t, rec.Subject)
	require.Equal(t, "b.example", *rec.Subject)
}

func TestExtract_SubjectLastAcrossNameKinds(t *testing.T) {
	// Encoded order is DNS names, then emails, then URIs.
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{
		DNSNames:       []string{"a.example"},
		EmailAddresses: []string{"dev@example.com"},
	})

	rec, err := (&FulcioExtractor{}).Extract(0, "sha256:00", certPEM)
	require.NoError(t, err)
	require.Equal(t, "dev@example.com", *rec.Subject)
}

func TestExtract_InvalidUTF8LeavesFieldUnset(t *testing.T) {
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{
		Extensions: []pkix.Extension{
			{Id: testutil.FulcioOID(4), Value: []byte{0xff, 0xfe, 0xfd}},
			testutil.FulcioExtension(5, "octo/repo"),
		},
	})

	rec, err := (&FulcioExtractor{}).Extract(3, "sha256:00", certPEM)
	require.NoError(t, err)
	require.Nil(t, rec.GitHubWorkflowName)
	require.Equal(t, "octo/repo", *rec.GitHubWorkflowRepository)
}

func TestExtract_NoRecognizedExtensions(t *testing.T) {
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{CommonName: "plain"})

	rec, err := (&FulcioExtractor{}).Extract(0, "sha256:deadbeef", certPEM)
	require.NoError(t, err)
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Equal(t, `{"LogIndex":0,"Hash":"sha256:deadbeef"}`, string(out))
}

func TestExtract_PublicKeyIsSkipped(t *testing.T) {
	rec, err := (&FulcioExtractor{}).Extract(0, "sha256:00", testutil.PublicKeyPEM(t))
	require.ErrorIs(t, err, ErrSkip)
	require.Nil(t, rec)
}

func TestExtract_NotPEM(t *testing.T) {
	_, err := (&FulcioExtractor{}).Extract(9, "sha256:00", []byte("definitely not pem"))
	var perr *CertificateParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "PEM", perr.Stage)
	require.Equal(t, uint64(9), perr.LogIndex)
}

func TestExtract_BadDER(t *testing.T) {
	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30, 0x03, 0x02, 0x01}})
	_, err := (&FulcioExtractor{}).Extract(9, "sha256:00", bad)
	var perr *CertificateParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "certificate", perr.Stage)
}

func TestExtract_UnparseableURIKeepsRecord(t *testing.T) {
	san := buildSAN(t, func(b *cryptobyte.Builder) {
		addString(b, NameDNS, "a.example")
		addString(b, NameURI, "http://bad host/%zz")
	})
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{
		Extensions: []pkix.Extension{
			{Id: encasn1.ObjectIdentifier{2, 5, 29, 17}, Value: san},
			testutil.FulcioExtension(1, "https://issuer.example"),
		},
	})

	rec, err := (&FulcioExtractor{}).Extract(1, "sha256:00", certPEM)
	require.NoError(t, err)
	require.NotNil(t, rec.Subject)
	require.Equal(t, "http://bad host/%zz", *rec.Subject)
	require.NotNil(t, rec.OIDCIssuer)
	require.Equal(t, "https://issuer.example", *rec.OIDCIssuer)
}

func TestCertificateExtensions_MatchesParser(t *testing.T) {
	der := testutil.MintCertificateDER(t, testutil.CertOptions{
		DNSNames:   []string{"x.example"},
		Extensions: []pkix.Extension{testutil.FulcioExtension(5, "octo/repo")},
	})

	parsed, err := extensionsOf(der)
	require.NoError(t, err)
	walked, err := certificateExtensions(der)
	require.NoError(t, err)
	require.Equal(t, parsed, walked)
	require.Contains(t, walked, rawExtension{OID: OIDFulcioGitHubWorkflowRepository, Value: []byte("octo/repo")})
}

func TestExtractInput(t *testing.T) {
	certPEM := testutil.MintCertificatePEM(t, testutil.CertOptions{DNSNames: []string{"x.example"}})
	in, err := entry.Decode(testutil.Envelope(t, testutil.EntryOptions{
		LogIndex:  12,
		Algorithm: "sha256",
		Value:     "abcd",
		Content:   certPEM,
	}))
	require.NoError(t, err)

	rec, err := (&FulcioExtractor{}).ExtractInput(in)
	require.NoError(t, err)
	require.Equal(t, uint64(12), rec.LogIndex)
	require.Equal(t, "sha256:abcd", rec.Hash)
	require.Equal(t, "x.example", *rec.Subject)
}
