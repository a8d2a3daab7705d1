package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// CertOptions describes a throwaway leaf certificate.
type CertOptions struct {
	CommonName     string
	DNSNames       []string
	EmailAddresses []string
	URIs           []string
	Extensions     []pkix.Extension
}

// FulcioOID returns 1.3.6.1.4.1.57264.1.<n>.
func FulcioOID(n int) asn1.ObjectIdentifier {
	return asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 57264, 1, n}
}

// FulcioExtension builds a legacy Fulcio extension whose value is the raw
// string bytes.
func FulcioExtension(n int, value string) pkix.Extension {
	return pkix.Extension{Id: FulcioOID(n), Value: []byte(value)}
}

// MintCertificateDER returns a self-signed DER certificate built from opts.
func MintCertificateDER(t *testing.T, opts CertOptions) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:    big.NewInt(time.Now().UnixNano()),
		Subject:         pkix.Name{CommonName: opts.CommonName},
		NotBefore:       time.Now().Add(-time.Minute),
		NotAfter:        time.Now().Add(10 * time.Minute),
		KeyUsage:        x509.KeyUsageDigitalSignature,
		ExtKeyUsage:     []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		DNSNames:        opts.DNSNames,
		EmailAddresses:  opts.EmailAddresses,
		ExtraExtensions: opts.Extensions,
	}
	for _, raw := range opts.URIs {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		tmpl.URIs = append(tmpl.URIs, u)
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

// MintCertificatePEM returns the PEM encoding of MintCertificateDER.
func MintCertificatePEM(t *testing.T, opts CertOptions) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: MintCertificateDER(t, opts)})
}

// PublicKeyPEM returns a bare "PUBLIC KEY" PEM block.
func PublicKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}
