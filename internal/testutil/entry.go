package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// EntryOptions describes a hashedrekord log entry.
type EntryOptions struct {
	UUID      string
	LogIndex  uint64
	Algorithm string
	Value     string
	// Content is the PEM text placed, base64 encoded, at
	// spec.signature.publicKey.content.
	Content []byte
}

// HashedRekordBody returns the JSON body of a hashedrekord entry.
func HashedRekordBody(t *testing.T, algorithm, value string, content []byte) []byte {
	t.Helper()
	body := map[string]interface{}{
		"apiVersion": "0.0.1",
		"kind":       "hashedrekord",
		"spec": map[string]interface{}{
			"data": map[string]interface{}{
				"hash": map[string]interface{}{
					"algorithm": algorithm,
					"value":     value,
				},
			},
			"signature": map[string]interface{}{
				"content": base64.StdEncoding.EncodeToString([]byte("sig")),
				"publicKey": map[string]interface{}{
					"content": base64.StdEncoding.EncodeToString(content),
				},
			},
		},
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return b
}

// Envelope builds a retrieve-response element for opts.
func Envelope(t *testing.T, opts EntryOptions) json.RawMessage {
	t.Helper()
	body := HashedRekordBody(t, opts.Algorithm, opts.Value, opts.Content)
	return RawEnvelope(t, opts.UUID, opts.LogIndex, base64.StdEncoding.EncodeToString(body))
}

// RawEnvelope builds an envelope around an already encoded body string.
func RawEnvelope(t *testing.T, uuid string, logIndex uint64, body string) json.RawMessage {
	t.Helper()
	if uuid == "" {
		uuid = fmt.Sprintf("24296fb24b8ad77a%048x", logIndex)
	}
	env := map[string]interface{}{
		uuid: map[string]interface{}{
			"body":           body,
			"integratedTime": 1700000000,
			"logID":          "c0d23d6ad406973f9559f3ba2d1ca01f84147d8ffc5b8445c224f98b9591801d",
			"logIndex":       logIndex,
		},
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return b
}
