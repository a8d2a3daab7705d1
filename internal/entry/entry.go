// Package entry decodes Rekor log entry envelopes into the fields needed to
// extract certificate metadata.
package entry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MalformedEntryError reports an envelope or body that could not be decoded.
// The pipeline logs it and moves on to the next entry.
type MalformedEntryError struct {
	UUID   string
	Reason string
	Err    error
}

func (e *MalformedEntryError) Error() string {
	msg := e.Reason
	if e.UUID != "" {
		msg = fmt.Sprintf("entry %s: %s", e.UUID, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed entry: %s: %v", msg, e.Err)
	}
	return "malformed entry: " + msg
}

func (e *MalformedEntryError) Unwrap() error { return e.Err }

// IsMalformed reports whether err is, or wraps, a *MalformedEntryError.
func IsMalformed(err error) bool {
	var me *MalformedEntryError
	return errors.As(err, &me)
}

// Input is what the extractor needs from one entry.
type Input struct {
	UUID           string
	LogIndex       uint64
	IntegratedTime int64
	Kind           string
	HashAlgorithm  string
	HashValue      string
	// Certificate holds the decoded publicKey content, normally PEM text.
	Certificate []byte
}

// Hash formats the artifact hash as "<algorithm>:<value>".
func (in *Input) Hash() string {
	return in.HashAlgorithm + ":" + in.HashValue
}

// Body is the typed view of the decoded entry body. Pointer fields are nil
// when the corresponding key is absent. APIVersion and Kind are
// informational and kept raw so an odd type never rejects the entry.
type Body struct {
	APIVersion json.RawMessage `json:"apiVersion"`
	Kind       json.RawMessage `json:"kind"`
	Spec       BodySpec        `json:"spec"`
}

type BodySpec struct {
	Data struct {
		Hash struct {
			Algorithm *string `json:"algorithm"`
			Value     *string `json:"value"`
		} `json:"hash"`
	} `json:"data"`
	Signature struct {
		PublicKey struct {
			Content *string `json:"content"`
		} `json:"publicKey"`
	} `json:"signature"`
}

type entryFields struct {
	LogIndex       json.RawMessage `json:"logIndex"`
	Body           json.RawMessage `json:"body"`
	IntegratedTime *int64          `json:"integratedTime"`
}

// Decode unwraps a single-key envelope {"<uuid>": {"logIndex": n, "body": b64}}.
func Decode(envelope []byte) (*Input, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(envelope, &outer); err != nil || len(outer) != 1 {
		return nil, &MalformedEntryError{Reason: "not a single-key object", Err: err}
	}
	var (
		uuid string
		raw  json.RawMessage
	)
	for k, v := range outer {
		uuid, raw = k, v
	}
	malformed := func(reason string, err error) error {
		return &MalformedEntryError{UUID: uuid, Reason: reason, Err: err}
	}

	var fields entryFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, malformed("entry is not an object", err)
	}
	in := &Input{UUID: uuid}
	if fields.IntegratedTime != nil {
		in.IntegratedTime = *fields.IntegratedTime
	}

	if isNull(fields.LogIndex) {
		return nil, malformed("missing log index", nil)
	}
	if err := json.Unmarshal(fields.LogIndex, &in.LogIndex); err != nil {
		return nil, malformed("bad log index", err)
	}

	var encoded string
	if isNull(fields.Body) {
		return nil, malformed("missing body", nil)
	}
	if err := json.Unmarshal(fields.Body, &encoded); err != nil {
		return nil, malformed("body is not a string", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, malformed("body is not valid base64", err)
	}
	var body Body
	if err := json.Unmarshal(decoded, &body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, malformed("unexpected type at /"+strings.ReplaceAll(typeErr.Field, ".", "/"), err)
		}
		return nil, malformed("body is not valid JSON", err)
	}
	_ = json.Unmarshal(body.Kind, &in.Kind)

	hash := body.Spec.Data.Hash
	if hash.Algorithm == nil {
		return nil, malformed("missing /spec/data/hash/algorithm", nil)
	}
	if hash.Value == nil {
		return nil, malformed("missing /spec/data/hash/value", nil)
	}
	in.HashAlgorithm, in.HashValue = *hash.Algorithm, *hash.Value

	content := body.Spec.Signature.PublicKey.Content
	if content == nil {
		return nil, malformed("missing /spec/signature/publicKey/content", nil)
	}
	in.Certificate, err = base64.StdEncoding.DecodeString(*content)
	if err != nil {
		return nil, malformed("publicKey content is not valid base64", err)
	}
	return in, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
