// Package rekor talks to a Rekor-style transparency log over its JSON API:
// it reports how many entries the log has committed and retrieves batches of
// raw entry envelopes by index.
package rekor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/certificate-transparency-go/jsonclient"
)

const (
	DefaultLogURL    = "https://rekor.sigstore.dev"
	DefaultUserAgent = "rekorslurp/1.0"

	LogInfoPath         = "/api/v1/log"
	RetrieveEntriesPath = "/api/v1/log/entries/retrieve"
)

// Config holds the settings for a Client.
type Config struct {
	LogURL    string
	UserAgent string
	Timeout   time.Duration
	Retry     RetryPolicy
	Logger    *log.Logger
}

// Client is a Rekor API client.
type Client struct {
	json   *jsonclient.JSONClient
	base   string
	retry  RetryPolicy
	logger *log.Logger
}

// Envelope is one element of a retrieve response, kept raw so that each entry
// can fail to decode on its own.
type Envelope = json.RawMessage

type logInfo struct {
	TreeSize       *uint64     `json:"treeSize"`
	InactiveShards []shardInfo `json:"inactiveShards"`
}

type shardInfo struct {
	TreeSize *uint64 `json:"treeSize"`
}

type retrieveRequest struct {
	LogIndexes []uint64 `json:"logIndexes"`
}

// New builds a Client for the log at cfg.LogURL.
func New(cfg Config) (*Client, error) {
	base := cfg.LogURL
	if base == "" {
		base = DefaultLogURL
	}
	base = strings.TrimRight(base, "/")
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	jc, err := jsonclient.New(base, newHTTPClient(timeout), jsonclient.Options{
		UserAgent: ua,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create log client: %w", err)
	}
	return &Client{
		json:   jc,
		base:   base,
		retry:  cfg.Retry,
		logger: logger,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			MaxIdleConnsPerHost:   10,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// FetchTotalSize returns the number of entries committed to the log: the
// active tree size plus the tree size of every inactive shard.
func (c *Client) FetchTotalSize(ctx context.Context) (uint64, error) {
	var size uint64
	err := Retry(ctx, c.retry, c.notify("fetch log size"), func() error {
		var err error
		size, err = c.fetchTotalSize(ctx)
		return err
	})
	return size, err
}

func (c *Client) fetchTotalSize(ctx context.Context) (uint64, error) {
	const op = "fetch log size"
	var info logInfo
	if _, _, err := c.json.GetAndParse(ctx, LogInfoPath, nil, &info); err != nil {
		return 0, classify(op, c.base+LogInfoPath, err)
	}
	if info.TreeSize == nil {
		return 0, &SchemaError{Op: op, Err: errors.New("response missing treeSize")}
	}
	size := *info.TreeSize
	for i, shard := range info.InactiveShards {
		if shard.TreeSize == nil {
			return 0, &SchemaError{Op: op, Err: fmt.Errorf("inactive shard %d missing treeSize", i)}
		}
		size += *shard.TreeSize
	}
	return size, nil
}

// FetchEntries retrieves the envelopes for every index in r with a single
// request. Envelopes are returned in response order. An empty range performs
// no request.
func (c *Client) FetchEntries(ctx context.Context, r IndexRange) ([]Envelope, error) {
	if r.Empty() {
		return nil, nil
	}
	var entries []Envelope
	err := Retry(ctx, c.retry, c.notify("fetch entries "+r.String()), func() error {
		var err error
		entries, err = c.fetchEntries(ctx, r)
		return err
	})
	return entries, err
}

func (c *Client) fetchEntries(ctx context.Context, r IndexRange) ([]Envelope, error) {
	const op = "fetch entries"
	url := c.base + RetrieveEntriesPath
	var raw []json.RawMessage
	rsp, body, err := c.json.PostAndParse(ctx, RetrieveEntriesPath, retrieveRequest{LogIndexes: r.Indexes()}, &raw)
	if err != nil {
		return nil, classify(op, url, err)
	}
	if rsp.StatusCode != http.StatusOK {
		return nil, &NetworkError{
			Op:         op,
			URL:        url,
			StatusCode: rsp.StatusCode,
			Err:        fmt.Errorf("got HTTP Status %q: %s", rsp.Status, bytes.TrimSpace(body)),
		}
	}
	if raw == nil {
		return nil, &SchemaError{Op: op, Err: errors.New("entries response wasn't an array")}
	}
	for i, e := range raw {
		if t := bytes.TrimSpace(e); len(t) == 0 || t[0] != '{' {
			return nil, &SchemaError{Op: op, Err: fmt.Errorf("entry %d is not an object", i)}
		}
	}
	return raw, nil
}

func (c *Client) notify(op string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		c.logger.Printf("%s failed, retrying in %s: %v", op, wait.Round(time.Millisecond), err)
	}
}
