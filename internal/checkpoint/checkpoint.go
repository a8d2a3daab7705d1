// Package checkpoint persists the poller's cursor: the log size up to which
// every entry has been processed.
package checkpoint

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Store loads and saves the cursor. Load reports ok=false when nothing has
// been saved yet.
type Store interface {
	Load(ctx context.Context) (size uint64, ok bool, err error)
	Save(ctx context.Context, size uint64) error
	Close() error
}

type Config struct {
	Store string // memory (default), file, etcd
	Path  string // file store
	Etcd  EtcdConfig
	// LogURL scopes the etcd key so several logs can share a cluster.
	LogURL string
}

type EtcdConfig struct {
	Endpoints   []string
	Username    string // optional
	Password    string // optional
	DialTimeout time.Duration
	Prefix      string // default: "/rekorslurp"
}

// Supported lists the accepted store names.
var Supported = []string{"memory", "file", "etcd"}

func New(cfg Config) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path)
	case "etcd":
		return NewEtcdStore(cfg.Etcd, cfg.LogURL)
	default:
		return nil, fmt.Errorf("unknown checkpoint store: %s", cfg.Store)
	}
}

// Key returns the etcd key holding the cursor for logURL.
func Key(prefix, logURL string) string {
	if prefix == "" {
		prefix = "/rekorslurp"
	}
	host := logURL
	if u, err := url.Parse(logURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return strings.TrimSuffix(prefix, "/") + "/checkpoint/" + host
}
