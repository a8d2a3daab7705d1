package checkpoint

import (
	"context"
	"fmt"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdStore keeps the cursor under <prefix>/checkpoint/<log host>.
type EtcdStore struct {
	client *clientv3.Client
	key    string
}

func NewEtcdStore(cfg EtcdConfig, logURL string) (*EtcdStore, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd checkpoint store requires at least one endpoint")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdStore{
		client: cli,
		key:    Key(cfg.Prefix, logURL),
	}, nil
}

func (e *EtcdStore) Key() string { return e.key }

func (e *EtcdStore) Load(ctx context.Context) (uint64, bool, error) {
	resp, err := e.client.Get(ctx, e.key)
	if err != nil {
		return 0, false, err
	}
	if len(resp.Kvs) == 0 {
		return 0, false, nil
	}
	size, err := strconv.ParseUint(string(resp.Kvs[0].Value), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint %s: %w", e.key, err)
	}
	return size, true, nil
}

// Save writes the cursor and the time it was written.
func (e *EtcdStore) Save(ctx context.Context, size uint64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := e.client.Txn(ctx).Then(
		clientv3.OpPut(e.key, strconv.FormatUint(size, 10)),
		clientv3.OpPut(e.key+"/updated", now),
	).Commit()
	return err
}

func (e *EtcdStore) Close() error {
	return e.client.Close()
}
