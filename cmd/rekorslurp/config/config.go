package config

import (
	"fmt"
	"time"

	"github.com/chtzvt/rekorslurp/internal/api"
	"github.com/chtzvt/rekorslurp/internal/checkpoint"
	"github.com/chtzvt/rekorslurp/internal/etl"
	"github.com/chtzvt/rekorslurp/internal/rekor"
	"github.com/chtzvt/rekorslurp/internal/sink"
	"github.com/chtzvt/rekorslurp/internal/transformer"
)

type RetryConfig struct {
	MaxRetries        int `mapstructure:"max_retries"`
	InitialIntervalMs int `mapstructure:"initial_interval_ms"`
	MaxIntervalMs     int `mapstructure:"max_interval_ms"`
}

type OutputConfig struct {
	Transformer        string                 `mapstructure:"transformer"`
	TransformerOptions map[string]interface{} `mapstructure:"transformer_options"`
	Sink               string                 `mapstructure:"sink"`
	SinkOptions        map[string]interface{} `mapstructure:"sink_options"`
	ChunkRecords       int                    `mapstructure:"chunk_records"`
	ChunkBytes         int                    `mapstructure:"chunk_bytes"`
}

type EtcdConfig struct {
	Endpoints   []string `mapstructure:"endpoints"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	Prefix      string   `mapstructure:"prefix"`
	DialTimeout int      `mapstructure:"dial_timeout"`
}

type CheckpointConfig struct {
	Store string     `mapstructure:"store"`
	Path  string     `mapstructure:"path"`
	Etcd  EtcdConfig `mapstructure:"etcd"`
}

type Config struct {
	Interval    int              `mapstructure:"interval"`
	LogURL      string           `mapstructure:"log_url"`
	UserAgent   string           `mapstructure:"user_agent"`
	HTTPTimeout int              `mapstructure:"http_timeout"`
	BatchSize   int              `mapstructure:"batch_size"`
	Retry       RetryConfig      `mapstructure:"retry"`
	Output      OutputConfig     `mapstructure:"output"`
	Checkpoint  CheckpointConfig `mapstructure:"checkpoint"`
	Status      api.Config       `mapstructure:"status"`
}

func (c *Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("interval must be >= 0, got %d", c.Interval)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if !contains(transformer.Registered(), c.Output.Transformer) {
		return fmt.Errorf("unknown output.transformer %q (have %v)", c.Output.Transformer, transformer.Registered())
	}
	if !contains(sink.Registered(), c.Output.Sink) {
		return fmt.Errorf("unknown output.sink %q (have %v)", c.Output.Sink, sink.Registered())
	}
	if !contains(checkpoint.Supported, c.Checkpoint.Store) {
		return fmt.Errorf("unknown checkpoint.store %q (have %v)", c.Checkpoint.Store, checkpoint.Supported)
	}
	return nil
}

func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) RekorConfig() rekor.Config {
	return rekor.Config{
		LogURL:    c.LogURL,
		UserAgent: c.UserAgent,
		Timeout:   time.Duration(c.HTTPTimeout) * time.Second,
		Retry: rekor.RetryPolicy{
			MaxRetries:      c.Retry.MaxRetries,
			InitialInterval: time.Duration(c.Retry.InitialIntervalMs) * time.Millisecond,
			MaxInterval:     time.Duration(c.Retry.MaxIntervalMs) * time.Millisecond,
		},
	}
}

func (c *Config) PipelineOptions() etl.Options {
	return etl.Options{
		Transformer:        c.Output.Transformer,
		TransformerOptions: c.Output.TransformerOptions,
		Sink:               c.Output.Sink,
		SinkOptions:        c.Output.SinkOptions,
		ChunkRecords:       c.Output.ChunkRecords,
		ChunkBytes:         c.Output.ChunkBytes,
	}
}

func (c *Config) CheckpointConfig() checkpoint.Config {
	return checkpoint.Config{
		Store:  c.Checkpoint.Store,
		Path:   c.Checkpoint.Path,
		LogURL: c.LogURL,
		Etcd: checkpoint.EtcdConfig{
			Endpoints:   c.Checkpoint.Etcd.Endpoints,
			Username:    c.Checkpoint.Etcd.Username,
			Password:    c.Checkpoint.Etcd.Password,
			Prefix:      c.Checkpoint.Etcd.Prefix,
			DialTimeout: time.Duration(c.Checkpoint.Etcd.DialTimeout) * time.Second,
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
