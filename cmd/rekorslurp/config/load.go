package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chtzvt/rekorslurp/internal/rekor"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", 3)
	v.SetDefault("log_url", rekor.DefaultLogURL)
	v.SetDefault("user_agent", rekor.DefaultUserAgent)
	v.SetDefault("http_timeout", 60)
	v.SetDefault("batch_size", 1000)
	v.SetDefault("retry.max_retries", rekor.DefaultMaxRetries)
	v.SetDefault("retry.initial_interval_ms", rekor.DefaultInitialInterval.Milliseconds())
	v.SetDefault("retry.max_interval_ms", rekor.DefaultMaxInterval.Milliseconds())
	v.SetDefault("output.transformer", "jsonl")
	v.SetDefault("output.sink", "stdout")
	v.SetDefault("output.chunk_records", 0)
	v.SetDefault("output.chunk_bytes", 0)
	v.SetDefault("checkpoint.store", "memory")
	v.SetDefault("checkpoint.path", "")
	v.SetDefault("checkpoint.etcd.endpoints", []string{})
	v.SetDefault("checkpoint.etcd.username", "")
	v.SetDefault("checkpoint.etcd.password", "")
	v.SetDefault("checkpoint.etcd.prefix", "/rekorslurp")
	v.SetDefault("checkpoint.etcd.dial_timeout", 5)
	v.SetDefault("status.listen_addr", "")
	v.SetDefault("status.auth_tokens", []string{})
}

// LoadConfig reads cfgFile, or rekorslurp.yaml from the working directory or
// /etc/rekorslurp/ when cfgFile is empty. A missing default config file is
// not an error. flags may carry an "interval" flag that overrides everything
// else when set.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("rekorslurp")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rekorslurp/")
	}

	v.SetEnvPrefix("REKORSLURP") // env vars like REKORSLURP_OUTPUT__SINK
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	if flags != nil {
		if f := flags.Lookup("interval"); f != nil {
			if err := v.BindPFlag("interval", f); err != nil {
				return nil, fmt.Errorf("bind flag: %w", err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
