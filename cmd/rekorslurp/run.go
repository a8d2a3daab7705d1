package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chtzvt/rekorslurp/cmd/rekorslurp/config"
	"github.com/chtzvt/rekorslurp/internal/api"
	"github.com/chtzvt/rekorslurp/internal/checkpoint"
	"github.com/chtzvt/rekorslurp/internal/etl"
	"github.com/chtzvt/rekorslurp/internal/poller"
	"github.com/chtzvt/rekorslurp/internal/rekor"
)

// runPoller wires the configured components together and polls until ctx is
// cancelled or a fatal error occurs.
func runPoller(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	rc := cfg.RekorConfig()
	rc.Logger = logger
	client, err := rekor.New(rc)
	if err != nil {
		return err
	}

	pipeline, err := etl.NewPipeline(cfg.PipelineOptions(), logger)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	store, err := checkpoint.New(cfg.CheckpointConfig())
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer store.Close()

	p := poller.New(client, pipeline, cfg.IntervalDuration(), logger)
	p.Checkpoint = store
	p.BatchSize = uint64(cfg.BatchSize)

	if cfg.Status.ListenAddr != "" {
		srv := api.NewServer(p, cfg.Status, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Printf("[!] Status API: %v", err)
			}
		}()
	}

	err = p.Run(ctx)
	m := p.Metrics.Snapshot()
	logger.Printf("[ ] Stopped at %d: %d cycles, %d entries, %d records, %d skipped, %d failed",
		p.LastSize(), m.Cycles, m.EntriesFetched, m.RecordsEmitted, m.EntriesSkipped, m.EntriesFailed)
	return err
}
