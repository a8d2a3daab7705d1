// Package poller follows the growth of a transparency log and hands every new
// range of entries to a pipeline.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/chtzvt/rekorslurp/internal/checkpoint"
	"github.com/chtzvt/rekorslurp/internal/etl"
	"github.com/chtzvt/rekorslurp/internal/rekor"
)

const DefaultBatchSize = 1000

// LogClient is the part of *rekor.Client the poller uses.
type LogClient interface {
	FetchTotalSize(ctx context.Context) (uint64, error)
	FetchEntries(ctx context.Context, r rekor.IndexRange) ([]rekor.Envelope, error)
}

type State int32

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Fetching:
		return "Fetching"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Poller runs fetch cycles against one log. It is driven by a single
// goroutine; only State and Metrics are safe to read concurrently.
type Poller struct {
	Client     LogClient
	Pipeline   etl.Processor
	Checkpoint checkpoint.Store
	Interval   time.Duration
	BatchSize  uint64
	Logger     *log.Logger
	Metrics    *Metrics

	state    int32  // atomic
	lastSize uint64 // atomic
	seeded   bool
}

// New constructs a poller with an in-memory checkpoint and default batch size.
func New(client LogClient, pipeline etl.Processor, interval time.Duration, logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Poller{
		Client:     client,
		Pipeline:   pipeline,
		Checkpoint: checkpoint.NewMemoryStore(),
		Interval:   interval,
		BatchSize:  DefaultBatchSize,
		Logger:     logger,
		Metrics:    &Metrics{},
	}
}

func (p *Poller) State() State {
	return State(atomic.LoadInt32(&p.state))
}

func (p *Poller) setState(s State) {
	atomic.StoreInt32(&p.state, int32(s))
}

// LastSize is the log size up to which entries have been handled.
func (p *Poller) LastSize() uint64 { return atomic.LoadUint64(&p.lastSize) }

func (p *Poller) setLastSize(n uint64) { atomic.StoreUint64(&p.lastSize, n) }

// Status is a point-in-time view of the poller for reporting.
type Status struct {
	State    string          `json:"state"`
	LastSize uint64          `json:"last_size"`
	Metrics  MetricsSnapshot `json:"metrics"`
}

func (p *Poller) Status() Status {
	return Status{
		State:    p.State().String(),
		LastSize: p.LastSize(),
		Metrics:  p.Metrics.Snapshot(),
	}
}

// Run seeds the cursor and runs cycles until ctx is cancelled or a cycle
// fails. Cancellation returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.Logger.Println("[ ] Start")
	if err := p.Seed(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	for {
		if err := p.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !sleepCtx(ctx, p.Interval) {
			return nil
		}
	}
}

// Seed initializes the cursor from the checkpoint store or, when it holds
// nothing, from one below the current log size so that the first cycle
// re-observes the latest entry.
func (p *Poller) Seed(ctx context.Context) error {
	if p.seeded {
		return nil
	}
	if p.Checkpoint != nil {
		size, ok, err := p.Checkpoint.Load(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			p.Logger.Printf("[ ] Resuming at %d", size)
			p.setLastSize(size)
			p.seeded = true
			return nil
		}
	}
	size, err := p.Client.FetchTotalSize(ctx)
	if err != nil {
		return err
	}
	if size > 0 {
		size--
	}
	p.setLastSize(size)
	p.seeded = true
	return nil
}

// Cycle runs one poll cycle without the trailing sleep.
func (p *Poller) Cycle(ctx context.Context) error {
	if err := p.Seed(ctx); err != nil {
		return err
	}
	start := time.Now()
	p.Metrics.IncCycles()
	defer func() { p.Metrics.SetLastCycleTime(time.Since(start)) }()

	newSize, err := p.Client.FetchTotalSize(ctx)
	if err != nil {
		return err
	}
	lastSize := p.LastSize()
	if newSize == lastSize {
		p.Metrics.IncEmptyCycles()
		return nil
	}
	if newSize < lastSize {
		p.Logger.Printf("[!] Log size went backwards: %d -> %d, waiting", lastSize, newSize)
		p.Metrics.IncEmptyCycles()
		return nil
	}

	r, err := rekor.NewIndexRange(lastSize, newSize)
	if err != nil {
		return err
	}
	p.Logger.Printf("[ ] Getting: %s", r)

	p.setState(Fetching)
	defer p.setState(Idle)

	batchSize := p.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	for _, batch := range r.Split(batchSize) {
		if err := p.processBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *Poller) processBatch(ctx context.Context, batch rekor.IndexRange) error {
	envelopes, err := p.Client.FetchEntries(ctx, batch)
	if err != nil {
		return err
	}
	p.Metrics.AddFetched(len(envelopes))

	stats, err := p.Pipeline.ProcessBatch(ctx, p.Pipeline.BatchName(batch), envelopes)
	p.Metrics.AddBatch(stats)
	if err != nil {
		var ee *etl.EmitError
		if errors.As(err, &ee) {
			return err
		}
		return fmt.Errorf("process %s: %w", batch, err)
	}

	p.setLastSize(batch.End)
	if p.Checkpoint != nil {
		if err := p.Checkpoint.Save(ctx, batch.End); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	return nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
