// Package etl turns batches of log entry envelopes into records written to a
// sink.
package etl

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chtzvt/rekorslurp/internal/entry"
	"github.com/chtzvt/rekorslurp/internal/extractor"
	"github.com/chtzvt/rekorslurp/internal/rekor"
	"github.com/chtzvt/rekorslurp/internal/sink"
	"github.com/chtzvt/rekorslurp/internal/transformer"
	"github.com/google/uuid"
)

// Options selects the output stack of a pipeline.
type Options struct {
	Transformer        string
	TransformerOptions map[string]interface{}
	Sink               string
	SinkOptions        map[string]interface{}
	ChunkRecords       int // 0 means unlimited
	ChunkBytes         int // 0 means unlimited
}

// Extractor maps a decoded entry to a record.
type Extractor interface {
	ExtractInput(in *entry.Input) (*extractor.Record, error)
}

// Processor is what the poller drives for every fetched batch.
type Processor interface {
	BatchName(r rekor.IndexRange) string
	ProcessBatch(ctx context.Context, name string, envelopes []rekor.Envelope) (BatchStats, error)
}

// BatchStats counts what happened to the entries of one batch.
type BatchStats struct {
	Entries int
	Emitted int
	Skipped int
	Failed  int
}

func (s BatchStats) String() string {
	return fmt.Sprintf("entries=%d emitted=%d skipped=%d failed=%d", s.Entries, s.Emitted, s.Skipped, s.Failed)
}

// Pipeline orchestrates decode, extract, transform and write for a batch,
// with chunking support.
type Pipeline struct {
	Extractor     Extractor
	Transformer   transformer.Transformer
	Sink          sink.Sink
	Logger        *log.Logger
	RunID         string
	MaxChunkBytes int
	MaxChunkRecs  int
}

func NewPipeline(opts Options, logger *log.Logger) (*Pipeline, error) {
	trName := opts.Transformer
	if trName == "" {
		trName = "jsonl"
	}
	tr, err := transformer.ForName(trName, opts.TransformerOptions)
	if err != nil {
		return nil, fmt.Errorf("transformer: %w", err)
	}
	sinkName := opts.Sink
	if sinkName == "" {
		sinkName = "stdout"
	}
	sinkFactory, ok := sink.ForName(sinkName)
	if !ok {
		return nil, fmt.Errorf("sink: not found: %s", sinkName)
	}
	sinkOpts := opts.SinkOptions
	if sinkOpts == nil {
		sinkOpts = map[string]interface{}{}
	}
	sinkInst, err := sinkFactory(sinkOpts)
	if err != nil {
		return nil, fmt.Errorf("sink init: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Pipeline{
		Extractor:     &extractor.FulcioExtractor{},
		Transformer:   tr,
		Sink:          sinkInst,
		Logger:        logger,
		RunID:         uuid.NewString(),
		MaxChunkBytes: opts.ChunkBytes,
		MaxChunkRecs:  opts.ChunkRecords,
	}, nil
}

// BatchName names the sink object for r: <runID>-<first>-<last>.
func (p *Pipeline) BatchName(r rekor.IndexRange) string {
	return fmt.Sprintf("%s-%d-%d", p.RunID, r.Start, r.Last())
}

// ProcessBatch runs every envelope through the pipeline in order.
func (p *Pipeline) ProcessBatch(ctx context.Context, name string, envelopes []rekor.Envelope) (BatchStats, error) {
	entries := make(chan rekor.Envelope, len(envelopes))
	for _, env := range envelopes {
		entries <- env
	}
	close(entries)
	return p.StreamProcess(ctx, name, entries)
}
