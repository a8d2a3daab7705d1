package etl

import (
	"context"
	"sync"

	"github.com/chtzvt/rekorslurp/internal/rekor"
)

// StubPipeline is a test Processor that records every batch it is handed.
type StubPipeline struct {
	mu      sync.Mutex
	Names   []string
	Batches [][]rekor.Envelope
	// Err, when set, is returned from ProcessBatch.
	Err error
}

func NewStubPipeline() *StubPipeline {
	return &StubPipeline{}
}

func (s *StubPipeline) BatchName(r rekor.IndexRange) string {
	return "stub-" + r.String()
}

func (s *StubPipeline) ProcessBatch(ctx context.Context, name string, envelopes []rekor.Envelope) (BatchStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return BatchStats{}, s.Err
	}
	s.Names = append(s.Names, name)
	s.Batches = append(s.Batches, envelopes)
	return BatchStats{Entries: len(envelopes), Emitted: len(envelopes)}, nil
}

// Entries returns every envelope seen so far, in order.
func (s *StubPipeline) Entries() []rekor.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []rekor.Envelope
	for _, b := range s.Batches {
		out = append(out, b...)
	}
	return out
}
