package poller

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/chtzvt/rekorslurp/internal/checkpoint"
	"github.com/chtzvt/rekorslurp/internal/etl"
	"github.com/chtzvt/rekorslurp/internal/extractor"
	"github.com/chtzvt/rekorslurp/internal/rekor"
	"github.com/chtzvt/rekorslurp/internal/sink"
	"github.com/chtzvt/rekorslurp/internal/testutil"
	"github.com/chtzvt/rekorslurp/internal/transformer"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, url string) *rekor.Client {
	t.Helper()
	c, err := rekor.New(rekor.Config{
		LogURL:  url,
		Timeout: 5 * time.Second,
		Retry:   rekor.RetryPolicy{MaxRetries: 0},
		Logger:  testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	return c
}

// newTestPoller returns a poller over a stub log whose cursor starts at start.
func newTestPoller(t *testing.T, srv *testutil.StubRekor, start uint64) (*Poller, *etl.StubPipeline, *testutil.LogBuffer) {
	t.Helper()
	logger, logs := testutil.NewTestLogger()
	stub := etl.NewStubPipeline()
	p := New(newClient(t, srv.URL), stub, 0, logger)
	require.NoError(t, p.Checkpoint.Save(context.Background(), start))
	return p, stub, logs
}

func addEntries(t *testing.T, srv *testutil.StubRekor, from, to uint64) {
	for i := from; i < to; i++ {
		srv.AddEntry(i, testutil.Envelope(t, testutil.EntryOptions{
			LogIndex:  i,
			Algorithm: "sha256",
			Value:     "00",
			Content:   []byte("x"),
		}))
	}
}

func TestSeedFromLogSize(t *testing.T) {
	srv := testutil.NewStubRekor(t, 1000, 50, 25)
	addEntries(t, srv, 1074, 1075)
	p := New(newClient(t, srv.URL), etl.NewStubPipeline(), 0, testutil.DiscardLogger())

	require.NoError(t, p.Seed(context.Background()))
	require.Equal(t, uint64(1074), p.LastSize())

	require.NoError(t, p.Cycle(context.Background()))
	require.Equal(t, [][]uint64{{1074}}, srv.RetrieveCalls())
	require.Equal(t, uint64(1075), p.LastSize())
}

func TestSeedEmptyLogSaturates(t *testing.T) {
	srv := testutil.NewStubRekor(t, 0)
	p := New(newClient(t, srv.URL), etl.NewStubPipeline(), 0, testutil.DiscardLogger())
	require.NoError(t, p.Seed(context.Background()))
	require.Equal(t, uint64(0), p.LastSize())

	require.NoError(t, p.Cycle(context.Background()))
	require.Empty(t, srv.RetrieveCalls())
}

func TestCycleRange(t *testing.T) {
	srv := testutil.NewStubRekor(t, 15)
	addEntries(t, srv, 10, 15)
	p, stub, logs := newTestPoller(t, srv, 10)

	require.NoError(t, p.Cycle(context.Background()))
	require.Equal(t, [][]uint64{{10, 11, 12, 13, 14}}, srv.RetrieveCalls())
	require.Len(t, stub.Entries(), 5)
	require.Contains(t, logs.String(), "[ ] Getting: 10 -> 14 (5)")

	size, ok, err := p.Checkpoint.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(15), size)
	require.Equal(t, Idle, p.State())
}

func TestCycleNoGrowth(t *testing.T) {
	srv := testutil.NewStubRekor(t, 15)
	p, _, logs := newTestPoller(t, srv, 15)

	require.NoError(t, p.Cycle(context.Background()))
	require.NoError(t, p.Cycle(context.Background()))
	require.Empty(t, srv.RetrieveCalls())
	require.NotContains(t, logs.String(), "Getting")

	m := p.Metrics.Snapshot()
	require.Equal(t, int64(2), m.Cycles)
	require.Equal(t, int64(2), m.EmptyCycles)
}

func TestCycleLogShrank(t *testing.T) {
	srv := testutil.NewStubRekor(t, 15)
	p, _, logs := newTestPoller(t, srv, 20)

	require.NoError(t, p.Cycle(context.Background()))
	require.Empty(t, srv.RetrieveCalls())
	require.Equal(t, uint64(20), p.LastSize())
	require.Contains(t, logs.String(), "went backwards")
}

func TestCycleSplitsIntoBatches(t *testing.T) {
	srv := testutil.NewStubRekor(t, 25)
	addEntries(t, srv, 0, 25)
	p, stub, _ := newTestPoller(t, srv, 0)
	p.BatchSize = 10

	require.NoError(t, p.Cycle(context.Background()))
	calls := srv.RetrieveCalls()
	require.Len(t, calls, 3)
	require.Equal(t, uint64(0), calls[0][0])
	require.Len(t, calls[0], 10)
	require.Equal(t, uint64(10), calls[1][0])
	require.Equal(t, []uint64{20, 21, 22, 23, 24}, calls[2])
	require.Equal(t, []string{"stub-0 -> 9 (10)", "stub-10 -> 19 (10)", "stub-20 -> 24 (5)"}, stub.Names)
	require.Len(t, stub.Entries(), 25)

	m := p.Metrics.Snapshot()
	require.Equal(t, int64(25), m.EntriesFetched)
	require.Equal(t, int64(25), m.RecordsEmitted)
}

// failingProcessor fails on the batch starting at failAt.
type failingProcessor struct {
	*etl.StubPipeline
	failAt string
}

func (f *failingProcessor) ProcessBatch(ctx context.Context, name string, envs []rekor.Envelope) (etl.BatchStats, error) {
	if name == f.failAt {
		return etl.BatchStats{}, &etl.EmitError{Op: "write", Name: name, Err: errors.New("disk full")}
	}
	return f.StubPipeline.ProcessBatch(ctx, name, envs)
}

func TestCycleEmitErrorKeepsCompletedBatches(t *testing.T) {
	srv := testutil.NewStubRekor(t, 20)
	addEntries(t, srv, 0, 20)
	p, _, _ := newTestPoller(t, srv, 0)
	p.BatchSize = 10
	p.Pipeline = &failingProcessor{StubPipeline: etl.NewStubPipeline(), failAt: "stub-10 -> 19 (10)"}

	err := p.Cycle(context.Background())
	require.Error(t, err)
	require.True(t, etl.IsEmitError(err))
	require.Equal(t, uint64(10), p.LastSize())

	size, _, err := p.Checkpoint.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(10), size)
}

func TestResumeFromFileCheckpoint(t *testing.T) {
	srv := testutil.NewStubRekor(t, 12)
	addEntries(t, srv, 0, 12)
	store, err := checkpoint.NewFileStore(t.TempDir() + "/cursor")
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), 9))

	p := New(newClient(t, srv.URL), etl.NewStubPipeline(), 0, testutil.DiscardLogger())
	p.Checkpoint = store
	require.NoError(t, p.Cycle(context.Background()))
	require.Equal(t, [][]uint64{{9, 10, 11}}, srv.RetrieveCalls())

	size, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(12), size)
}

// stateProcessor records the poller state seen while a batch is processed.
type stateProcessor struct {
	*etl.StubPipeline
	p    *Poller
	seen []State
}

func (s *stateProcessor) ProcessBatch(ctx context.Context, name string, envs []rekor.Envelope) (etl.BatchStats, error) {
	s.seen = append(s.seen, s.p.State())
	return s.StubPipeline.ProcessBatch(ctx, name, envs)
}

func TestStateDuringFetch(t *testing.T) {
	srv := testutil.NewStubRekor(t, 3)
	addEntries(t, srv, 0, 3)
	p, _, _ := newTestPoller(t, srv, 0)
	sp := &stateProcessor{StubPipeline: etl.NewStubPipeline(), p: p}
	p.Pipeline = sp

	require.Equal(t, Idle, p.State())
	require.NoError(t, p.Cycle(context.Background()))
	require.Equal(t, []State{Fetching}, sp.seen)
	require.Equal(t, Idle, p.State())
	require.Equal(t, "Fetching", Fetching.String())
}

func TestRunSleepsOnEveryCycle(t *testing.T) {
	srv := testutil.NewStubRekor(t, 5)
	p, _, logs := newTestPoller(t, srv, 5)
	p.Interval = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 220*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	// Without the sleep a no-growth loop would hammer the log.
	calls := srv.LogInfoCalls()
	require.GreaterOrEqual(t, calls, 2)
	require.LessOrEqual(t, calls, 6)
	require.Contains(t, logs.String(), "[ ] Start")
}

func TestRunReturnsFatalError(t *testing.T) {
	srv := testutil.NewStubRekor(t, 5)
	p, _, _ := newTestPoller(t, srv, 5)
	srv.LogInfoHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	err := p.Run(context.Background())
	require.Error(t, err)
	require.True(t, rekor.IsNetworkError(err))
}

func TestRunSchemaErrorIsFatal(t *testing.T) {
	srv := testutil.NewStubRekor(t, 5)
	p, _, _ := newTestPoller(t, srv, 5)
	srv.LogInfoHandler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rootHash":"00"}`))
	}

	err := p.Run(context.Background())
	require.Error(t, err)
	require.True(t, rekor.IsSchemaError(err))
	require.Equal(t, 1, srv.LogInfoCalls())
}

func TestRunCancelledIsClean(t *testing.T) {
	srv := testutil.NewStubRekor(t, 5)
	p, _, _ := newTestPoller(t, srv, 5)
	p.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	testutil.WaitFor(t, func() bool { return srv.LogInfoCalls() >= 1 }, 2*time.Second, 5*time.Millisecond, "first cycle")
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEndToEndSingleRecord(t *testing.T) {
	srv := testutil.NewStubRekor(t, 1)
	srv.AddEntry(0, testutil.Envelope(t, testutil.EntryOptions{
		LogIndex:  0,
		Algorithm: "sha256",
		Value:     "deadbeef",
		Content:   testutil.MintCertificatePEM(t, testutil.CertOptions{}),
	}))

	var out bytes.Buffer
	tr, err := transformer.ForName("jsonl", nil)
	require.NoError(t, err)
	logger, logs := testutil.NewTestLogger()
	pipeline := &etl.Pipeline{
		Extractor:   &extractor.FulcioExtractor{},
		Transformer: tr,
		Sink:        &sink.StdoutSink{Out: &out},
		Logger:      logger,
		RunID:       "e2e",
	}
	p := New(newClient(t, srv.URL), pipeline, 0, logger)

	// Seeds to 0 from a log of size 1, then fetches index 0.
	require.NoError(t, p.Cycle(context.Background()))
	require.Equal(t, "{\"LogIndex\":0,\"Hash\":\"sha256:deadbeef\"}\n", out.String())
	require.Contains(t, logs.String(), "[ ] Getting: 0 -> 0 (1)")
	require.Equal(t, uint64(1), p.LastSize())
}
