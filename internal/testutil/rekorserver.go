package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// StubRekor is an in-memory Rekor log served over httptest. Entries are keyed
// by log index; indexes without an entry are omitted from retrieve responses.
type StubRekor struct {
	*httptest.Server

	mu             sync.Mutex
	treeSize       uint64
	inactiveShards []uint64
	entries        map[uint64]json.RawMessage
	logInfoCalls   int
	retrieveCalls  [][]uint64

	// LogInfoHandler and RetrieveHandler override the default behavior when set.
	LogInfoHandler  http.HandlerFunc
	RetrieveHandler http.HandlerFunc
}

// NewStubRekor starts a stub log with the given active tree size.
func NewStubRekor(t *testing.T, treeSize uint64, inactiveShards ...uint64) *StubRekor {
	t.Helper()
	s := &StubRekor{
		treeSize:       treeSize,
		inactiveShards: inactiveShards,
		entries:        map[uint64]json.RawMessage{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/log":
			s.mu.Lock()
			s.logInfoCalls++
			h := s.LogInfoHandler
			s.mu.Unlock()
			if h != nil {
				h(w, r)
				return
			}
			s.serveLogInfo(w)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/log/entries/retrieve":
			s.mu.Lock()
			h := s.RetrieveHandler
			s.mu.Unlock()
			if h != nil {
				h(w, r)
				return
			}
			s.serveRetrieve(w, r)
		default:
			t.Errorf("unexpected rekor request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *StubRekor) serveLogInfo(w http.ResponseWriter) {
	s.mu.Lock()
	shards := make([]map[string]interface{}, 0, len(s.inactiveShards))
	for _, size := range s.inactiveShards {
		shards = append(shards, map[string]interface{}{"treeSize": size, "treeID": "1"})
	}
	body := map[string]interface{}{
		"treeSize":       s.treeSize,
		"rootHash":       "00",
		"inactiveShards": shards,
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *StubRekor) serveRetrieve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LogIndexes []uint64 `json:"logIndexes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.retrieveCalls = append(s.retrieveCalls, req.LogIndexes)
	out := make([]json.RawMessage, 0, len(req.LogIndexes))
	for _, idx := range req.LogIndexes {
		if e, ok := s.entries[idx]; ok {
			out = append(out, e)
		}
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// SetTreeSize changes the active tree size reported by the log.
func (s *StubRekor) SetTreeSize(size uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.treeSize = size
}

// AddEntry registers the envelope served for a log index.
func (s *StubRekor) AddEntry(index uint64, envelope json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[index] = envelope
}

// LogInfoCalls returns how many times the size endpoint was hit.
func (s *StubRekor) LogInfoCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logInfoCalls
}

// RetrieveCalls returns the index lists of every retrieve request received.
func (s *StubRekor) RetrieveCalls() [][]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]uint64, len(s.retrieveCalls))
	copy(out, s.retrieveCalls)
	return out
}
