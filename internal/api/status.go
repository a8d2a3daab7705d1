package api

import (
	"net/http"

	"github.com/chtzvt/rekorslurp/internal/poller"
)

// StatusSource reports the current poller status.
type StatusSource interface {
	Status() poller.Status
}

func RegisterStatusHandlers(mux *http.ServeMux, source StatusSource) {
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, source.Status())
	})
}
