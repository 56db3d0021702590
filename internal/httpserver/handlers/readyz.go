package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz is ready once a route table has been built and the store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		resp := readyzResponse{Ready: true}
		switch {
		case d.MemoryIndex.GetLastReload().IsZero():
			resp = readyzResponse{Reason: "route table not built"}
		case d.PingStore(r.Context()) != nil:
			resp = readyzResponse{Reason: "store unavailable"}
		}

		if !resp.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
