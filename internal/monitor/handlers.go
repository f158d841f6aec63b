package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/halcyard/motiongate/internal/version"
)

// handleHealth provides a liveness endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "motiongate", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().Format(time.RFC3339))
}

// handleState returns the most recently published snapshot.
func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := ws.cell.Load()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// handleHistory returns the recent snapshot window from the in-memory ring.
// Query params:
//
//	limit (optional) - newest N snapshots; defaults to everything stored
func (ws *WebServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'limit' parameter %q", v))
			return
		}
		limit = parsed
	}

	snaps := ws.history.Recent(limit)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":     len(snaps),
		"capacity":  ws.history.Capacity(),
		"snapshots": snaps,
	})
}
