package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/halcyard/motiongate/internal/gate"
)

// Server exposes the executor-facing gate API: given a named action and the
// caller's combat flag, it answers whether the action should run against
// the latest published snapshot.
type Server struct {
	cell *gate.Cell
}

func NewServer(cell *gate.Cell) *Server {
	return &Server{cell: cell}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/decide", s.decideHandler)
	mux.HandleFunc("/actions", s.listActions)
	return mux
}

// decideHandler answers GET /decide?action=<name>&in_combat=<bool> with the
// gate verdict for that action under the current snapshot.
func (s *Server) decideHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("action")
	policy, ok := actionPolicies[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown action %q", name), http.StatusNotFound)
		return
	}

	inCombat := false
	if v := r.URL.Query().Get("in_combat"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid in_combat value %q", v), http.StatusBadRequest)
			return
		}
		inCombat = parsed
	}

	snap := s.cell.Load()
	verdict := policy.Decide(snap, inCombat)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"action": name,
		"state":  snap.State,
		"allow":  verdict.Allow,
		"reason": verdict.Reason,
	})
}

// listActions answers GET /actions with every known action and its flags.
func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	out := make([]map[string]interface{}, 0, len(actionPolicies))
	for _, name := range actionNames() {
		out = append(out, map[string]interface{}{
			"action": name,
			"policy": actionPolicies[name],
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
