package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func decodeJSONBody(r *http.Request, out interface{}) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// handleReconcile retries or removes subscription rows that never received a
// remote webhook handle. Operator-triggered maintenance, not a background
// job.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	olderThan := 30 * time.Minute
	if raw := r.URL.Query().Get("olderThan"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "Params error", http.StatusBadRequest)
			return
		}
		olderThan = parsed
	}

	repaired, removed, err := s.manager.ReconcileOrphans(r.Context(), olderThan)
	if err != nil {
		s.log.Error("orphan reconcile failed", zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"repaired": repaired,
		"removed":  removed,
	})
}
