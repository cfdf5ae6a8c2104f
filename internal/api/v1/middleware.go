package v1

import "net/http"

// requireRuns wraps a handler and returns 503 if run history is not configured.
func (s *Server) requireRuns(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Runs == nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Run history not configured")
			return
		}
		next(w, r)
	}
}
