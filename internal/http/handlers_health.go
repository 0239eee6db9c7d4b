package httpx

import (
	"net/http"
)

// healthHandler returns 200 for readiness/liveness checks. It never touches
// the backend so an outage there does not restart the portal.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
