package handlers

import "net/http"

// Health is the liveness probe. It carries no auth and no rate limit so
// orchestrators can poll it freely.
func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
