package handlers

import (
	"net/http"
	"route-audit-service/internal/services"
)

// Health reports liveness and the number of loaded routes.
func Health(engine *services.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}

		res := map[string]any{"status": "ok", "routes": len(engine.Routes())}
		writeJSON(w, r, http.StatusOK, res)
	}
}
