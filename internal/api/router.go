package api

import (
	"net/http"
	"route-audit-service/internal/api/handlers"
	"route-audit-service/internal/services"

	"go.uber.org/zap"
)

// NewRouter wires HTTP handlers to the engine and returns an http.Handler.
func NewRouter(engine *services.Engine, sessions *services.KeystrokeSessions, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	routes := &handlers.RouteHandler{Engine: engine}
	scans := &handlers.ScanHandler{Engine: engine, Sessions: sessions}
	reports := &handlers.ReportHandler{Engine: engine}

	mux.HandleFunc("/health", handlers.Health(engine))

	mux.HandleFunc("/routes", routes.Routes)
	mux.HandleFunc("/routes/import", routes.Import)
	mux.HandleFunc("/routes/select", routes.Select)
	mux.HandleFunc("/routes/clear", routes.Clear)
	mux.HandleFunc("/routes/current", routes.Current)

	mux.HandleFunc("/scans", scans.Submit)
	mux.HandleFunc("/scans/manual", scans.Manual)
	mux.HandleFunc("/scans/bulk", scans.Bulk)
	mux.HandleFunc("/keystrokes", scans.Keystrokes)

	mux.HandleFunc("/reports/summary", reports.Summary)
	mux.HandleFunc("/reports/export", reports.Export)
	mux.HandleFunc("/reports/closing", reports.Closing)

	return loggingMiddleware(log, mux)
}
