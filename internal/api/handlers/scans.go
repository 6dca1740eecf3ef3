package handlers

import (
	"net/http"
	"route-audit-service/internal/api/dto"
	"route-audit-service/internal/domain"
	"route-audit-service/internal/services"
	"strings"
	"time"
)

// ScanHandler feeds identifiers into the current route.
type ScanHandler struct {
	Engine   *services.Engine
	Sessions *services.KeystrokeSessions
}

func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	provenance, err := domain.ParseProvenance(req.Provenance)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "provenance must be manual, scanner or bulk-import")
		return
	}

	res := h.Engine.SubmitScan(r.Context(), req.Code, provenance)
	writeJSON(w, r, http.StatusOK, toScanResponse(res))
}

func (h *ScanHandler) Manual(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.ManualIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	added, err := h.Engine.AddManualIDs(r.Context(), req.IDs)
	if err != nil {
		writeEngineError(w, r, "add manual ids", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ManualIDsResponse{Added: added})
}

// Bulk reconciles a CSV body, one identifier per line.
func (h *ScanHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()

	res, err := h.Engine.IngestCSV(r.Context(), http.MaxBytesReader(w, r.Body, maxDocumentBody))
	if err != nil {
		writeEngineError(w, r, "ingest csv", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Keystrokes accepts POST to feed key events and DELETE to end a session.
func (h *ScanHandler) Keystrokes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.observeKeys(w, r)
	case http.MethodDelete:
		h.dropSession(w, r)
	default:
		w.Header().Set("Allow", http.MethodPost+", "+http.MethodDelete)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// observeKeys runs raw key events through the session's scan-origin classifier
// and submits every committed entry.
func (h *ScanHandler) observeKeys(w http.ResponseWriter, r *http.Request) {
	var req dto.KeystrokesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}

	events := make([]services.KeyEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		ke := services.KeyEvent{Key: ev.Key, FieldValue: ev.Value}
		if ev.AtMS > 0 {
			ke.At = time.UnixMilli(ev.AtMS)
		}
		events = append(events, ke)
	}

	res := dto.KeystrokesResponse{Scans: []dto.ScanResponse{}}
	for _, c := range h.Sessions.Observe(sessionID, events) {
		res.Scans = append(res.Scans, toScanResponse(h.Engine.SubmitScan(r.Context(), c.Raw, c.Provenance)))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *ScanHandler) dropSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}
	if !h.Sessions.Drop(sessionID) {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "session " + sessionID + " closed"})
}
