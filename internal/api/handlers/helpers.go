package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"route-audit-service/internal/api/dto"
	"route-audit-service/internal/domain"
	"route-audit-service/internal/services"

	"go.uber.org/zap"
)

// Request body limits.
const (
	maxJSONBody     = 1 << 20
	maxDocumentBody = 32 << 20
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func writeText(w http.ResponseWriter, r *http.Request, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, text); err != nil {
		zap.L().Warn("write failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeEngineError maps a recoverable engine error to its HTTP status.
func writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, domain.ErrRouteNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoCurrentRoute):
		writeError(w, r, http.StatusConflict, domain.ErrNoCurrentRoute.Error())
	case errors.Is(err, domain.ErrNoIdentifiers):
		writeError(w, r, http.StatusBadRequest, domain.ErrNoIdentifiers.Error())
	case errors.Is(err, domain.ErrExportUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, domain.ErrExportUnavailable.Error())
	default:
		zap.L().Error(op+" failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// allow rejects requests whose method is not m.
func allow(w http.ResponseWriter, r *http.Request, m string) bool {
	if r.Method == m {
		return true
	}
	w.Header().Set("Allow", m)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeJSON reads exactly one JSON object with no unknown fields into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func toScanResponse(res services.ScanResult) dto.ScanResponse {
	return dto.ScanResponse{
		Raw:            res.Raw,
		Code:           res.Code,
		RouteID:        res.RouteID,
		Provenance:     string(res.Provenance),
		Classification: string(res.Classification),
		Ignored:        res.Ignored,
		Reason:         res.Reason,
		Alert:          res.Alert,
		Duplicates:     res.Duplicates,
		Pending:        res.Pending,
		Confirmed:      res.Confirmed,
		OutOfRoute:     res.OutOfRoute,
	}
}
