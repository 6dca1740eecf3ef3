package handlers

import (
	"bytes"
	"net/http"
	"route-audit-service/internal/services"
	"strconv"
	"strings"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler renders read-only views of the reconciliation state.
type ReportHandler struct {
	Engine *services.Engine
}

// Summary returns the text summary of the current route. Out-of-route ids are
// included unless out_of_route=false.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	opts := services.SummaryOptions{IncludeOutOfRoute: true}
	if raw := r.URL.Query().Get("out_of_route"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "out_of_route must be a boolean")
			return
		}
		opts.IncludeOutOfRoute = v
	}

	text, err := h.Engine.Summary(opts)
	if err != nil {
		writeEngineError(w, r, "summary", err)
		return
	}
	writeText(w, r, http.StatusOK, text)
}

// Export downloads a workbook for the current route (scope=current, default)
// or for every route (scope=all).
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	var (
		buf  bytes.Buffer
		name string
		err  error
	)
	switch scope := strings.ToLower(r.URL.Query().Get("scope")); scope {
	case "", "current":
		name, err = h.Engine.ExportCurrent(&buf)
	case "all":
		name, err = h.Engine.ExportAll(&buf)
	default:
		writeError(w, r, http.StatusBadRequest, "scope must be current or all")
		return
	}
	if err != nil {
		writeEngineError(w, r, "export", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ReportHandler) Closing(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req services.ClosingInput
	if !decodeJSON(w, r, &req) {
		return
	}
	writeText(w, r, http.StatusOK, h.Engine.Closing(req))
}
