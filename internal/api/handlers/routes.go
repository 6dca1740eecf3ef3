package handlers

import (
	"errors"
	"io"
	"net/http"
	"route-audit-service/internal/api/dto"
	"route-audit-service/internal/domain"
	"route-audit-service/internal/services"
	"strings"
)

// RouteHandler exposes the route collection lifecycle.
type RouteHandler struct {
	Engine *services.Engine
}

// Routes serves GET (list) and DELETE (?route_id=) on the collection.
func (h *RouteHandler) Routes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodDelete)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *RouteHandler) list(w http.ResponseWriter, r *http.Request) {
	res := dto.ListRoutesResponse{Routes: h.Engine.Routes()}
	for _, s := range res.Routes {
		if s.Current {
			res.CurrentID = s.RouteID
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) delete(w http.ResponseWriter, r *http.Request) {
	routeID := strings.TrimSpace(r.URL.Query().Get("route_id"))
	if routeID == "" {
		writeError(w, r, http.StatusBadRequest, "route_id is required")
		return
	}

	if err := h.Engine.DeleteRoute(r.Context(), routeID); err != nil {
		writeEngineError(w, r, "delete route", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "route " + routeID + " deleted"})
}

// Import takes the raw HTML of an operational-system page as the body.
func (h *RouteHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBody))
	defer r.Body.Close()
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "document too large or unreadable")
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		writeError(w, r, http.StatusBadRequest, "document is empty")
		return
	}

	res, err := h.Engine.ImportDocument(r.Context(), string(body))
	out := dto.ImportResponse{
		Anchors:  res.Anchors,
		Imported: res.Imported,
		RouteIDs: res.RouteIDs,
		Skipped:  res.Skipped,
	}
	switch {
	case errors.Is(err, domain.ErrNothingImported):
		out.Message = "no routes with pending packages found"
		if res.Anchors == 0 {
			out.Message = `no "routeId" found in the document`
		}
	case err != nil:
		writeEngineError(w, r, "import document", err)
		return
	}

	writeJSON(w, r, http.StatusOK, out)
}

func (h *RouteHandler) Select(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.SelectRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RouteID) == "" {
		writeError(w, r, http.StatusBadRequest, "route_id is required")
		return
	}

	if err := h.Engine.SelectRoute(r.Context(), req.RouteID); err != nil {
		writeEngineError(w, r, "select route", err)
		return
	}

	cur, _ := h.Engine.Current()
	writeJSON(w, r, http.StatusOK, cur)
}

func (h *RouteHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	h.Engine.ClearRoutes(r.Context())
	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: "all routes removed"})
}

func (h *RouteHandler) Current(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	cur, ok := h.Engine.Current()
	if !ok {
		writeEngineError(w, r, "current route", domain.ErrNoCurrentRoute)
		return
	}
	writeJSON(w, r, http.StatusOK, cur)
}
