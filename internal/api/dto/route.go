package dto

import "route-audit-service/internal/domain"

type ListRoutesResponse struct {
	Routes    []domain.RouteSnapshot `json:"routes"`
	CurrentID string                 `json:"current_route_id,omitempty"`
}

type SelectRouteRequest struct {
	RouteID string `json:"route_id"`
}

type ImportResponse struct {
	Anchors  int      `json:"anchors"`
	Imported int      `json:"imported"`
	RouteIDs []string `json:"route_ids"`
	Skipped  []string `json:"skipped"`
	Message  string   `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
