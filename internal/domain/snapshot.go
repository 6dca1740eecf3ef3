package domain

import "maps"

// RouteSnapshot is a read-only copy of a route for display layers.
type RouteSnapshot struct {
	RouteID         string               `json:"route_id"`
	Label           string               `json:"label"`
	Cluster         string               `json:"cluster"`
	Carrier         string               `json:"carrier"`
	DriverName      string               `json:"driver_name"`
	FacilityID      string               `json:"destination_facility_id"`
	FacilityName    string               `json:"destination_facility_name"`
	OnRoadHours     string               `json:"on_road_hours"`
	DeliveryPercent string               `json:"delivery_percent"`
	Current         bool                 `json:"current"`
	Pending         []string             `json:"pending"`
	Confirmed       []string             `json:"confirmed"`
	OutOfRoute      []string             `json:"out_of_route"`
	Duplicates      map[string]int       `json:"duplicates"`
	LastSeenAt      map[string]ScanStamp `json:"last_seen_at"`
	ProgressPercent int                  `json:"progress_percent"`
}

// Snapshot copies the route state; mutating the result never affects r.
func (r *Route) Snapshot() RouteSnapshot {
	return RouteSnapshot{
		RouteID:         r.RouteID,
		Label:           r.Label(),
		Cluster:         r.Cluster,
		Carrier:         r.Carrier,
		DriverName:      r.DriverName,
		FacilityID:      r.DestinationFacilityID,
		FacilityName:    r.DestinationFacilityName,
		OnRoadHours:     r.OnRoadHours,
		DeliveryPercent: r.DeliveryPercent,
		Pending:         r.Pending.Sorted(),
		Confirmed:       r.Confirmed.Sorted(),
		OutOfRoute:      r.OutOfRoute.Sorted(),
		Duplicates:      maps.Clone(r.Duplicates),
		LastSeenAt:      maps.Clone(r.LastSeenAt),
		ProgressPercent: r.ProgressPercent(),
	}
}
