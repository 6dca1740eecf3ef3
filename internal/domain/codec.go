package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// storedRoute is the persisted form of a Route: sets become sorted arrays and
// maps become plain objects.
type storedRoute struct {
	RouteID                 string                `json:"routeId"`
	Cluster                 string                `json:"cluster,omitempty"`
	Carrier                 string                `json:"carrier,omitempty"`
	DriverName              string                `json:"driverName,omitempty"`
	DestinationFacilityID   string                `json:"destinationFacilityId,omitempty"`
	DestinationFacilityName string                `json:"destinationFacilityName,omitempty"`
	OnRoadHours             string                `json:"onRoadHours,omitempty"`
	DeliveryPercent         string                `json:"deliveryPercent,omitempty"`
	Pending                 []string              `json:"pending"`
	Confirmed               []string              `json:"confirmed"`
	OutOfRoute              []string              `json:"outOfRoute"`
	Duplicates              map[string]int        `json:"duplicates"`
	LastSeenAt              map[string]ScanStamp  `json:"lastSeenAt"`
	ReasonCodes             map[string]ReasonCode `json:"reasonCodes"`
}

// MarshalRoutes serializes every route of c keyed by route id. The current
// route pointer is session state and is not stored.
func MarshalRoutes(c *RouteCollection) ([]byte, error) {
	out := make(map[string]storedRoute, c.Len())
	for _, r := range c.Ordered() {
		out[r.RouteID] = storedRoute{
			RouteID:                 r.RouteID,
			Cluster:                 r.Cluster,
			Carrier:                 r.Carrier,
			DriverName:              r.DriverName,
			DestinationFacilityID:   r.DestinationFacilityID,
			DestinationFacilityName: r.DestinationFacilityName,
			OnRoadHours:             r.OnRoadHours,
			DeliveryPercent:         r.DeliveryPercent,
			Pending:                 r.Pending.Sorted(),
			Confirmed:               r.Confirmed.Sorted(),
			OutOfRoute:              r.OutOfRoute.Sorted(),
			Duplicates:              r.Duplicates,
			LastSeenAt:              r.LastSeenAt,
			ReasonCodes:             r.ReasonCodes,
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal routes: %w", err)
	}
	return b, nil
}

// UnmarshalRoutes rebuilds a collection from MarshalRoutes output. Absent
// fields default to empty values; empty input yields an empty collection.
func UnmarshalRoutes(data []byte) (*RouteCollection, error) {
	c := NewRouteCollection()
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}

	var in map[string]storedRoute
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal routes: %w", err)
	}

	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		sr := in[key]
		routeID := sr.RouteID
		if routeID == "" {
			routeID = key
		}

		r := NewRoute(routeID)
		r.RouteMetadata.Merge(RouteMetadata{
			Cluster:                 sr.Cluster,
			Carrier:                 sr.Carrier,
			DriverName:              sr.DriverName,
			DestinationFacilityID:   sr.DestinationFacilityID,
			DestinationFacilityName: sr.DestinationFacilityName,
			OnRoadHours:             sr.OnRoadHours,
			DeliveryPercent:         sr.DeliveryPercent,
		})
		r.Pending = NewIDSet(sr.Pending...)
		r.Confirmed = NewIDSet(sr.Confirmed...)
		r.OutOfRoute = NewIDSet(sr.OutOfRoute...)
		for id, n := range sr.Duplicates {
			r.Duplicates[id] = n
		}
		for id, s := range sr.LastSeenAt {
			r.LastSeenAt[id] = s
		}
		for id, rc := range sr.ReasonCodes {
			r.ReasonCodes[id] = rc
		}

		c.Put(r)
	}

	return c, nil
}
