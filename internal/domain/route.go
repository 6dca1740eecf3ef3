package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultOnRoadHours     = "-"
	DefaultDeliveryPercent = "0 %"
)

// Provenance is the inferred source of a scan event.
type Provenance string

const (
	ProvenanceManual     Provenance = "manual"
	ProvenanceScanner    Provenance = "scanner"
	ProvenanceBulkImport Provenance = "bulk-import"
)

// ParseProvenance accepts the wire names of the three provenance tags.
func ParseProvenance(s string) (Provenance, error) {
	switch p := Provenance(strings.ToLower(strings.TrimSpace(s))); p {
	case ProvenanceManual, ProvenanceScanner, ProvenanceBulkImport:
		return p, nil
	case "":
		return ProvenanceManual, nil
	default:
		return "", fmt.Errorf("parse provenance %q: unknown tag", s)
	}
}

// Classification is the outcome of reconciling one identifier against a route.
type Classification string

const (
	NewMatch   Classification = "NEW_MATCH"
	Duplicate  Classification = "DUPLICATE"
	OutOfRoute Classification = "OUT_OF_ROUTE"
)

// ScanStamp records when and how an identifier was last scanned.
type ScanStamp struct {
	At         time.Time  `json:"at"`
	Provenance Provenance `json:"provenance"`
}

// ReasonCode is the upstream substatus token of a package; Valid is false for
// an explicit null.
type ReasonCode struct {
	Code  string
	Valid bool
}

func Reason(code string) ReasonCode { return ReasonCode{Code: code, Valid: true} }

// NullReason is the reason code of a package whose substatus was null.
var NullReason = ReasonCode{}

func (r ReasonCode) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Code)
}

func (r *ReasonCode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = NullReason
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("reason code: %w", err)
	}
	*r = Reason(s)
	return nil
}

// RouteMetadata holds the descriptive fields extracted from imports. Any field
// may be empty.
type RouteMetadata struct {
	Cluster                 string
	Carrier                 string
	DriverName              string
	DestinationFacilityID   string
	DestinationFacilityName string
	OnRoadHours             string
	DeliveryPercent         string
}

// Merge copies every non-empty field of other over m.
func (m *RouteMetadata) Merge(other RouteMetadata) {
	mergeField(&m.Cluster, other.Cluster)
	mergeField(&m.Carrier, other.Carrier)
	mergeField(&m.DriverName, other.DriverName)
	mergeField(&m.DestinationFacilityID, other.DestinationFacilityID)
	mergeField(&m.DestinationFacilityName, other.DestinationFacilityName)
	mergeField(&m.OnRoadHours, other.OnRoadHours)
	mergeField(&m.DeliveryPercent, other.DeliveryPercent)
}

func mergeField(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Route is one delivery run being audited.
//
// Pending, Confirmed and OutOfRoute are pairwise disjoint. An identifier enters
// Pending only from an import or manual entry, moves to Confirmed at most once,
// and enters OutOfRoute only when it was never pending.
type Route struct {
	RouteID string
	RouteMetadata

	Pending    IDSet
	Confirmed  IDSet
	OutOfRoute IDSet

	// Duplicates counts repeat scans of identifiers already Confirmed or OutOfRoute.
	Duplicates  map[string]int
	LastSeenAt  map[string]ScanStamp
	ReasonCodes map[string]ReasonCode
}

func NewRoute(routeID string) *Route {
	return &Route{
		RouteID: strings.TrimSpace(routeID),
		RouteMetadata: RouteMetadata{
			OnRoadHours:     DefaultOnRoadHours,
			DeliveryPercent: DefaultDeliveryPercent,
		},
		Pending:     NewIDSet(),
		Confirmed:   NewIDSet(),
		OutOfRoute:  NewIDSet(),
		Duplicates:  map[string]int{},
		LastSeenAt:  map[string]ScanStamp{},
		ReasonCodes: map[string]ReasonCode{},
	}
}

// Reconcile classifies a normalized identifier against the route and applies
// the transition. Repeat scans only touch Duplicates and LastSeenAt.
func (r *Route) Reconcile(id string, provenance Provenance, at time.Time) Classification {
	stamp := ScanStamp{At: at, Provenance: provenance}

	if r.Confirmed.Has(id) || r.OutOfRoute.Has(id) {
		r.Duplicates[id]++
		r.LastSeenAt[id] = stamp
		return Duplicate
	}

	if r.Pending.Has(id) {
		r.Pending.Remove(id)
		r.Confirmed.Add(id)
		r.LastSeenAt[id] = stamp
		return NewMatch
	}

	r.OutOfRoute.Add(id)
	r.LastSeenAt[id] = stamp
	return OutOfRoute
}

// ReplaceManifest discards all reconciliation state and installs a fresh
// pending manifest. Metadata is left untouched.
func (r *Route) ReplaceManifest(pending []string, reasons map[string]ReasonCode) {
	r.Pending = NewIDSet(pending...)
	r.Confirmed = NewIDSet()
	r.OutOfRoute = NewIDSet()
	r.Duplicates = map[string]int{}
	r.LastSeenAt = map[string]ScanStamp{}
	r.ReasonCodes = make(map[string]ReasonCode, len(reasons))
	for id, rc := range reasons {
		r.ReasonCodes[id] = rc
	}
}

// AddPending adds id to the pending manifest unless it was already scanned.
func (r *Route) AddPending(id string) bool {
	if id == "" || r.Pending.Has(id) || r.Confirmed.Has(id) || r.OutOfRoute.Has(id) {
		return false
	}
	r.Pending.Add(id)
	return true
}

// Reason returns the recorded reason code for id and whether one exists.
func (r *Route) Reason(id string) (ReasonCode, bool) {
	rc, ok := r.ReasonCodes[id]
	return rc, ok
}

// ProgressPercent is the floor of confirmed over all observed identifiers.
func (r *Route) ProgressPercent() int {
	total := r.Pending.Len() + r.Confirmed.Len() + r.OutOfRoute.Len()
	if total == 0 {
		return 0
	}
	return r.Confirmed.Len() * 100 / total
}

// Label is the one-line description used in route pickers.
func (r *Route) Label() string {
	var b strings.Builder
	b.WriteString("ROUTE ")
	b.WriteString(r.RouteID)
	if r.Cluster != "" {
		b.WriteString(" • CLUSTER ")
		b.WriteString(r.Cluster)
	}
	if r.DestinationFacilityID != "" {
		b.WriteString(" • XPT ")
		b.WriteString(r.DestinationFacilityID)
	}
	return b.String()
}
