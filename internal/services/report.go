package services

import (
	"cmp"
	"fmt"
	"route-audit-service/internal/domain"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	SituationReceived   = "Received"
	SituationPending    = "Pending"
	SituationOutOfRoute = "Out of route"

	// Reason codes with special meaning in summaries.
	reasonUnvisited   = "unvisited_address"
	reasonTransferred = "transferred"

	ExportSheetName   = "Reconciliation"
	AllRoutesFilename = "reconciliation_all_routes.xlsx"

	closingDefaultCycle = "AM"
	closingRule         = "--------------------"
)

var (
	ExportHeader    = []string{"ID", "Status", "Situation", "Checked at"}
	AllRoutesHeader = []string{"Carrier", "Cluster", "Route", "ID", "Status", "Situation", "Checked at"}
)

// ExportFilename names the workbook of a single route.
func ExportFilename(routeID string) string {
	if routeID == "" {
		routeID = "no_route"
	}
	return "reconciliation_route_" + routeID + ".xlsx"
}

type SummaryOptions struct {
	IncludeOutOfRoute bool
}

// ClosingInput carries the operator-entered figures of the daily closing
// report. Figures are free text; blank Carrier, Pending, TotalPackages and
// TotalFailures default to the pending total of the selected routes.
type ClosingInput struct {
	Date  string `json:"date"`
	Base  string `json:"base"`
	Cycle string `json:"cycle"`

	Requested string `json:"requested"`
	Loaded    string `json:"loaded"`
	Carrier   string `json:"carrier"`
	NoShow    string `json:"no_show"`
	Backups   string `json:"backups"`
	Ambulance string `json:"ambulance"`

	Performance string `json:"performance"`
	Pending     string `json:"pending"`
	Failures    string `json:"failures"`
	Complaints  string `json:"complaints"`

	TotalPackages string `json:"total_packages"`
	TotalFailures string `json:"total_failures"`

	RouteIDs []string `json:"route_ids"`
}

// ReportComposer renders route state as text or table rows. It only reads the
// routes it is given.
type ReportComposer struct {
	translator *StatusTranslator
}

func NewReportComposer(t *StatusTranslator) *ReportComposer {
	if t == nil {
		t = DefaultStatusTranslator()
	}
	return &ReportComposer{translator: t}
}

// Summary renders the shareable end-of-route message for r.
func (rc *ReportComposer) Summary(r *domain.Route, opts SummaryOptions) string {
	unvisited := 0
	for id := range r.Pending {
		if reason, ok := r.Reason(id); ok && reason.Valid && reason.Code == reasonUnvisited {
			unvisited++
		}
	}
	failures := r.Pending.Len()
	if opts.IncludeOutOfRoute {
		failures += r.OutOfRoute.Len()
	}

	facility := orDefault(r.DestinationFacilityID, "(XPT undefined)")
	if r.DestinationFacilityName != "" {
		facility += " - " + r.DestinationFacilityName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RTS - Route: %s\n", orDefault(r.RouteID, "(no route)"))
	fmt.Fprintf(&b, "SVC/XPT: %s\n", facility)
	fmt.Fprintf(&b, "ORHC: %s\n", r.OnRoadHours)
	fmt.Fprintf(&b, "%%DS - Delivered: %s\n", r.DeliveryPercent)
	fmt.Fprintf(&b, "Pending/Unvisited: %d\n", unvisited)
	fmt.Fprintf(&b, "Failures: %d\n\n", failures)

	b.WriteString("Justification:\n")
	fmt.Fprintf(&b, "Route %s\n", orDefault(r.Cluster, "(no cluster)"))
	fmt.Fprintf(&b, "%s | %s\n", orDefault(r.Carrier, "(no carrier)"), orDefault(r.DriverName, "(not informed)"))

	b.WriteString("\nReceived:\n")
	if r.Confirmed.Len() == 0 {
		b.WriteString("(none received)\n")
	}
	for _, id := range r.Confirmed.Sorted() {
		fmt.Fprintf(&b, "%s: %s\n", id, rc.reason(r, id))
	}

	b.WriteString("\nNot received:\n")
	if r.Pending.Len() == 0 {
		b.WriteString("(none pending)\n")
	}
	for _, id := range r.Pending.Sorted() {
		if reason, ok := r.Reason(id); ok && reason.Valid && reason.Code == reasonTransferred {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", id, rc.reason(r, id))
	}

	if opts.IncludeOutOfRoute && r.OutOfRoute.Len() > 0 {
		b.WriteString("\nOut of route:\n")
		for _, id := range r.OutOfRoute.Sorted() {
			fmt.Fprintf(&b, "%s: %s\n", id, strings.ToLower(SituationOutOfRoute))
		}
	}

	return b.String()
}

// Rows lists r as (id, status, situation, checked at), confirmed first, then
// pending, then out of route. Each group is sorted by id.
func (rc *ReportComposer) Rows(r *domain.Route) [][]string {
	rows := make([][]string, 0, r.Confirmed.Len()+r.Pending.Len()+r.OutOfRoute.Len())
	for _, id := range r.Confirmed.Sorted() {
		rows = append(rows, []string{id, rc.reason(r, id), SituationReceived, checkedAt(r, id)})
	}
	for _, id := range r.Pending.Sorted() {
		rows = append(rows, []string{id, rc.reason(r, id), SituationPending, ""})
	}
	for _, id := range r.OutOfRoute.Sorted() {
		rows = append(rows, []string{id, SituationOutOfRoute, SituationOutOfRoute, checkedAt(r, id)})
	}
	return rows
}

// AllRows prefixes each route's rows with carrier, cluster and route id and
// groups routes by carrier, then cluster, then route id.
func (rc *ReportComposer) AllRows(routes []*domain.Route) [][]string {
	sorted := slices.Clone(routes)
	slices.SortFunc(sorted, func(a, b *domain.Route) int {
		return cmp.Or(
			cmp.Compare(a.Carrier, b.Carrier),
			cmp.Compare(a.Cluster, b.Cluster),
			cmp.Compare(a.RouteID, b.RouteID),
		)
	})

	var rows [][]string
	for _, r := range sorted {
		for _, row := range rc.Rows(r) {
			rows = append(rows, append([]string{r.Carrier, r.Cluster, r.RouteID}, row...))
		}
	}
	return rows
}

// Closing renders the daily closing report for routes, in the given order.
func (rc *ReportComposer) Closing(routes []*domain.Route, in ClosingInput) string {
	pendingTotal := 0
	for _, r := range routes {
		pendingTotal += r.Pending.Len()
	}
	suggested := strconv.Itoa(pendingTotal)

	var b strings.Builder
	field := func(label, v string) {
		b.WriteString(strings.TrimRight(label+" "+v, " "))
		b.WriteString("\n")
	}

	field("CLOSING REPORT", in.Base)
	field(closingDate(in.Date), "- Closing date")
	b.WriteString(closingRule + "\n")
	field("Cycle", orDefault(strings.TrimSpace(in.Cycle), closingDefaultCycle))
	field("Base:", in.Base)
	b.WriteString(closingRule + "\n")
	field("REQUESTED:", in.Requested)
	field("LOADED:", in.Loaded)
	field("CARRIER:", figureOr(in.Carrier, suggested))
	field("NO-SHOW:", in.NoShow)
	field("BACKUPS:", in.Backups)
	field("AMBULANCE:", in.Ambulance)
	b.WriteString("\n")
	field("PERFORMANCE:", in.Performance)
	field("PENDING:", figureOr(in.Pending, suggested))
	field("FAILURES:", in.Failures)
	field("COMPLAINTS:", in.Complaints)
	b.WriteString("\n")
	field("Total packages:", figureOr(in.TotalPackages, suggested))
	field("Total failures:", figureOr(in.TotalFailures, suggested))

	for _, r := range routes {
		b.WriteString("\n")
		b.WriteString(rc.justification(r))
	}

	return strings.TrimSpace(b.String())
}

func (rc *ReportComposer) justification(r *domain.Route) string {
	var b strings.Builder
	b.WriteString("Justification:\n")
	fmt.Fprintf(&b, "Route %s\n", orDefault(strings.TrimSpace(r.Cluster), r.RouteID))
	fmt.Fprintf(&b, "%s | %s\n\n", orDefault(r.Carrier, "(no carrier)"), orDefault(strings.TrimSpace(r.DriverName), "(not informed)"))

	if r.Pending.Len() == 0 {
		b.WriteString("(no failure ids)\n")
	}
	for _, id := range r.Pending.Sorted() {
		fmt.Fprintf(&b, "%s: %s\n", id, rc.reason(r, id))
	}
	return b.String()
}

func (rc *ReportComposer) reason(r *domain.Route, id string) string {
	reason, _ := r.Reason(id)
	return rc.translator.TranslateReason(reason)
}

func checkedAt(r *domain.Route, id string) string {
	stamp, ok := r.LastSeenAt[id]
	if !ok || stamp.At.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%s)", stamp.At.Format(time.DateTime), stamp.Provenance)
}

// closingDate turns an ISO date into day/month/year; other input is kept.
func closingDate(iso string) string {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return d.Format("02/01/2006")
}

// figureOr returns v unless it is blank or zero.
func figureOr(v, suggested string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return suggested
	}
	if n, err := strconv.Atoi(v); err == nil && n == 0 {
		return suggested
	}
	return v
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
