package services

import (
	"regexp"
	"route-audit-service/internal/domain"
	"strings"

	"go.uber.org/zap"
)

// DefaultLookbackWindow bounds how far before a routeId anchor the importer
// searches for metric widgets of the same route.
const DefaultLookbackWindow = 12000

var (
	routeIDAnchor = regexp.MustCompile(`"routeId"\s*:\s*"?(\d+)`)

	// Class names of the rendered metric widgets that precede a route's JSON.
	metricMarkers = []string{onRoadHoursClass, deliveryPercentClass}
)

// ImportResult summarizes one import. Imported == 0 is a normal outcome.
type ImportResult struct {
	Anchors  int      `json:"anchors"`
	Imported int      `json:"imported"`
	RouteIDs []string `json:"route_ids"`
	Skipped  []string `json:"skipped"`
}

// ExtractedRoute is everything parsed from one route segment.
type ExtractedRoute struct {
	RouteID  string
	Metadata domain.RouteMetadata
	// Pending ids in document order, without duplicates.
	Pending []string
	Reasons map[string]domain.ReasonCode
}

// Segment is a [Start, End) byte range of the document owned by one anchor.
type Segment struct {
	Start  int
	Anchor int
	End    int
}

type RouteImporterOptions struct {
	// LookbackWindow <= 0 selects DefaultLookbackWindow.
	LookbackWindow int
	// DefaultCarrier fills the carrier of routes that never had one.
	DefaultCarrier string
	Log            *zap.Logger
}

// RouteImporter reconstructs routes from pasted operational-system HTML. One
// page may embed several route snapshots.
type RouteImporter struct {
	lookback       int
	defaultCarrier string
	log            *zap.Logger
}

func NewRouteImporter(opts RouteImporterOptions) *RouteImporter {
	lookback := opts.LookbackWindow
	if lookback <= 0 {
		lookback = DefaultLookbackWindow
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &RouteImporter{
		lookback:       lookback,
		defaultCarrier: strings.TrimSpace(opts.DefaultCarrier),
		log:            log,
	}
}

// Segments splits document into one segment per routeId anchor.
//
// A segment starts at the earliest of the nearest preceding occurrences of each
// metric marker, searched within the lookback window and never before the
// previous anchor. It ends where the next segment starts, or at end of input.
func (im *RouteImporter) Segments(document string) []Segment {
	locs := routeIDAnchor.FindAllStringIndex(document, -1)
	if len(locs) == 0 {
		return nil
	}

	segs := make([]Segment, len(locs))
	prevAnchorEnd := 0
	for i, loc := range locs {
		anchor := loc[0]
		floor := max(prevAnchorEnd, anchor-im.lookback, 0)

		start := anchor
		window := document[floor:anchor]
		for _, marker := range metricMarkers {
			idx := strings.LastIndex(window, marker)
			if idx < 0 {
				continue
			}
			// Back up to the tag that carries the marker class.
			if lt := strings.LastIndexByte(window[:idx], '<'); lt >= 0 {
				idx = lt
			}
			start = min(start, floor+idx)
		}

		segs[i] = Segment{Start: start, Anchor: anchor}
		prevAnchorEnd = loc[1]
	}

	for i := range segs {
		if i+1 < len(segs) {
			segs[i].End = segs[i+1].Start
		} else {
			segs[i].End = len(document)
		}
	}

	return segs
}

// Parse extracts every route segment of document, including segments with no
// pending packages.
func (im *RouteImporter) Parse(document string) []ExtractedRoute {
	document = unescapeQuotes(document)

	segs := im.Segments(document)
	if len(segs) == 0 {
		return nil
	}

	// Text before the first segment belongs to no route; its on-road hours
	// value is the document-wide fallback.
	docHours := extractOnRoadHours(document[:segs[0].Start])

	out := make([]ExtractedRoute, 0, len(segs))
	for _, seg := range segs {
		ex, ok := extractSegment(document[seg.Start:seg.End], docHours)
		if !ok {
			continue
		}
		out = append(out, ex)
	}
	return out
}

// Import parses document and merges every segment with at least one pending
// package into c. Re-importing a route replaces its reconciliation state and
// merges its metadata.
func (im *RouteImporter) Import(c *domain.RouteCollection, document string) ImportResult {
	res := ImportResult{RouteIDs: []string{}, Skipped: []string{}}

	routes := im.Parse(document)
	res.Anchors = len(routeIDAnchor.FindAllStringIndex(unescapeQuotes(document), -1))

	for _, ex := range routes {
		if len(ex.Pending) == 0 {
			im.log.Info("route segment has no pending packages, skipped", zap.String("route_id", ex.RouteID))
			res.Skipped = append(res.Skipped, ex.RouteID)
			continue
		}

		r := c.CreateOrGet(ex.RouteID)
		r.RouteMetadata.Merge(ex.Metadata)
		if r.Carrier == "" {
			r.Carrier = im.defaultCarrier
		}
		r.ReplaceManifest(ex.Pending, ex.Reasons)

		res.Imported++
		res.RouteIDs = append(res.RouteIDs, ex.RouteID)
		im.log.Info("route imported",
			zap.String("route_id", ex.RouteID),
			zap.Int("pending", len(ex.Pending)),
			zap.Int("packages", len(ex.Reasons)),
		)
	}

	return res
}

// unescapeQuotes turns JSON embedded as an escaped string (\"routeId\":...)
// into plain JSON text so one set of patterns covers both forms.
func unescapeQuotes(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}
