package services

import (
	"regexp"
	"route-audit-service/internal/domain"
	"strings"

	"golang.org/x/net/html"
)

const (
	onRoadHoursClass     = "metric-box__value"
	deliveryPercentClass = "chart-details-data__value-item"

	maxNodeDepth = 256
)

var (
	htmlTags   = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)

	onRoadHoursPattern     = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*hs?)\b`)
	deliveryPercentPattern = regexp.MustCompile(`(\d[\d.,]*)\s*%`)

	clusterPattern  = regexp.MustCompile(`"cluster"\s*:\s*"([^"]+)"`)
	carrierPattern  = regexp.MustCompile(`"carrier(?:Name)?"\s*:\s*"([^"]+)"`)
	driverPattern   = regexp.MustCompile(`"driverName"\s*:\s*"([^"]+)"`)
	facilityPattern = regexp.MustCompile(`"destinationFacilityId"\s*:\s*"([^"]+)"\s*,\s*"name"\s*:\s*"([^"]+)"`)

	// Lazy match spans whatever fields sit between a package id and its substatus.
	packagePattern = regexp.MustCompile(`"id"\s*:\s*(4\d{10}).*?"substatus"\s*:\s*(null|"([^"]*)")`)
)

// Substatuses that mean the package left the failure manifest.
var resolvedSubstatuses = map[string]bool{
	"delivered":   true,
	"transferred": true,
}

// extractSegment parses one route segment. ok is false when the segment has no
// routeId after simplification.
func extractSegment(raw, docHours string) (ExtractedRoute, bool) {
	text := simplifyText(raw)

	m := routeIDAnchor.FindStringSubmatch(text)
	if m == nil {
		return ExtractedRoute{}, false
	}

	ex := ExtractedRoute{
		RouteID: m[1],
		Reasons: map[string]domain.ReasonCode{},
	}

	hours, percent := structuredMetrics(raw)
	if hours == "" {
		hours = firstSubmatch(onRoadHoursPattern, text)
	}
	if hours == "" {
		hours = docHours
	}
	if percent == "" {
		percent = firstSubmatch(deliveryPercentPattern, text)
	}
	if percent != "" {
		percent += " %"
	}

	ex.Metadata = domain.RouteMetadata{
		Cluster:         firstSubmatch(clusterPattern, text),
		Carrier:         firstSubmatch(carrierPattern, text),
		DriverName:      firstSubmatch(driverPattern, text),
		OnRoadHours:     hours,
		DeliveryPercent: percent,
	}
	if fm := facilityPattern.FindStringSubmatch(text); fm != nil {
		ex.Metadata.DestinationFacilityID = fm[1]
		ex.Metadata.DestinationFacilityName = fm[2]
	}

	ex.Pending, ex.Reasons = extractPackages(text)
	return ex, true
}

// extractPackages pairs every package id with its substatus. All ids get a
// reason code; only unresolved ones are pending.
func extractPackages(text string) ([]string, map[string]domain.ReasonCode) {
	reasons := map[string]domain.ReasonCode{}
	seen := map[string]struct{}{}
	pending := []string{}

	for _, m := range packagePattern.FindAllStringSubmatch(text, -1) {
		id := m[1]

		rc := domain.NullReason
		if m[2] != "null" {
			rc = domain.Reason(strings.TrimSpace(m[3]))
		}
		reasons[id] = rc

		if rc.Valid && resolvedSubstatuses[rc.Code] {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, id)
	}

	return pending, reasons
}

// extractOnRoadHours finds an on-road hours value in arbitrary markup.
func extractOnRoadHours(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if hours, _ := structuredMetrics(raw); hours != "" {
		return hours
	}
	return firstSubmatch(onRoadHoursPattern, simplifyText(raw))
}

// simplifyText strips tags and collapses whitespace.
func simplifyText(raw string) string {
	s := htmlTags.ReplaceAllString(raw, " ")
	return whitespace.ReplaceAllString(s, " ")
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// structuredMetrics parses raw as an HTML tree and reads the metric widgets by
// class name. The first widget whose text matches wins for each metric.
func structuredMetrics(raw string) (hours, percent string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", ""
	}

	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if depth > maxNodeDepth || (hours != "" && percent != "") {
			return
		}

		if n.Type == html.ElementNode {
			switch {
			case hours == "" && hasClass(n, onRoadHoursClass):
				hours = firstSubmatch(onRoadHoursPattern, nodeText(n))
			case percent == "" && hasClass(n, deliveryPercentClass):
				percent = firstSubmatch(deliveryPercentPattern, nodeText(n))
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(doc, 0)

	return hours, percent
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText concatenates the text nodes under n, skipping comments.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node, int)
	collect = func(n *html.Node, depth int) {
		if depth > maxNodeDepth {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c, depth+1)
		}
	}
	collect(n, 0)
	return strings.TrimSpace(whitespace.ReplaceAllString(sb.String(), " "))
}
