package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"route-audit-service/internal/domain"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// BulkResult counts the outcome of one CSV batch.
type BulkResult struct {
	RouteID    string `json:"route_id"`
	Lines      int    `json:"lines"`
	Accepted   int    `json:"accepted"`
	Ignored    int    `json:"ignored"`
	NewMatches int    `json:"new_matches"`
	Duplicates int    `json:"duplicates"`
	OutOfRoute int    `json:"out_of_route"`
}

func (b *BulkResult) count(c domain.Classification) {
	b.Accepted++
	switch c {
	case domain.NewMatch:
		b.NewMatches++
	case domain.Duplicate:
		b.Duplicates++
	case domain.OutOfRoute:
		b.OutOfRoute++
	}
}

// IngestCSV reconciles one candidate identifier per non-empty line of r with
// bulk-import provenance, so no alerts fire. UTF-8 and UTF-16 input with a BOM
// are both accepted. r is drained before the engine lock is taken. A read
// error stops the batch after the last complete line; those lines stay
// applied.
func (e *Engine) IngestCSV(ctx context.Context, r io.Reader) (BulkResult, error) {
	lines, readErr := readCSVLines(r)

	e.mu.Lock()
	defer e.mu.Unlock()

	route, ok := e.routes.Current()
	if !ok {
		return BulkResult{}, fmt.Errorf("ingest csv: %w", domain.ErrNoCurrentRoute)
	}
	res := BulkResult{RouteID: route.RouteID}

	for _, line := range lines {
		res.Lines++

		sr := e.reconcileLocked(ctx, line, domain.ProvenanceBulkImport)
		if sr.Ignored {
			res.Ignored++
			continue
		}
		res.count(sr.Classification)
	}

	if res.Accepted > 0 {
		e.persist(ctx)
	}
	e.log.Info("csv ingested",
		zap.String("route_id", res.RouteID),
		zap.Int("lines", res.Lines),
		zap.Int("accepted", res.Accepted),
		zap.Int("ignored", res.Ignored),
	)

	return res, readErr
}

// readCSVLines decodes r and returns its trimmed non-empty lines. Lines have
// no length limit.
func readCSVLines(r io.Reader) ([]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		// The tail after the last newline may be cut short.
		data = data[:bytes.LastIndexByte(data, '\n')+1]
		err = fmt.Errorf("ingest csv: read: %w", err)
	}

	var lines []string
	for line := range strings.SplitSeq(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, err
}
