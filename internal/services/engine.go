package services

import (
	"context"
	"fmt"
	"io"
	"route-audit-service/internal/domain"
	"route-audit-service/internal/ports"
	"strings"
	"sync"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Reasons reported on ignored scans.
const (
	IgnoredUnrecognized   = "unrecognized code"
	IgnoredNoCurrentRoute = "no current route"
)

// ScanResult describes what one scan did. Ignored scans change nothing.
type ScanResult struct {
	Raw            string                `json:"raw"`
	Code           string                `json:"code,omitempty"`
	RouteID        string                `json:"route_id,omitempty"`
	Provenance     domain.Provenance     `json:"provenance"`
	Classification domain.Classification `json:"classification,omitempty"`
	Ignored        bool                  `json:"ignored"`
	Reason         string                `json:"reason,omitempty"`
	// Alert asks the client to play the audible warning.
	Alert      bool `json:"alert"`
	Duplicates int  `json:"duplicates,omitempty"`
	Pending    int  `json:"pending"`
	Confirmed  int  `json:"confirmed"`
	OutOfRoute int  `json:"out_of_route"`
}

type EngineOptions struct {
	// Store may be nil; the engine then runs in memory only.
	Store ports.SnapshotStore
	// Alerter may be nil.
	Alerter ports.Alerter
	// Exporter may be nil; exports then fail with ErrExportUnavailable.
	Exporter   ports.SpreadsheetWriter
	Translator *StatusTranslator
	Importer   *RouteImporter
	Clock      clockz.Clock
	Logger     *zap.Logger
}

// Engine owns the route collection and is the only writer to it. Every command
// takes the engine lock, so callers may be concurrent.
type Engine struct {
	mu sync.Mutex

	routes   *domain.RouteCollection
	store    ports.SnapshotStore
	alerter  ports.Alerter
	exporter ports.SpreadsheetWriter
	importer *RouteImporter
	reports  *ReportComposer
	clock    clockz.Clock
	log      *zap.Logger
}

func NewEngine(opts EngineOptions) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockz.RealClock
	}
	importer := opts.Importer
	if importer == nil {
		importer = NewRouteImporter(RouteImporterOptions{Log: log})
	}

	return &Engine{
		routes:   domain.NewRouteCollection(),
		store:    opts.Store,
		alerter:  opts.Alerter,
		exporter: opts.Exporter,
		importer: importer,
		reports:  NewReportComposer(opts.Translator),
		clock:    clock,
		log:      log,
	}
}

// Restore replaces the in-memory collection with the stored snapshot. Missing
// or unreadable data leaves an empty collection.
func (e *Engine) Restore(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.routes = domain.NewRouteCollection()
	if e.store == nil {
		return
	}

	data, err := e.store.Load(ctx)
	if err != nil {
		e.log.Warn("restore routes: load snapshot failed, starting empty", zap.Error(err))
		return
	}

	routes, err := domain.UnmarshalRoutes(data)
	if err != nil {
		e.log.Warn("restore routes: snapshot is corrupt, starting empty", zap.Error(err))
		return
	}

	e.routes = routes
	e.log.Info("routes restored", zap.Int("routes", routes.Len()))
}

// ImportDocument merges every route found in an operational-system HTML page.
// A page yielding no routes returns ErrNothingImported with the result.
func (e *Engine) ImportDocument(ctx context.Context, document string) (ImportResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.importer.Import(e.routes, document)
	if res.Imported == 0 {
		return res, fmt.Errorf("import document: %d anchors found: %w", res.Anchors, domain.ErrNothingImported)
	}

	if _, ok := e.routes.Current(); !ok {
		_ = e.routes.SetCurrent(res.RouteIDs[0])
	}
	e.persist(ctx)

	return res, nil
}

func (e *Engine) SelectRoute(ctx context.Context, routeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.routes.SetCurrent(strings.TrimSpace(routeID)); err != nil {
		return fmt.Errorf("select route: %w", err)
	}
	return nil
}

func (e *Engine) DeleteRoute(ctx context.Context, routeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.routes.Delete(strings.TrimSpace(routeID)); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	e.persist(ctx)
	return nil
}

func (e *Engine) ClearRoutes(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.routes.Clear()
	e.persist(ctx)
}

// SubmitScan normalizes raw input and reconciles it against the current route.
func (e *Engine) SubmitScan(ctx context.Context, raw string, provenance domain.Provenance) ScanResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.reconcileLocked(ctx, raw, provenance)
	if !res.Ignored {
		e.persist(ctx)
	}
	return res
}

// ReconcileCode reconciles an identifier that is already normalized.
func (e *Engine) ReconcileCode(ctx context.Context, code string, provenance domain.Provenance) ScanResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := ScanResult{Raw: code, Provenance: provenance}
	r, ok := e.routes.Current()
	if !ok {
		res.Ignored, res.Reason = true, IgnoredNoCurrentRoute
		return res
	}
	if code = strings.TrimSpace(code); code == "" {
		res.Ignored, res.Reason = true, IgnoredUnrecognized
		return res
	}

	res = e.apply(ctx, r, res, code)
	e.persist(ctx)
	return res
}

func (e *Engine) reconcileLocked(ctx context.Context, raw string, provenance domain.Provenance) ScanResult {
	res := ScanResult{Raw: raw, Provenance: provenance}

	code, ok := domain.NormalizeCode(raw)
	if !ok {
		res.Ignored, res.Reason = true, IgnoredUnrecognized
		return res
	}
	r, ok := e.routes.Current()
	if !ok {
		res.Code = code
		res.Ignored, res.Reason = true, IgnoredNoCurrentRoute
		return res
	}

	return e.apply(ctx, r, res, code)
}

func (e *Engine) apply(ctx context.Context, r *domain.Route, res ScanResult, code string) ScanResult {
	res.Code = code
	res.RouteID = r.RouteID
	res.Classification = r.Reconcile(code, res.Provenance, e.clock.Now())
	res.Duplicates = r.Duplicates[code]
	res.Pending = r.Pending.Len()
	res.Confirmed = r.Confirmed.Len()
	res.OutOfRoute = r.OutOfRoute.Len()

	res.Alert = res.Classification != domain.NewMatch && res.Provenance != domain.ProvenanceBulkImport
	if res.Alert && e.alerter != nil {
		e.alerter.Alert(ctx, code, res.Classification)
	}

	e.log.Debug("scan reconciled",
		zap.String("route_id", r.RouteID),
		zap.String("code", code),
		zap.String("classification", string(res.Classification)),
		zap.String("provenance", string(res.Provenance)),
	)
	return res
}

// AddManualIDs adds identifiers separated by whitespace, commas or semicolons
// to the current route's pending manifest and reports how many were new.
func (e *Engine) AddManualIDs(ctx context.Context, text string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.routes.Current()
	if !ok {
		return 0, fmt.Errorf("add manual ids: %w", domain.ErrNoCurrentRoute)
	}

	tokens := strings.FieldsFunc(text, func(c rune) bool {
		return c == ',' || c == ';' || c == ' ' || c == '\t' || c == '\n' || c == '\r'
	})
	if len(tokens) == 0 {
		return 0, fmt.Errorf("add manual ids: %w", domain.ErrNoIdentifiers)
	}

	added := 0
	for _, tok := range tokens {
		if r.AddPending(strings.TrimSpace(tok)) {
			added++
		}
	}
	if added > 0 {
		e.persist(ctx)
	}
	return added, nil
}

// Current returns a snapshot of the current route.
func (e *Engine) Current() (domain.RouteSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.routes.Current()
	if !ok {
		return domain.RouteSnapshot{}, false
	}
	s := r.Snapshot()
	s.Current = true
	return s, true
}

// Routes returns snapshots of every route ordered by route id.
func (e *Engine) Routes() []domain.RouteSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.RouteSnapshot, 0, e.routes.Len())
	for _, r := range e.routes.List() {
		s := r.Snapshot()
		s.Current = r.RouteID == e.routes.CurrentID()
		out = append(out, s)
	}
	return out
}

// Summary renders the text summary of the current route.
func (e *Engine) Summary(opts SummaryOptions) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.routes.Current()
	if !ok {
		return "", fmt.Errorf("summary: %w", domain.ErrNoCurrentRoute)
	}
	return e.reports.Summary(r, opts), nil
}

// ExportCurrent writes the current route workbook to w and returns its
// suggested filename.
func (e *Engine) ExportCurrent(w io.Writer) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.exporter == nil {
		return "", fmt.Errorf("export current: %w", domain.ErrExportUnavailable)
	}
	r, ok := e.routes.Current()
	if !ok {
		return "", fmt.Errorf("export current: %w", domain.ErrNoCurrentRoute)
	}

	if err := e.exporter.WriteWorkbook(w, ExportSheetName, ExportHeader, e.reports.Rows(r)); err != nil {
		e.log.Warn("export failed", zap.String("route_id", r.RouteID), zap.Error(err))
		return "", fmt.Errorf("export current: route %s: %w", r.RouteID, err)
	}
	return ExportFilename(r.RouteID), nil
}

// ExportAll writes one workbook covering every route.
func (e *Engine) ExportAll(w io.Writer) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.exporter == nil {
		return "", fmt.Errorf("export all: %w", domain.ErrExportUnavailable)
	}

	rows := e.reports.AllRows(e.routes.Ordered())
	if err := e.exporter.WriteWorkbook(w, ExportSheetName, AllRoutesHeader, rows); err != nil {
		e.log.Warn("export failed", zap.Int("routes", e.routes.Len()), zap.Error(err))
		return "", fmt.Errorf("export all: %w", err)
	}
	return AllRoutesFilename, nil
}

// Closing renders the daily closing report for in.RouteIDs. Unknown ids are
// skipped.
func (e *Engine) Closing(in ClosingInput) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	routes := make([]*domain.Route, 0, len(in.RouteIDs))
	for _, id := range in.RouteIDs {
		if r, ok := e.routes.Get(strings.TrimSpace(id)); ok {
			routes = append(routes, r)
		}
	}
	return e.reports.Closing(routes, in)
}

// persist writes the collection to the store. Failures are logged and never
// reach the caller. Cancelling ctx does not abort the write.
func (e *Engine) persist(ctx context.Context) {
	if e.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	data, err := domain.MarshalRoutes(e.routes)
	if err != nil {
		e.log.Warn("persist routes: marshal failed", zap.Error(err))
		return
	}
	if err := e.store.Save(ctx, data); err != nil {
		e.log.Warn("persist routes: save failed", zap.Int("routes", e.routes.Len()), zap.Error(err))
	}
}
