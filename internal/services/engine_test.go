package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"route-audit-service/internal/domain"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/unicode"
)

type memoryStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
	loadErr error
	// requireLive fails saves made under a cancelled context.
	requireLive bool
	lastErr     error
}

func (m *memoryStore) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.requireLive && ctx.Err() != nil {
		m.lastErr = ctx.Err()
		return m.lastErr
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, m.loadErr
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerter) Alert(_ context.Context, id string, c domain.Classification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, id+":"+string(c))
}

type recordingExporter struct {
	sheet  string
	header []string
	rows   [][]string
	err    error
}

func (x *recordingExporter) WriteWorkbook(w io.Writer, sheet string, header []string, rows [][]string) error {
	if x.err != nil {
		return x.err
	}
	x.sheet, x.header, x.rows = sheet, header, rows
	_, err := io.WriteString(w, "xlsx")
	return err
}

type engineFixture struct {
	engine   *Engine
	store    *memoryStore
	alerter  *recordingAlerter
	exporter *recordingExporter
}

func newEngineFixture(t *testing.T) engineFixture {
	t.Helper()
	f := engineFixture{
		store:    &memoryStore{},
		alerter:  &recordingAlerter{},
		exporter: &recordingExporter{},
	}
	f.engine = NewEngine(EngineOptions{
		Store:    f.store,
		Alerter:  f.alerter,
		Exporter: f.exporter,
		Clock:    clockz.NewFakeClock(),
		Logger:   zaptest.NewLogger(t),
	})
	return f
}

func (f engineFixture) importFixture(t *testing.T) {
	t.Helper()
	_, err := f.engine.ImportDocument(context.Background(), readFixture(t, "multi_route.html"))
	require.NoError(t, err)
}

func TestEngineImportSelectsFirstRoute(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	res, err := f.engine.ImportDocument(ctx, readFixture(t, "multi_route.html"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	cur, ok := f.engine.Current()
	require.True(t, ok)
	assert.Equal(t, "1001", cur.RouteID)
	assert.True(t, cur.Current)
	assert.Equal(t, 1, f.store.saves)

	require.NoError(t, f.engine.SelectRoute(ctx, "1002"))
	_, err = f.engine.ImportDocument(ctx, readFixture(t, "escaped_route.html"))
	require.NoError(t, err)
	cur, _ = f.engine.Current()
	assert.Equal(t, "1002", cur.RouteID, "import keeps an existing selection")
}

func TestEngineImportNothing(t *testing.T) {
	f := newEngineFixture(t)

	res, err := f.engine.ImportDocument(context.Background(), "<html>no routes here</html>")
	require.ErrorIs(t, err, domain.ErrNothingImported)
	assert.Zero(t, res.Imported)
	assert.Empty(t, f.engine.Routes())
	assert.Zero(t, f.store.saves)
}

func TestEngineSubmitScan(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.importFixture(t)

	res := f.engine.SubmitScan(ctx, "  41111111111\n", domain.ProvenanceScanner)
	assert.Equal(t, domain.NewMatch, res.Classification)
	assert.False(t, res.Alert)
	assert.Equal(t, "1001", res.RouteID)
	assert.Equal(t, 1, res.Confirmed)
	assert.Equal(t, 1, res.Pending)

	res = f.engine.SubmitScan(ctx, "41111111111", domain.ProvenanceManual)
	assert.Equal(t, domain.Duplicate, res.Classification)
	assert.True(t, res.Alert)
	assert.Equal(t, 1, res.Duplicates)

	res = f.engine.SubmitScan(ctx, "49999999999", domain.ProvenanceScanner)
	assert.Equal(t, domain.OutOfRoute, res.Classification)
	assert.True(t, res.Alert)

	assert.Equal(t, []string{"41111111111:DUPLICATE", "49999999999:OUT_OF_ROUTE"}, f.alerter.alerts)

	cur, _ := f.engine.Current()
	assert.Equal(t, []string{"41111111111"}, cur.Confirmed)
	assert.Equal(t, []string{"44444444444"}, cur.Pending)
	assert.Equal(t, []string{"49999999999"}, cur.OutOfRoute)
	assert.Equal(t, domain.ProvenanceManual, cur.LastSeenAt["41111111111"].Provenance)
	assert.Equal(t, 33, cur.ProgressPercent)
}

func TestEngineIgnoredScans(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	res := f.engine.SubmitScan(ctx, "41111111111", domain.ProvenanceScanner)
	assert.True(t, res.Ignored)
	assert.Equal(t, IgnoredNoCurrentRoute, res.Reason)

	f.importFixture(t)
	saves := f.store.saves

	res = f.engine.SubmitScan(ctx, "abc-123", domain.ProvenanceManual)
	assert.True(t, res.Ignored)
	assert.Equal(t, IgnoredUnrecognized, res.Reason)
	assert.Equal(t, saves, f.store.saves, "ignored scans do not persist")
	assert.Empty(t, f.alerter.alerts)
}

func TestEngineReconcileCode(t *testing.T) {
	f := newEngineFixture(t)
	f.importFixture(t)

	res := f.engine.ReconcileCode(context.Background(), "44444444444", domain.ProvenanceManual)
	assert.Equal(t, domain.NewMatch, res.Classification)

	res = f.engine.ReconcileCode(context.Background(), " ", domain.ProvenanceManual)
	assert.True(t, res.Ignored)
}

func TestEngineBulkSuppressesAlerts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.importFixture(t)

	csv := "41111111111\n\n41111111111\r\n49999999999\ngarbage\n  44444444444 ;x\n"
	res, err := f.engine.IngestCSV(ctx, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, BulkResult{
		RouteID:    "1001",
		Lines:      5,
		Accepted:   4,
		Ignored:    1,
		NewMatches: 2,
		Duplicates: 1,
		OutOfRoute: 1,
	}, res)
	assert.Empty(t, f.alerter.alerts)

	cur, _ := f.engine.Current()
	assert.Equal(t, 1, cur.Duplicates["41111111111"])
	assert.Equal(t, domain.ProvenanceBulkImport, cur.LastSeenAt["49999999999"].Provenance)
}

func TestEngineBulkDecodesUTF16(t *testing.T) {
	f := newEngineFixture(t)
	f.importFixture(t)

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	payload, err := enc.String("41111111111\r\n44444444444\r\n")
	require.NoError(t, err)

	res, err := f.engine.IngestCSV(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewMatches)
}

func TestEngineBulkLongLine(t *testing.T) {
	f := newEngineFixture(t)
	f.importFixture(t)

	payload := strings.Repeat("x", 200<<10) + "\n41111111111\n"
	res, err := f.engine.IngestCSV(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, 1, res.Ignored)
	assert.Equal(t, 1, res.NewMatches)
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestEngineBulkReadErrorKeepsCompleteLines(t *testing.T) {
	f := newEngineFixture(t)
	f.importFixture(t)

	boom := errors.New("connection reset")
	res, err := f.engine.IngestCSV(context.Background(), &failingReader{data: "41111111111\n4444444", err: boom})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Lines)
	assert.Equal(t, 1, res.NewMatches)
	assert.Equal(t, 1, f.store.saves)
}

func TestEnginePersistsAfterCallerCancels(t *testing.T) {
	f := newEngineFixture(t)
	f.importFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.store.requireLive = true

	res := f.engine.SubmitScan(ctx, "41111111111", domain.ProvenanceScanner)
	require.Equal(t, domain.NewMatch, res.Classification)
	require.NoError(t, f.store.lastErr)

	restored := NewEngine(EngineOptions{Store: f.store})
	restored.Restore(context.Background())
	require.NoError(t, restored.SelectRoute(context.Background(), "1001"))
	cur, _ := restored.Current()
	assert.Contains(t, cur.Confirmed, "41111111111")
}

func TestEngineBulkRequiresRoute(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.engine.IngestCSV(context.Background(), strings.NewReader("41111111111\n"))
	assert.ErrorIs(t, err, domain.ErrNoCurrentRoute)
}

func TestEngineAddManualIDs(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddManualIDs(ctx, "41000000001")
	require.ErrorIs(t, err, domain.ErrNoCurrentRoute)

	f.importFixture(t)
	f.engine.SubmitScan(ctx, "41111111111", domain.ProvenanceScanner)

	n, err := f.engine.AddManualIDs(ctx, "41000000001, 41000000002;41000000003\n41111111111 44444444444")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "confirmed and already pending ids are not added")

	cur, _ := f.engine.Current()
	assert.Equal(t, []string{"41000000001", "41000000002", "41000000003", "44444444444"}, cur.Pending)
	assert.Equal(t, []string{"41111111111"}, cur.Confirmed)

	_, err = f.engine.AddManualIDs(ctx, " ,; ")
	assert.ErrorIs(t, err, domain.ErrNoIdentifiers)
}

func TestEngineRouteLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.importFixture(t)

	err := f.engine.SelectRoute(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrRouteNotFound)
	var nf *domain.RouteNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.RouteID)

	cur, _ := f.engine.Current()
	assert.Equal(t, "1001", cur.RouteID, "failed select keeps the current route")

	routes := f.engine.Routes()
	require.Len(t, routes, 2)
	assert.True(t, routes[0].Current)
	assert.False(t, routes[1].Current)

	require.NoError(t, f.engine.DeleteRoute(ctx, "1001"))
	_, ok := f.engine.Current()
	assert.False(t, ok, "deleting the current route clears the selection")
	assert.ErrorIs(t, f.engine.DeleteRoute(ctx, "1001"), domain.ErrRouteNotFound)

	f.engine.ClearRoutes(ctx)
	assert.Empty(t, f.engine.Routes())
}

func TestEngineRestore(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.importFixture(t)
	f.engine.SubmitScan(ctx, "41111111111", domain.ProvenanceScanner)
	before := f.engine.Routes()

	restored := NewEngine(EngineOptions{Store: f.store, Logger: zaptest.NewLogger(t)})
	restored.Restore(ctx)

	after := restored.Routes()
	require.Len(t, after, len(before))
	for i := range before {
		before[i].Current = false
		assert.Equal(t, before[i].Pending, after[i].Pending)
		assert.Equal(t, before[i].Confirmed, after[i].Confirmed)
		assert.Equal(t, before[i].Cluster, after[i].Cluster)
		assert.Equal(t, before[i].OnRoadHours, after[i].OnRoadHours)
	}
	_, ok := restored.Current()
	assert.False(t, ok, "the selection is not persisted")

	t.Run("corrupt snapshot starts empty", func(t *testing.T) {
		e := NewEngine(EngineOptions{Store: &memoryStore{data: []byte("{not json")}})
		e.Restore(ctx)
		assert.Empty(t, e.Routes())
	})

	t.Run("load failure starts empty", func(t *testing.T) {
		e := NewEngine(EngineOptions{Store: &memoryStore{loadErr: errors.New("disk gone")}})
		e.Restore(ctx)
		assert.Empty(t, e.Routes())
	})
}

func TestEnginePersistFailureIsSwallowed(t *testing.T) {
	f := newEngineFixture(t)
	f.store.saveErr = errors.New("read-only")

	_, err := f.engine.ImportDocument(context.Background(), readFixture(t, "multi_route.html"))
	require.NoError(t, err)

	res := f.engine.SubmitScan(context.Background(), "41111111111", domain.ProvenanceScanner)
	assert.Equal(t, domain.NewMatch, res.Classification)
	assert.Equal(t, 2, f.store.saves)
}

func TestEngineReports(t *testing.T) {
	ctx := context.Background()

	t.Run("need a current route", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.Summary(SummaryOptions{})
		assert.ErrorIs(t, err, domain.ErrNoCurrentRoute)
		_, err = f.engine.ExportCurrent(io.Discard)
		assert.ErrorIs(t, err, domain.ErrNoCurrentRoute)
	})

	t.Run("summary and exports", func(t *testing.T) {
		f := newEngineFixture(t)
		f.importFixture(t)
		f.engine.SubmitScan(ctx, "41111111111", domain.ProvenanceScanner)

		text, err := f.engine.Summary(SummaryOptions{IncludeOutOfRoute: true})
		require.NoError(t, err)
		assert.Contains(t, text, "RTS - Route: 1001\n")

		var buf bytes.Buffer
		name, err := f.engine.ExportCurrent(&buf)
		require.NoError(t, err)
		assert.Equal(t, "reconciliation_route_1001.xlsx", name)
		assert.Equal(t, ExportHeader, f.exporter.header)
		assert.Len(t, f.exporter.rows, 2)
		assert.Equal(t, "xlsx", buf.String())

		name, err = f.engine.ExportAll(io.Discard)
		require.NoError(t, err)
		assert.Equal(t, AllRoutesFilename, name)
		assert.Equal(t, AllRoutesHeader, f.exporter.header)
		assert.Len(t, f.exporter.rows, 4)

		f.exporter.err = errors.New("disk full")
		_, err = f.engine.ExportAll(io.Discard)
		assert.Error(t, err)
	})

	t.Run("no exporter", func(t *testing.T) {
		e := NewEngine(EngineOptions{})
		_, err := e.ExportAll(io.Discard)
		assert.ErrorIs(t, err, domain.ErrExportUnavailable)
		_, err = e.ExportCurrent(io.Discard)
		assert.ErrorIs(t, err, domain.ErrExportUnavailable)
	})

	t.Run("closing skips unknown routes", func(t *testing.T) {
		f := newEngineFixture(t)
		f.importFixture(t)

		text := f.engine.Closing(ClosingInput{Base: "SBA1", RouteIDs: []string{"1002", "missing", "1001"}})
		assert.Contains(t, text, "Total failures: 4")
		assert.Less(t, strings.Index(text, "Route K11_PM2"), strings.Index(text, "Route J20_AM7"))
		assert.NotContains(t, text, "missing")
	})
}
