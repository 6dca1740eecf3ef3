package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"route-audit-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	dbPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("ALERT_BELL", "false")
	return &cli{t: t, dbPath: filepath.Join(t.TempDir(), "audit.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	full := append([]string{"--store", "sqlite", "--db", c.dbPath}, args...)
	err := a.Execute(context.Background(), full)
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func fixturePath() string {
	return filepath.Join("..", "..", "internal", "services", "testdata", "multi_route.html")
}

func TestImportAndScanAcrossInvocations(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("import", fixturePath())
	assert.Contains(t, out, "Imported 2 of 3 routes: 1001, 1002")
	assert.Contains(t, out, "Skipped: 1003")

	out = c.mustRun("scan", "--route", "1001", "41111111111", "49999999999", "nonsense")
	assert.Contains(t, out, "41111111111\tNEW_MATCH")
	assert.Contains(t, out, "49999999999\tOUT_OF_ROUTE")
	assert.Contains(t, out, "nonsense\tignored: unrecognized code")

	out = c.mustRun("routes")
	assert.Contains(t, out, "ROUTE 1001 • CLUSTER J20_AM7 • XPT SBA1")
	assert.Contains(t, out, "out of route 1")

	out = c.mustRun("summary", "--route", "1001")
	assert.Contains(t, out, "41111111111")
	assert.Contains(t, out, "Out of route:\n49999999999")

	out = c.mustRun("summary", "--route", "1001", "--no-out-of-route")
	assert.NotContains(t, out, "Out of route:")
}

func TestIngestAndManual(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", fixturePath())

	out := c.mustRun("manual", "--route", "1002", "41000000001,41000000002")
	assert.Contains(t, out, "Added 2 identifiers.")

	csv := filepath.Join(t.TempDir(), "scans.csv")
	require.NoError(t, os.WriteFile(csv, []byte("41000000001\n41000000001\n\n"), 0o644))
	out = c.mustRun("ingest", "--route", "1002", csv)
	assert.Contains(t, out, "Route 1002: 2 lines, 1 new, 1 duplicates")
}

func TestExport(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", fixturePath())
	dir := filepath.Join(t.TempDir(), "out")

	out := c.mustRun("export", "--route", "1001", "-o", dir)
	assert.Contains(t, out, "reconciliation_route_1001.xlsx")
	assert.FileExists(t, filepath.Join(dir, "reconciliation_route_1001.xlsx"))

	c.mustRun("export", "--all", "-o", dir)
	assert.FileExists(t, filepath.Join(dir, "reconciliation_all_routes.xlsx"))

	_, err := c.run("export", "-o", dir)
	assert.Error(t, err)
}

func TestClosing(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", fixturePath())

	out := c.mustRun("closing", "--routes", "1001,1002", "--date", "2026-03-02", "--base", "SBA1")
	assert.Contains(t, out, "02/03/2026 - Closing date")
	assert.Contains(t, out, "Total failures: 4")
}

func TestRouteErrors(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", fixturePath())

	_, err := c.run("summary", "--route", "9999")
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)

	_, err = c.run("scan", "41111111111")
	assert.Error(t, err)

	c.mustRun("delete", "1002")
	_, err = c.run("delete", "1002")
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)

	assert.Contains(t, c.mustRun("clear"), "All routes deleted.")
	assert.Contains(t, c.mustRun("routes"), "No routes stored")
}

func TestInitDB(t *testing.T) {
	c := newCLI(t)
	assert.Contains(t, c.mustRun("init-db"), "Store ready (sqlite).")

	_, err := c.run("init-db", "--seed", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = c.run("import", filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}
