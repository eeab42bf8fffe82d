package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipocheck/internal/check"
)

var fixedTime = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func sampleResults() []check.Result {
	return []check.Result{
		{BOID: "1301010000111111", Label: "self", Status: check.StatusAllotted, ShareQty: 10, CompletedAt: fixedTime},
		{BOID: "1301010000222222", Status: check.StatusNotAllotted, CompletedAt: fixedTime.Add(5 * time.Second)},
		{BOID: "1301010000333333", Status: check.StatusError, ErrorDetail: "Timeout - no response", CompletedAt: fixedTime.Add(10 * time.Second)},
	}
}

func TestWriteCSV(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteCSV(&b, sampleResults()))

	want := "BOID,Status,Shares,Timestamp\n" +
		"1301010000111111,allotted,10,2026-09-01T12:00:00Z\n" +
		"1301010000222222,not-allotted,0,2026-09-01T12:00:05Z\n" +
		"1301010000333333,error,0,2026-09-01T12:00:10Z\n"
	assert.Equal(t, want, b.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteCSV(&b, nil))
	assert.Equal(t, "BOID,Status,Shares,Timestamp\n", b.String())
}

func TestMarkdown(t *testing.T) {
	rep := &check.Report{
		CompanyName: "Himalayan Hydropower",
		StartedAt:   fixedTime,
		FinishedAt:  fixedTime.Add(42 * time.Second),
		Results:     sampleResults(),
	}
	for _, r := range rep.Results {
		rep.Summary.Add(r)
	}

	md := Markdown(rep)

	assert.Contains(t, md, "# Allotment Check — Himalayan Hydropower")
	assert.Contains(t, md, "**3 checked** · 1 allotted (10 shares) · 1 not allotted · 1 errors")
	assert.Contains(t, md, "1301010000111111 (self)")
	assert.Contains(t, md, "Timeout - no response")
	assert.Contains(t, md, "took 42s")
}

func TestMarkdown_EscapesTableDetail(t *testing.T) {
	rep := &check.Report{Results: []check.Result{
		{BOID: "1301010000111111", Status: check.StatusError, ErrorDetail: "bad | pipe"},
	}}
	md := Markdown(rep)
	assert.Contains(t, md, `bad \| pipe`)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir() + "/history.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	rep := &check.Report{
		CompanyName: "Himalayan Hydropower",
		StartedAt:   fixedTime,
		FinishedAt:  fixedTime.Add(time.Minute),
		Results:     sampleResults(),
	}
	for _, r := range rep.Results {
		rep.Summary.Add(r)
	}

	id, err := store.SaveRun(ctx, rep)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "Himalayan Hydropower", runs[0].Company)
	assert.Equal(t, rep.Summary, runs[0].Summary)
	assert.True(t, runs[0].StartedAt.Equal(fixedTime))

	got, err := store.Results(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, len(rep.Results))
	for i, r := range rep.Results {
		assert.Equal(t, r.BOID, got[i].BOID)
		assert.Equal(t, r.Status, got[i].Status)
		assert.Equal(t, r.ShareQty, got[i].ShareQty)
		assert.Equal(t, r.ErrorDetail, got[i].ErrorDetail)
		assert.True(t, got[i].CompletedAt.Equal(r.CompletedAt))
	}
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	old := &check.Report{CompanyName: "old", StartedAt: fixedTime, FinishedAt: fixedTime}
	recent := &check.Report{CompanyName: "recent", StartedAt: fixedTime.Add(time.Hour), FinishedAt: fixedTime.Add(time.Hour)}

	_, err := store.SaveRun(ctx, old)
	require.NoError(t, err)
	_, err = store.SaveRun(ctx, recent)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "recent", runs[0].Company)
}

func TestStore_ResultsUnknownRun(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Results(t.Context(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}
