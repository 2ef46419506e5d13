package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/webmin/internal/artifact"
	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/report"
)

// stringPtr returns a pointer to the given string.
func stringPtr(s string) *string {
	return &s
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestReport creates a finished report with two documents.
func newTestReport(t *testing.T, started time.Time) *report.Report {
	t.Helper()
	r, err := report.New(started)
	if err != nil {
		t.Fatalf("report.New failed: %v", err)
	}
	r.Seal(&report.Document{
		Document: "index.html",
		Fragments: []report.Metrics{
			{Source: "a.css", Destination: stringPtr("css-1.css"), Minifier: "YUI", OriginalLength: 100, MinifiedLength: 60, Elapsed: 2 * time.Millisecond},
			{Source: "Embedded JavaScript", Minifier: "CLOSURE", OriginalLength: 40, MinifiedLength: 30, Elapsed: time.Millisecond},
		},
	})
	r.Seal(&report.Document{Document: "empty.html", Fragments: []report.Metrics{}})
	r.Finish(started.Add(time.Second), []*artifact.Artifact{{Name: "css-1.css", Sources: []string{"/site/a.css"}}})
	return r
}

func TestInsertRunAndGetRunReport(t *testing.T) {
	db := openTestDB(t)
	r := newTestReport(t, time.Unix(1700000000, 0))

	if err := InsertRun(context.Background(), db, r, "webapp", "out"); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	got, err := GetRunReport(db, r.RunID)
	if err != nil {
		t.Fatalf("GetRunReport failed: %v", err)
	}

	if got.RunID != r.RunID || got.StartedAt != r.StartedAt || got.FinishedAt != r.FinishedAt {
		t.Errorf("run header = %+v, want %+v", got, r)
	}
	if got.SchemaVersion != report.SchemaVersion {
		t.Errorf("SchemaVersion = %q", got.SchemaVersion)
	}
	if len(got.Documents) != 2 {
		t.Fatalf("Documents = %d, want 2", len(got.Documents))
	}
	if got.Documents[1].Document != "empty.html" || len(got.Documents[1].Fragments) != 0 {
		t.Errorf("empty document not restored: %+v", got.Documents[1])
	}

	frags := got.Documents[0].Fragments
	if len(frags) != 2 {
		t.Fatalf("Fragments = %d, want 2", len(frags))
	}
	if frags[0].Destination == nil || *frags[0].Destination != "css-1.css" {
		t.Errorf("Destination = %v, want css-1.css", frags[0].Destination)
	}
	if frags[1].Destination != nil {
		t.Errorf("Destination = %q, want nil", *frags[1].Destination)
	}
	if frags[0].Elapsed != 2*time.Millisecond {
		t.Errorf("Elapsed = %v", frags[0].Elapsed)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].Sources[0] != "/site/a.css" {
		t.Errorf("Artifacts = %+v", got.Artifacts)
	}
}

func TestInsertRun_Duplicate(t *testing.T) {
	db := openTestDB(t)
	r := newTestReport(t, time.Now())

	if err := InsertRun(context.Background(), db, r, "a", "b"); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	err := InsertRun(context.Background(), db, r, "a", "b")
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("second InsertRun error = %v, want INVALID_REQUEST", err)
	}
}

func TestGetRunReport_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetRunReport(db, "01NOPE")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("GetRunReport error = %v, want NOT_FOUND", err)
	}
}

func TestListRuns_OrderAndPagination(t *testing.T) {
	db := openTestDB(t)
	base := time.Unix(1700000000, 0)

	var ids []string
	for i := 0; i < 3; i++ {
		r := newTestReport(t, base.Add(time.Duration(i)*time.Hour))
		if err := InsertRun(context.Background(), db, r, "webapp", "out"); err != nil {
			t.Fatalf("InsertRun failed: %v", err)
		}
		ids = append(ids, r.RunID)
	}

	runs, total, err := ListRuns(db, 2, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("runs = %+v, want newest first", runs)
	}
	if runs[0].Totals.Fragments != 2 || runs[0].Totals.Saved() != 50 {
		t.Errorf("Totals = %+v", runs[0].Totals)
	}

	runs, _, err = ListRuns(db, 2, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != ids[0] {
		t.Errorf("second page = %+v", runs)
	}
}

func TestListRuns_Empty(t *testing.T) {
	db := openTestDB(t)

	runs, total, err := ListRuns(db, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 0 || len(runs) != 0 {
		t.Fatalf("ListRuns = %v, %d; want empty", runs, total)
	}
}

func TestDeleteRunsBefore(t *testing.T) {
	db := openTestDB(t)
	old := newTestReport(t, time.Unix(1000, 0))
	recent := newTestReport(t, time.Unix(5000, 0))

	for _, r := range []*report.Report{old, recent} {
		if err := InsertRun(context.Background(), db, r, "a", "b"); err != nil {
			t.Fatalf("InsertRun failed: %v", err)
		}
	}

	n, err := DeleteRunsBefore(context.Background(), db, 2000)
	if err != nil {
		t.Fatalf("DeleteRunsBefore failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}

	if _, err := GetRunReport(db, old.RunID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("old run still present: %v", err)
	}
	if _, err := GetRunReport(db, recent.RunID); err != nil {
		t.Errorf("recent run missing: %v", err)
	}

	var orphans int
	if err := db.QueryRow(`SELECT COUNT(*) FROM fragments WHERE run_id = ?`, old.RunID).Scan(&orphans); err != nil {
		t.Fatalf("count fragments: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphan fragments = %d, want 0", orphans)
	}
}
