package ops

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/webmin/internal/db"
	"github.com/hpungsan/webmin/internal/report"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// insertTestRun stores a one-document run started at the given time.
func insertTestRun(t *testing.T, database *sql.DB, started time.Time) *report.Report {
	t.Helper()
	r, err := report.New(started)
	if err != nil {
		t.Fatalf("report.New failed: %v", err)
	}
	dest := "css-1.css"
	r.Seal(&report.Document{
		Document: "index.html",
		Fragments: []report.Metrics{
			{Source: "a.css", Destination: &dest, Minifier: "YUI", OriginalLength: 80, MinifiedLength: 50},
		},
	})
	r.Finish(started.Add(time.Second))
	if err := db.InsertRun(context.Background(), database, r, "webapp", "out"); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	return r
}

// setHome points the home directory at dir for the duration of the test.
func setHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
}
