package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	// Use temp directory for test isolation
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// Verify database file was created
	dbPath := filepath.Join(tmpDir, "webmin.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}

	// Verify exports directory was created
	exportsDir := filepath.Join(tmpDir, "exports")
	info, err := os.Stat(exportsDir)
	if os.IsNotExist(err) {
		t.Errorf("exports directory not created at %s", exportsDir)
	} else if !info.IsDir() {
		t.Errorf("exports path is not a directory")
	}

	// Verify WAL mode is active
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	// Verify schema was created
	for _, table := range []string{"runs", "documents", "fragments"} {
		var tableName string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
		if err != nil {
			t.Fatalf("%s table not found: %v", table, err)
		}
	}

	// Verify foreign keys are enforced
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys;").Scan(&fk); err != nil {
		t.Fatalf("failed to query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestInit_CreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	baseDir := filepath.Join(tmpDir, "nested", "path", ".webmin")

	db, err := Init(baseDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// Verify nested directories were created
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Errorf("base directory not created at %s", baseDir)
	}
}

func TestUserVersion(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// After Init, version should be CurrentSchemaVersion (migration ran)
	version, err := GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after Init = %d, want %d", version, CurrentSchemaVersion)
	}

	// Test setting a higher version
	if err := SetUserVersion(db, 99); err != nil {
		t.Fatalf("SetUserVersion() error = %v", err)
	}

	// Verify version was set
	version, err = GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != 99 {
		t.Errorf("user_version = %d, want 99", version)
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	// First Init
	db1, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	db1.Close()

	// Second Init on same DB should succeed (migrations skip if already applied)
	db2, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer db2.Close()

	// Version should still be CurrentSchemaVersion
	version, err := GetUserVersion(db2)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after second Init = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestInit_SchemaIndexes(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// Verify all indexes were created
	indexes := []string{
		"idx_runs_started",
		"idx_fragments_destination",
	}

	for _, idx := range indexes {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		if err != nil {
			t.Errorf("index %s not found: %v", idx, err)
		}
	}
}

func TestSchema_FragmentsRequireDocument(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO runs (id, schema_version, source_dir, target_dir, started_at, finished_at,
		documents, fragments, original_length, minified_length, elapsed_ns)
		VALUES ('r1', '1', 'webapp', 'out', 1, 2, 1, 1, 10, 5, 100)`); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	// No documents row for (r1, 0) yet
	_, err = db.Exec(`INSERT INTO fragments (run_id, document_seq, seq, source, minifier, original_length, minified_length, elapsed_ns)
		VALUES ('r1', 0, 0, 'a.css', 'YUI', 10, 5, 100)`)
	if err == nil {
		t.Fatal("expected foreign key violation for fragment without document")
	}

	if _, err := db.Exec(`INSERT INTO documents (run_id, seq, document) VALUES ('r1', 0, 'index.html')`); err != nil {
		t.Fatalf("insert document: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO fragments (run_id, document_seq, seq, source, destination, minifier, original_length, minified_length, elapsed_ns)
		VALUES ('r1', 0, 0, 'a.css', 'css-1.css', 'YUI', 10, 5, 100)`); err != nil {
		t.Fatalf("insert fragment: %v", err)
	}

	// Deleting the run cascades through documents to fragments
	if _, err := db.Exec(`DELETE FROM runs WHERE id = 'r1'`); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM fragments`).Scan(&n); err != nil {
		t.Fatalf("count fragments: %v", err)
	}
	if n != 0 {
		t.Errorf("fragments left after cascade = %d, want 0", n)
	}
}
