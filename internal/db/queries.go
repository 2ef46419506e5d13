package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/webmin/internal/artifact"
	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/report"
)

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID         string        `json:"id"`
	SourceDir  string        `json:"source_dir"`
	TargetDir  string        `json:"target_dir"`
	StartedAt  int64         `json:"started_at"`
	FinishedAt int64         `json:"finished_at"`
	Totals     report.Totals `json:"totals"`
}

// InsertRun stores a finished report with its documents and fragments.
func InsertRun(ctx context.Context, db *sql.DB, r *report.Report, sourceDir, targetDir string) error {
	var artifactsJSON sql.NullString
	if len(r.Artifacts) > 0 {
		data, err := json.Marshal(r.Artifacts)
		if err != nil {
			return errors.NewInternal(err)
		}
		artifactsJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	t := r.Totals()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, schema_version, source_dir, target_dir, started_at, finished_at,
			documents, fragments, original_length, minified_length, elapsed_ns,
			artifacts_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.SchemaVersion, sourceDir, targetDir, r.StartedAt, r.FinishedAt,
		t.Documents, t.Fragments, t.OriginalLength, t.MinifiedLength, int64(t.Elapsed),
		artifactsJSON,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewInvalidRequest("run already stored: " + r.RunID)
		}
		return errors.NewInternal(err)
	}

	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (run_id, seq, document) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer docStmt.Close()

	fragStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (
			run_id, document_seq, seq, source, destination, minifier,
			original_length, minified_length, elapsed_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer fragStmt.Close()

	for i, d := range r.Documents {
		if _, err := docStmt.ExecContext(ctx, r.RunID, i, d.Document); err != nil {
			return errors.NewInternal(err)
		}
		for j, m := range d.Fragments {
			_, err := fragStmt.ExecContext(ctx,
				r.RunID, i, j, m.Source, toNullString(m.Destination), m.Minifier,
				m.OriginalLength, m.MinifiedLength, int64(m.Elapsed),
			)
			if err != nil {
				return errors.NewInternal(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListRuns returns run summaries, newest first, and the total number of runs.
func ListRuns(db *sql.DB, limit, offset int) ([]RunSummary, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT id, source_dir, target_dir, started_at, finished_at,
			documents, fragments, original_length, minified_length, elapsed_ns
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var elapsed int64
		if err := rows.Scan(
			&s.ID, &s.SourceDir, &s.TargetDir, &s.StartedAt, &s.FinishedAt,
			&s.Totals.Documents, &s.Totals.Fragments,
			&s.Totals.OriginalLength, &s.Totals.MinifiedLength, &elapsed,
		); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s.Totals.Elapsed = time.Duration(elapsed)
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return runs, total, nil
}

// GetRunReport rebuilds the report of a stored run.
func GetRunReport(db *sql.DB, id string) (*report.Report, error) {
	r := &report.Report{RunID: id, Documents: []*report.Document{}}
	var artifactsJSON sql.NullString
	err := db.QueryRow(`
		SELECT schema_version, started_at, finished_at, artifacts_json
		FROM runs WHERE id = ?
	`, id).Scan(&r.SchemaVersion, &r.StartedAt, &r.FinishedAt, &artifactsJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if artifactsJSON.Valid {
		var artifacts []artifact.Artifact
		if err := json.Unmarshal([]byte(artifactsJSON.String), &artifacts); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Artifacts = artifacts
	}

	docRows, err := db.Query(`SELECT document FROM documents WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	for docRows.Next() {
		d := &report.Document{Fragments: []report.Metrics{}}
		if err := docRows.Scan(&d.Document); err != nil {
			docRows.Close()
			return nil, errors.NewInternal(err)
		}
		r.Documents = append(r.Documents, d)
	}
	docRows.Close()
	if err := docRows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	fragRows, err := db.Query(`
		SELECT document_seq, source, destination, minifier,
			original_length, minified_length, elapsed_ns
		FROM fragments
		WHERE run_id = ?
		ORDER BY document_seq, seq
	`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer fragRows.Close()

	for fragRows.Next() {
		var (
			docSeq      int
			m           report.Metrics
			destination sql.NullString
			elapsed     int64
		)
		if err := fragRows.Scan(&docSeq, &m.Source, &destination, &m.Minifier,
			&m.OriginalLength, &m.MinifiedLength, &elapsed); err != nil {
			return nil, errors.NewInternal(err)
		}
		if docSeq < 0 || docSeq >= len(r.Documents) {
			return nil, errors.NewInternal(fmt.Errorf("fragment references unknown document %d", docSeq))
		}
		m.Destination = fromNullString(destination)
		m.Elapsed = time.Duration(elapsed)
		r.Documents[docSeq].Add(m)
	}
	if err := fragRows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return r, nil
}

// DeleteRunsBefore permanently deletes runs started before the given unix time.
// Returns the number of runs deleted.
func DeleteRunsBefore(ctx context.Context, db *sql.DB, before int64) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM runs WHERE started_at < ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE run_id IN (`+stale+`)`, before); err != nil {
		return 0, errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE run_id IN (`+stale+`)`, before); err != nil {
		return 0, errors.NewInternal(err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, before)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(affected), nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
