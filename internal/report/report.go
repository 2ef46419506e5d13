// Package report records which sources fed which minified artifacts, with
// size and timing metrics, for every processed document.
package report

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/webmin/internal/artifact"
)

// SchemaVersion is written into serialized reports.
const SchemaVersion = "1.0"

// Metrics describes one minified fragment. Immutable once recorded.
type Metrics struct {
	Source         string        `json:"source"`
	Destination    *string       `json:"destination,omitempty"`
	Minifier       string        `json:"minifier"`
	OriginalLength int           `json:"original_length"`
	MinifiedLength int           `json:"minified_length"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Document summarizes the fragments of one processed document in encounter order.
type Document struct {
	Document  string    `json:"document"`
	Fragments []Metrics `json:"fragments"`
}

// Add appends a fragment record.
func (d *Document) Add(m Metrics) {
	d.Fragments = append(d.Fragments, m)
}

// Report is the build-wide minification report.
type Report struct {
	SchemaVersion string              `json:"schema_version"`
	RunID         string              `json:"run_id"`
	StartedAt     int64               `json:"started_at"`
	FinishedAt    int64               `json:"finished_at,omitempty"`
	Documents     []*Document         `json:"documents"`
	Artifacts     []artifact.Artifact `json:"artifacts,omitempty"`
}

// New creates an empty report stamped with a fresh run ID.
func New(now time.Time) (*Report, error) {
	id, err := NewRunID(now)
	if err != nil {
		return nil, err
	}
	return &Report{
		SchemaVersion: SchemaVersion,
		RunID:         id,
		StartedAt:     now.Unix(),
		Documents:     []*Document{},
	}, nil
}

// NewRunID generates a ULID for the given time.
func NewRunID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Seal appends a finished document summary.
func (r *Report) Seal(d *Document) {
	r.Documents = append(r.Documents, d)
}

// Finish stamps the finish time and records the run's sealed artifacts.
func (r *Report) Finish(now time.Time, artifacts ...[]*artifact.Artifact) {
	r.FinishedAt = now.Unix()
	for _, list := range artifacts {
		for _, a := range list {
			r.Artifacts = append(r.Artifacts, *a)
		}
	}
}

// Totals aggregates fragment counts and lengths across the report.
type Totals struct {
	Documents      int           `json:"documents"`
	Fragments      int           `json:"fragments"`
	OriginalLength int           `json:"original_length"`
	MinifiedLength int           `json:"minified_length"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Saved returns the number of characters removed.
func (t Totals) Saved() int {
	return t.OriginalLength - t.MinifiedLength
}

// Totals sums every document.
func (r *Report) Totals() Totals {
	t := Totals{Documents: len(r.Documents)}
	for _, d := range r.Documents {
		for _, m := range d.Fragments {
			t.Fragments++
			t.OriginalLength += m.OriginalLength
			t.MinifiedLength += m.MinifiedLength
			t.Elapsed += m.Elapsed
		}
	}
	return t
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if r.SchemaVersion == "" {
		return nil, fmt.Errorf("decode report: missing schema_version")
	}
	return &r, nil
}
