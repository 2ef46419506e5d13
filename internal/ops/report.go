package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/webmin/internal/db"
	"github.com/hpungsan/webmin/internal/errors"
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	RunID  string // required
	Format string // json (default), markdown or html
}

// ReportOutput contains a rendered report.
type ReportOutput struct {
	RunID   string `json:"run_id"`
	Format  Format `json:"format"`
	Content string `json:"content"`
}

// Report fetches a stored run and renders its report.
func Report(database *sql.DB, input ReportInput) (*ReportOutput, error) {
	runID := strings.TrimSpace(input.RunID)
	if runID == "" {
		return nil, errors.NewInvalidRequest("run_id is required")
	}
	format, err := ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}

	r, err := db.GetRunReport(database, runID)
	if err != nil {
		return nil, err
	}

	content, err := Render(r, format)
	if err != nil {
		return nil, err
	}
	return &ReportOutput{RunID: runID, Format: format, Content: content}, nil
}
