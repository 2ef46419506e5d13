package ops

import (
	"database/sql"

	"github.com/hpungsan/webmin/internal/db"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []db.RunSummary `json:"items"`
	Pagination Pagination      `json:"pagination"`
	Sort       string          `json:"sort"`
}

// History lists stored runs, newest first.
func History(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	runs, total, err := db.ListRuns(database, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if runs == nil {
		runs = []db.RunSummary{}
	}

	return &HistoryOutput{
		Items: runs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(runs) < total,
			Total:   total,
		},
		Sort: "started_at_desc",
	}, nil
}
