package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/webmin/internal/db"
	"github.com/hpungsan/webmin/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays int       // only purge runs started more than N days ago; 0 purges everything
	Now           time.Time // optional, defaults to time.Now()
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes stored runs.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must be non-negative")
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-time.Duration(input.OlderThanDays) * 24 * time.Hour)

	// +1 so runs started in the current second are included when purging everything
	before := cutoff.Unix()
	if input.OlderThanDays == 0 {
		before++
	}

	count, err := db.DeleteRunsBefore(ctx, database, before)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays int) string {
	if count == 0 {
		return "No runs to purge"
	}

	runWord := "run"
	if count > 1 {
		runWord = "runs"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, runWord)
	if olderThanDays > 0 {
		msg += fmt.Sprintf(" (started more than %d days ago)", olderThanDays)
	}
	return msg
}
