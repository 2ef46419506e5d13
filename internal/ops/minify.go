package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/hpungsan/webmin/internal/build"
	"github.com/hpungsan/webmin/internal/config"
	"github.com/hpungsan/webmin/internal/db"
)

// MinifyInput contains per-call overrides of the configuration.
type MinifyInput struct {
	SourceDir   string // optional, overrides source_dir
	TargetDir   string // optional, overrides target_dir
	Strict      bool
	KeepBackups bool
	// NoRecord skips storing the run in the history database.
	NoRecord bool
}

// MinifyOutput contains the result of the Minify operation.
type MinifyOutput struct {
	RunID          string   `json:"run_id,omitempty"`
	Documents      []string `json:"documents"`
	Fragments      int      `json:"fragments"`
	Artifacts      []string `json:"artifacts"`
	OriginalLength int      `json:"original_length"`
	MinifiedLength int      `json:"minified_length"`
	Saved          int      `json:"saved"`
	SummaryPath    string   `json:"summary_path,omitempty"`
	Recorded       bool     `json:"recorded"`
	Message        string   `json:"message"`
}

// Minify runs a build and records it in the history database.
// database may be nil, in which case nothing is recorded.
func Minify(ctx context.Context, database *sql.DB, fsys afero.Fs, cfg *config.Config, logger zerolog.Logger, input MinifyInput) (*MinifyOutput, error) {
	effective := config.Merge(cfg, &config.Config{
		SourceDir:   input.SourceDir,
		TargetDir:   input.TargetDir,
		Strict:      input.Strict,
		KeepBackups: input.KeepBackups,
	})

	result, err := build.Run(ctx, fsys, effective, build.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	out := &MinifyOutput{Documents: result.Documents, Artifacts: []string{}}
	if result.Skipped {
		out.Message = fmt.Sprintf("Copied %s to %s without minifying", effective.SourceDir, effective.TargetDir)
		return out, nil
	}

	r := result.Report
	t := r.Totals()
	out.RunID = r.RunID
	out.Fragments = t.Fragments
	out.OriginalLength = t.OriginalLength
	out.MinifiedLength = t.MinifiedLength
	out.Saved = t.Saved()
	out.SummaryPath = result.SummaryPath
	for _, a := range r.Artifacts {
		out.Artifacts = append(out.Artifacts, a.Name)
	}

	if database != nil && !input.NoRecord {
		if err := db.InsertRun(ctx, database, r, effective.SourceDir, effective.TargetDir); err != nil {
			return nil, err
		}
		out.Recorded = true
	}

	out.Message = fmt.Sprintf("Minified %d %s into %d %s, saving %d characters",
		len(out.Documents), plural(len(out.Documents), "document", "documents"),
		len(out.Artifacts), plural(len(out.Artifacts), "artifact", "artifacts"),
		out.Saved)
	return out, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
