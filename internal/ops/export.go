package ops

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/webmin/internal/config"
	"github.com/hpungsan/webmin/internal/db"
	"github.com/hpungsan/webmin/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	RunID  string // required
	Path   string // optional, default: ~/.webmin/exports/<run_id>.<ext>
	Format string // optional; inferred from Path when empty, else json
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	RunID      string `json:"run_id"`
	Format     Format `json:"format"`
	Bytes      int    `json:"bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// Export renders a stored run's report to a file.
func Export(database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	runID := strings.TrimSpace(input.RunID)
	if runID == "" {
		return nil, errors.NewInvalidRequest("run_id is required")
	}

	format, err := exportFormat(input)
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, sanitizeForFilename(runID)+formatExtensions[format])
	}

	// Validate ALL paths (both user-provided and default)
	if err := ValidateExportPath(exportPath, cfg); err != nil {
		return nil, err
	}
	if f, _ := FormatForPath(exportPath); f != format {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("path extension does not match format %s", format))
	}

	r, err := db.GetRunReport(database, runID)
	if err != nil {
		return nil, err
	}
	content, err := Render(r, format)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	if err := writeAtomic(exportPath, []byte(content)); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		RunID:      runID,
		Format:     format,
		Bytes:      len(content),
		ExportedAt: time.Now().Unix(),
	}, nil
}

func exportFormat(input ExportInput) (Format, error) {
	if strings.TrimSpace(input.Format) != "" {
		return ParseFormat(input.Format)
	}
	if input.Path != "" {
		return FormatForPath(input.Path)
	}
	return FormatJSON, nil
}

// writeAtomic writes to a temp file first, then renames it into place so an
// existing file survives a failed export.
func writeAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows, os.Rename fails if the destination exists. Fail safely
	// instead of a non-atomic delete+rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// sanitizeForFilename sanitizes a string for safe use in a filename.
func sanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = strings.Trim(result.String(), "-")
	if s == "" {
		s = "unnamed"
	}
	return s
}
