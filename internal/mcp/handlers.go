package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/hpungsan/webmin/internal/config"
	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db   *sql.DB
	cfg  *config.Config
	fsys afero.Fs
	log  zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, fsys afero.Fs, logger zerolog.Logger) *Handlers {
	return &Handlers{db: db, cfg: cfg, fsys: fsys, log: logger}
}

// Request types for each tool

// MinifyRequest represents the arguments for minify.
type MinifyRequest struct {
	SourceDir   string `json:"source_dir,omitempty"`
	TargetDir   string `json:"target_dir,omitempty"`
	Strict      bool   `json:"strict,omitempty"`
	KeepBackups bool   `json:"keep_backups,omitempty"`
	NoRecord    bool   `json:"no_record,omitempty"`
}

// HistoryRequest represents the arguments for history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ReportRequest represents the arguments for report.
type ReportRequest struct {
	RunID  string `json:"run_id"`
	Format string `json:"format,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

// PurgeRequest represents the arguments for purge.
type PurgeRequest struct {
	OlderThanDays int `json:"older_than_days,omitempty"`
}

// HandleMinify handles the minify tool call.
func (h *Handlers) HandleMinify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MinifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Minify(ctx, h.db, h.fsys, h.cfg, h.log, ops.MinifyInput{
		SourceDir:   input.SourceDir,
		TargetDir:   input.TargetDir,
		Strict:      input.Strict,
		KeepBackups: input.KeepBackups,
		NoRecord:    input.NoRecord,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReport handles the report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Report(h.db, ops.ReportInput{
		RunID:  input.RunID,
		Format: input.Format,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(h.db, h.cfg, ops.ExportInput{
		RunID:  input.RunID,
		Path:   input.Path,
		Format: input.Format,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var minErr *errors.MinifyError
	if stderrors.As(err, &minErr) {
		message := minErr.Message
		// Keep the wrapping context (e.g. the document being processed).
		if err != error(minErr) && minErr.Code != errors.ErrInternal {
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    minErr.Code,
			"message": message,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if minErr.Code != errors.ErrInternal && minErr.Details != nil {
			errorObj["details"] = minErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
