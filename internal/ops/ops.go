// Package ops implements the operations shared by the CLI and the MCP server:
// running a minification, listing and rendering stored runs, exporting
// reports and purging history.
package ops

import (
	"path/filepath"
	"strings"

	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/report"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Format is a report rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

var formatExtensions = map[Format]string{
	FormatJSON:     ".json",
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
}

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", errors.NewInvalidRequest("format must be one of json, markdown, html")
	}
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for f, e := range formatExtensions {
		if e == ext {
			return f, nil
		}
	}
	return "", errors.NewInvalidRequest("path must have a .json, .md or .html extension")
}

// Render renders a report in the given format.
func Render(r *report.Report, f Format) (string, error) {
	switch f {
	case FormatMarkdown:
		return report.RenderMarkdown(r), nil
	case FormatHTML:
		out, err := report.RenderHTML(r)
		if err != nil {
			return "", errors.NewInternal(err)
		}
		return out, nil
	default:
		var sb strings.Builder
		if err := r.WriteJSON(&sb); err != nil {
			return "", errors.NewInternal(err)
		}
		return sb.String(), nil
	}
}
