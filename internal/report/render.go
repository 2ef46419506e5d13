package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RenderMarkdown renders a human readable summary with one table per document.
func RenderMarkdown(r *Report) string {
	var b strings.Builder
	totals := r.Totals()

	fmt.Fprintf(&b, "# Minification report %s\n\n", r.RunID)
	fmt.Fprintf(&b, "- Started: %s\n", formatTime(r.StartedAt))
	if r.FinishedAt != 0 {
		fmt.Fprintf(&b, "- Finished: %s\n", formatTime(r.FinishedAt))
	}
	fmt.Fprintf(&b, "- Documents: %d\n", totals.Documents)
	fmt.Fprintf(&b, "- Fragments: %d\n", totals.Fragments)
	fmt.Fprintf(&b, "- Characters: %s → %s (%s saved, %s)\n\n",
		formatChars(totals.OriginalLength), formatChars(totals.MinifiedLength),
		formatChars(totals.Saved()), formatRatio(totals.OriginalLength, totals.MinifiedLength))

	for _, d := range r.Documents {
		fmt.Fprintf(&b, "## %s\n\n", escapeCell(d.Document))
		if len(d.Fragments) == 0 {
			b.WriteString("No fragments were minified.\n\n")
			continue
		}
		b.WriteString("| Source | Destination | Minifier | Original | Minified | Ratio | Time |\n")
		b.WriteString("|---|---|---|---:|---:|---:|---:|\n")
		for _, m := range d.Fragments {
			dest := "-"
			if m.Destination != nil {
				dest = *m.Destination
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				escapeCell(m.Source), escapeCell(dest), escapeCell(m.Minifier),
				formatChars(m.OriginalLength), formatChars(m.MinifiedLength),
				formatRatio(m.OriginalLength, m.MinifiedLength), m.Elapsed.Round(time.Microsecond))
		}
		b.WriteString("\n")
	}

	if len(r.Artifacts) > 0 {
		b.WriteString("## Artifacts\n\n")
		b.WriteString("| Artifact | Sources | Embedded |\n")
		b.WriteString("|---|---|---|\n")
		for _, a := range r.Artifacts {
			embedded := "no"
			if a.HasEmbeddedContent {
				embedded = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeCell(a.Name), escapeCell(strings.Join(a.Sources, ", ")), embedded)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts the Markdown summary to an HTML fragment using goldmark.
func RenderHTML(r *Report) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(r)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04:05" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04:05")
}

// formatRatio formats minified/original as a percentage.
func formatRatio(original, minified int) string {
	if original == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(minified)*100/float64(original))
}

// formatChars formats an integer with comma thousands separators.
func formatChars(n int) string {
	if n < 0 {
		return "-" + formatChars(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
