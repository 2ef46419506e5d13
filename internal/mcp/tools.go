package mcp

import "github.com/mark3labs/mcp-go/mcp"

var minifyToolDef = mcp.NewTool("minify",
	mcp.WithDescription("Copy the source tree to the target directory and minify the CSS and JavaScript referenced by its HTML documents. Consecutive references are merged into numbered artifacts. The run is recorded in history unless no_record is set."),
	mcp.WithString("source_dir",
		mcp.Description("Source web application directory. Defaults to the configured source_dir."),
	),
	mcp.WithString("target_dir",
		mcp.Description("Output directory. It is replaced on every run. Defaults to the configured target_dir."),
	),
	mcp.WithBoolean("strict",
		mcp.Description("Abort on malformed directives instead of logging and skipping them."),
	),
	mcp.WithBoolean("keep_backups",
		mcp.Description("Keep a .bak copy of each rewritten document in the target directory."),
	),
	mcp.WithBoolean("no_record",
		mcp.Description("Do not store the run in history."),
	),
)

var historyToolDef = mcp.NewTool("history",
	mcp.WithDescription("List recorded minification runs, newest first, with their totals."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum runs to return (default 20, max 100)."),
	),
	mcp.WithNumber("offset",
		mcp.Description("Runs to skip for pagination."),
	),
)

var reportToolDef = mcp.NewTool("report",
	mcp.WithDescription("Render the provenance report of a recorded run: every compressed fragment with its source, destination artifact, minifier and lengths."),
	mcp.WithString("run_id",
		mcp.Required(),
		mcp.Description("Run ID returned by minify or history."),
	),
	mcp.WithString("format",
		mcp.Description("json (default), markdown or html."),
		mcp.Enum("json", "markdown", "md", "html"),
	),
)

var exportToolDef = mcp.NewTool("export",
	mcp.WithDescription("Write the report of a recorded run to a file. Defaults to ~/.webmin/exports/<run_id>.<ext>."),
	mcp.WithString("run_id",
		mcp.Required(),
		mcp.Description("Run ID returned by minify or history."),
	),
	mcp.WithString("path",
		mcp.Description("Destination file. Must be inside an allowed directory unless unsafe paths are enabled."),
	),
	mcp.WithString("format",
		mcp.Description("json, markdown or html. Inferred from the path extension when omitted."),
		mcp.Enum("json", "markdown", "md", "html"),
	),
)

var purgeToolDef = mcp.NewTool("purge",
	mcp.WithDescription("Permanently delete recorded runs."),
	mcp.WithNumber("older_than_days",
		mcp.Description("Only purge runs started more than N days ago. 0 or omitted purges every run."),
	),
)
