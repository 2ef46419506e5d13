package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/webmin/internal/config"
	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "webmin",
		Usage:   "CSS and JavaScript minifier for HTML web applications",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug output to stderr"},
		},
		Commands: []*cli.Command{
			minifyCmd(db, cfg),
			historyCmd(db),
			reportCmd(db, cfg),
			exportCmd(db, cfg),
			purgeCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newLogger returns a human-readable logger on stderr.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// minifyCmd creates the minify command.
func minifyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "minify",
		Usage: "Copy the source tree and minify the CSS and JavaScript its documents reference",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source directory (default from config: webapp)"},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Target directory, replaced on every run (default from config: webapp-minified)"},
			&cli.BoolFlag{Name: "strict", Usage: "Abort on malformed directives"},
			&cli.BoolFlag{Name: "keep-backups", Usage: "Keep a .bak copy of each rewritten document"},
			&cli.BoolFlag{Name: "no-record", Usage: "Do not store the run in history"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Minify(c.Context, db, afero.NewOsFs(), cfg, newLogger(c.Bool("verbose")), ops.MinifyInput{
				SourceDir:   c.String("source"),
				TargetDir:   c.String("target"),
				Strict:      c.Bool("strict"),
				KeepBackups: c.Bool("keep-backups"),
				NoRecord:    c.Bool("no-record"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum runs to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Runs to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(db, ops.HistoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Print the provenance report of a recorded run",
		ArgsUsage: "<run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "markdown", Usage: "Output format: json|markdown|html"},
			&cli.StringFlag{Name: "out", Usage: "Write to a file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			runID := c.Args().First()

			if out := c.String("out"); out != "" {
				format := ""
				if c.IsSet("format") {
					format = c.String("format")
				}
				output, err := ops.Export(db, cfg, ops.ExportInput{RunID: runID, Path: out, Format: format})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.Report(db, ops.ReportInput{RunID: runID, Format: c.String("format")})
			if err != nil {
				return outputError(err)
			}

			_, err = fmt.Fprintln(os.Stdout, output.Content)
			return err
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the report of a recorded run to a file",
		ArgsUsage: "<run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination file (default: ~/.webmin/exports/<run-id>.<ext>)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json|markdown|html (inferred from --path when omitted)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(db, cfg, ops.ExportInput{
				RunID:  c.Args().First(),
				Path:   c.String("path"),
				Format: c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete recorded runs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge runs started more than N days ago (e.g., 30d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var minErr *errors.MinifyError
	if stderrors.As(err, &minErr) {
		msg := minErr.Message
		if err != error(minErr) {
			msg = err.Error() // wrapped with document context
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", minErr.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
