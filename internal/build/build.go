// Package build drives one minification run over a web application: it copies
// the application to the target directory, rewrites every matching HTML
// document in place and writes the run summary.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/hpungsan/webmin/internal/compress"
	"github.com/hpungsan/webmin/internal/config"
	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/htmlwalk"
	"github.com/hpungsan/webmin/internal/report"
	"github.com/hpungsan/webmin/internal/router"
)

// SummaryFile is the name of the report written into the target directory.
const SummaryFile = "webmin-summary.json"

// BackupSuffix is appended to the original copy of a rewritten document.
const BackupSuffix = ".bak"

// Output describes a finished run.
type Output struct {
	Report      *report.Report
	Documents   []string
	SummaryPath string
	// Skipped is set when minification was disabled and only the copy ran.
	Skipped bool
}

// Options tune a run beyond the configuration.
type Options struct {
	Logger      zerolog.Logger
	Compressors compress.Factory
	Now         func() time.Time
}

// Run performs a full build of cfg.SourceDir into cfg.TargetDir on fsys.
// Cancellation is checked between documents.
func Run(ctx context.Context, fsys afero.Fs, cfg *config.Config, opts Options) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	defaults, err := cfg.Options()
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Compressors == nil {
		opts.Compressors = compress.New
	}
	log := opts.Logger

	started := opts.Now()
	if err := checkTarget(fsys, cfg.TargetDir, cfg.AllowUnsafePaths); err != nil {
		return nil, err
	}
	if err := copyTree(fsys, cfg.SourceDir, cfg.TargetDir); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("copy %s to %s: %w", cfg.SourceDir, cfg.TargetDir, err))
	}
	log.Info().Str("source", cfg.SourceDir).Str("target", cfg.TargetDir).Msg("copied web application")

	if cfg.SkipMinify {
		log.Info().Msg("skipping minification")
		rep, err := report.New(started)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		rep.Finish(opts.Now())
		summaryPath := filepath.Join(cfg.TargetDir, SummaryFile)
		if err := writeSummary(fsys, summaryPath, rep); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("write summary: %w", err))
		}
		return &Output{Report: rep, Skipped: true, Documents: []string{}, SummaryPath: summaryPath}, nil
	}

	docs, err := scan(fsys, cfg.TargetDir, cfg.HTMLIncludes, cfg.HTMLExcludes)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("scan %s: %w", cfg.TargetDir, err))
	}
	log.Info().Int("documents", len(docs)).Msg("found documents to minify")

	rep, err := report.New(started)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	orch, err := router.New(fsys, router.Settings{
		Root:           cfg.TargetDir,
		AlternateRoots: cfg.OtherDirectories,
		ArtifactDir:    cfg.ArtifactDir,
		CSSPrefix:      cfg.CSSPrefix,
		JSPrefix:       cfg.JSPrefix,
		Defaults:       defaults,
		Strict:         cfg.Strict,
	}, rep,
		router.WithCompressors(opts.Compressors),
		router.WithLogger(log),
		router.WithClock(opts.Now),
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("minify")
		default:
		}

		if err := processDocument(fsys, orch, cfg, doc); err != nil {
			return nil, fmt.Errorf("process %s: %w", doc, err)
		}
		log.Debug().Str("document", doc).Msg("document minified")
	}

	orch.Finish()

	summaryPath := filepath.Join(cfg.TargetDir, SummaryFile)
	if err := writeSummary(fsys, summaryPath, rep); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("write summary: %w", err))
	}

	t := rep.Totals()
	log.Info().
		Str("run_id", rep.RunID).
		Int("documents", t.Documents).
		Int("fragments", t.Fragments).
		Int("saved", t.Saved()).
		Msg("minification finished")

	return &Output{Report: rep, Documents: docs, SummaryPath: summaryPath}, nil
}

func processDocument(fsys afero.Fs, orch *router.Orchestrator, cfg *config.Config, doc string) error {
	path := filepath.Join(cfg.TargetDir, filepath.FromSlash(doc))
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	if cfg.KeepBackups {
		if err := afero.WriteFile(fsys, path+BackupSuffix, data, 0644); err != nil {
			return err
		}
	}

	var out bytes.Buffer
	d := orch.StartDocument(doc)
	if err := htmlwalk.Process(bytes.NewReader(data), &out, d); err != nil {
		d.End()
		return err
	}
	return afero.WriteFile(fsys, path, out.Bytes(), 0644)
}

// scan returns the target-relative, slash-separated paths of the documents
// matching includes and none of excludes, sorted.
func scan(fsys afero.Fs, root string, includes, excludes []string) ([]string, error) {
	var docs []string
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(includes, rel) && !matchAny(excludes, rel) {
			docs = append(docs, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(docs)
	if docs == nil {
		docs = []string{}
	}
	return docs, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// checkTarget refuses to replace an existing non-empty directory that holds
// no summary from an earlier run, unless unsafe paths are allowed.
func checkTarget(fsys afero.Fs, dst string, allowUnsafe bool) error {
	info, err := fsys.Stat(dst)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.NewInternal(fmt.Errorf("stat %s: %w", dst, err))
	}
	if !info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("target_dir %s is not a directory", dst))
	}
	if allowUnsafe {
		return nil
	}
	if ok, _ := afero.Exists(fsys, filepath.Join(dst, SummaryFile)); ok {
		return nil
	}
	empty, err := afero.IsEmpty(fsys, dst)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("read %s: %w", dst, err))
	}
	if !empty {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"target_dir %s is not empty and holds no %s; remove it or set allow_unsafe_paths", dst, SummaryFile))
	}
	return nil
}

// copyTree replaces dst with a copy of src.
func copyTree(fsys afero.Fs, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	if err := fsys.RemoveAll(dst); err != nil {
		return err
	}

	return afero.Walk(fsys, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fsys.MkdirAll(target, 0755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(fsys, path, target, info.Mode().Perm())
	})
}

func copyFile(fsys afero.Fs, src, dst string, perm os.FileMode) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, dst, data, perm)
}

func writeSummary(fsys afero.Fs, path string, rep *report.Report) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := rep.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
