// Package router decides, node by node, how CSS and JavaScript found in an
// HTML document are minified: merged into the open artifact of their kind,
// split into a new one, compressed in place, or left alone.
//
// An Orchestrator lives for one build run and owns the artifact builders,
// whose sequence numbers are global to the run. Each document gets its own
// Document context carrying the effective options, so overrides applied by
// directive comments never leak into the next document.
package router

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/hpungsan/webmin/internal/artifact"
	"github.com/hpungsan/webmin/internal/compress"
	"github.com/hpungsan/webmin/internal/content"
	"github.com/hpungsan/webmin/internal/options"
	"github.com/hpungsan/webmin/internal/report"
)

// Settings are the run-wide inputs of an Orchestrator.
type Settings struct {
	// Root is the build output root. External references and artifacts are
	// resolved against it.
	Root string
	// AlternateRoots are searched in order when a reference is not under Root.
	AlternateRoots []AlternateRoot
	// ArtifactDir places artifacts in a subdirectory of Root ("" for Root itself).
	ArtifactDir string
	CSSPrefix   string
	JSPrefix    string
	// Defaults are the process-wide options every document starts from.
	Defaults options.Options
	// Strict aborts a document on directive and override errors instead of
	// logging them and skipping the bad token.
	Strict bool
}

// Orchestrator routes content nodes for every document of one run.
// It is not safe for concurrent use.
type Orchestrator struct {
	fs          afero.Fs
	settings    Settings
	compressors compress.Factory
	log         zerolog.Logger
	now         func() time.Time

	builders map[content.Kind]*artifact.Builder
	report   *report.Report
	active   *Document
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCompressors replaces the default compressor factory.
func WithCompressors(f compress.Factory) Option {
	return func(o *Orchestrator) { o.compressors = f }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock overrides the time source used to stamp the report.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator writing artifacts through fs and recording into rep.
func New(fs afero.Fs, s Settings, rep *report.Report, opts ...Option) (*Orchestrator, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	if rep == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}
	if s.CSSPrefix == "" {
		s.CSSPrefix = content.CSS.Extension()
	}
	if s.JSPrefix == "" {
		s.JSPrefix = content.JavaScript.Extension()
	}

	cssBuilder, err := artifact.NewBuilder(s.ArtifactDir, s.CSSPrefix, content.CSS.Extension())
	if err != nil {
		return nil, err
	}
	jsBuilder, err := artifact.NewBuilder(s.ArtifactDir, s.JSPrefix, content.JavaScript.Extension())
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		fs:          fs,
		settings:    s,
		compressors: compress.New,
		log:         zerolog.Nop(),
		now:         time.Now,
		builders: map[content.Kind]*artifact.Builder{
			content.CSS:        cssBuilder,
			content.JavaScript: jsBuilder,
		},
		report: rep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Builder returns the artifact builder of a kind.
func (o *Orchestrator) Builder(kind content.Kind) *artifact.Builder {
	return o.builders[kind]
}

// Report returns the report being recorded.
func (o *Orchestrator) Report() *report.Report {
	return o.report
}

// StartDocument resets the effective options to the run defaults and starts a
// new document summary. A document still open is ended first.
func (o *Orchestrator) StartDocument(locator string) *Document {
	if o.active != nil {
		o.log.Warn().Str("document", o.active.summary.Document).Msg("document was not ended; ending it")
		o.active.End()
	}

	d := &Document{
		o:       o,
		opts:    o.settings.Defaults,
		summary: &report.Document{Document: locator, Fragments: []report.Metrics{}},
		log:     o.log.With().Str("document", locator).Logger(),
	}
	d.deriveCompressors()
	o.active = d
	d.log.Debug().Msg("document started")
	return d
}

// Finish closes any open artifacts and stamps the report with the finish
// time and the run's artifact provenance.
func (o *Orchestrator) Finish() *report.Report {
	if o.active != nil {
		o.active.End()
	}
	for _, kind := range content.Kinds {
		o.builders[kind].Finish()
	}
	o.report.Finish(o.now(), o.builders[content.CSS].Sealed(), o.builders[content.JavaScript].Sealed())
	return o.report
}
