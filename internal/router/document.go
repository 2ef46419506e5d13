package router

import (
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/hpungsan/webmin/internal/artifact"
	"github.com/hpungsan/webmin/internal/compress"
	"github.com/hpungsan/webmin/internal/content"
	"github.com/hpungsan/webmin/internal/directive"
	"github.com/hpungsan/webmin/internal/errors"
	"github.com/hpungsan/webmin/internal/options"
	"github.com/hpungsan/webmin/internal/report"
)

type activeCompressor struct {
	compress.Compressor
	name string
}

// Document is the per-document processing context. Nodes must be handed to
// it in document order.
type Document struct {
	o           *Orchestrator
	opts        options.Options
	compressors map[content.Kind]activeCompressor
	summary     *report.Document
	log         zerolog.Logger
	ended       bool
}

// Options returns a copy of the effective options.
func (d *Document) Options() options.Options {
	return d.opts
}

// Summary returns the fragments recorded so far.
func (d *Document) Summary() *report.Document {
	return d.summary
}

func (d *Document) deriveCompressors() {
	d.compressors = make(map[content.Kind]activeCompressor, len(content.Kinds))
	for _, kind := range content.Kinds {
		c, name := d.o.compressors(kind, d.opts)
		d.compressors[kind] = activeCompressor{Compressor: c, name: name}
	}
}

// OnComment handles a comment node. Comments without the directive header
// are left alone. Directive comments apply their overrides and controls in
// order and are removed from the output.
func (d *Document) OnComment(text string) (bool, error) {
	if !directive.ContainsHeader(text) {
		return false, nil
	}

	tokens, err := directive.Parse(text)
	if err != nil {
		if d.o.settings.Strict {
			return false, err
		}
		for _, e := range errors.All(err) {
			d.log.Warn().Str("code", string(e.Code)).Msg(e.Message)
		}
	}

	changed := false
	for _, tok := range tokens {
		if tok.IsOverride() {
			if err := options.ApplyOverride(&d.opts, tok.Key, tok.Value); err != nil {
				if d.o.settings.Strict {
					return false, err
				}
				d.log.Warn().Err(err).Str("token", tok.String()).Msg("ignoring option override")
				continue
			}
			d.log.Debug().Str("option", tok.Key).Str("value", tok.Value).Msg("option overridden")
			changed = true
			continue
		}

		switch tok.Control {
		case directive.SplitCSS:
			d.log.Debug().Msg("splitting the minified CSS file")
			d.o.builders[content.CSS].Finish()
		case directive.SplitJavaScript:
			d.log.Debug().Msg("splitting the minified JavaScript file")
			d.o.builders[content.JavaScript].Finish()
		}
	}

	if changed {
		d.deriveCompressors()
	}
	return true, nil
}

// OnExternalResource handles a link or script element referencing url.
//
// The first reference written into an artifact is rewritten to point at it,
// relative to the document; later references merged into the same artifact
// are deleted because their content already lives there. References that cannot be resolved are kept
// unchanged and close the open artifact, so found content is never merged
// across a missing resource.
func (d *Document) OnExternalResource(kind content.Kind, url string) (Outcome, error) {
	if d.opts.Skip(kind) {
		return Keep(url), nil
	}

	builder := d.o.builders[kind]
	source, ok := resolve(d.o.fs, d.o.settings.Root, d.o.settings.AlternateRoots, url)
	if !ok {
		builder.Finish()
		err := errors.NewResourceNotFound(url)
		d.log.Warn().Str("code", string(err.Code)).Str("url", url).Msg("content will not be minified")
		return Keep(url), nil
	}

	data, err := afero.ReadFile(d.o.fs, source)
	if err != nil {
		return Outcome{}, errors.NewCompressionFailure(url, err)
	}

	a := builder.Current()
	existed, err := d.appendCompressed(kind, url, string(data), a)
	if err != nil {
		return Outcome{}, err
	}
	a.AddSource(source)

	if existed {
		return Delete(), nil
	}
	return Keep(d.reference(a.Name)), nil
}

// reference returns the URL of an artifact as seen from the document, so a
// document in a subdirectory points back up to the artifact.
func (d *Document) reference(name string) string {
	dir := filepath.Dir(filepath.FromSlash(d.summary.Document))
	if dir == "." {
		return name
	}
	rel, err := filepath.Rel(dir, filepath.FromSlash(name))
	if err != nil {
		return name
	}
	return filepath.ToSlash(rel)
}

// OnEmbeddedContent handles the text of a style or script element.
// Scoped style blocks are never deleted: when the computed outcome is a
// deletion the original text is kept.
func (d *Document) OnEmbeddedContent(kind content.Kind, text string, scoped bool) (Outcome, error) {
	out, err := d.embedded(kind, text)
	if err != nil {
		return Outcome{}, err
	}
	if kind == content.CSS && scoped && out.IsDelete() {
		d.log.Warn().Msg("scoped style cannot be removed; preserving the embedded CSS")
		return Keep(text), nil
	}
	return out, nil
}

func (d *Document) embedded(kind content.Kind, text string) (Outcome, error) {
	builder := d.o.builders[kind]

	if d.opts.SkipEmbedded(kind) {
		builder.Finish()
		return Keep(text), nil
	}

	if d.opts.MergeEmbedded(kind) && !builder.IsFresh() {
		a := builder.Current()
		if _, err := d.appendCompressed(kind, kind.EmbeddedSource(), text, a); err != nil {
			return Outcome{}, err
		}
		a.HasEmbeddedContent = true
		return Delete(), nil
	}

	c := d.compressors[kind]
	start := time.Now()
	compressed, err := c.Compress(text)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{}, errors.NewCompressionFailure(kind.EmbeddedSource(), err)
	}
	d.summary.Add(report.Metrics{
		Source:         kind.EmbeddedSource(),
		Minifier:       c.name,
		OriginalLength: utf8.RuneCountInString(text),
		MinifiedLength: utf8.RuneCountInString(compressed),
		Elapsed:        elapsed,
	})
	builder.Finish()
	return Keep(compressed), nil
}

// OnOtherNode handles any node that is not CSS, JavaScript or a comment.
// Merged runs must be contiguous, so both open artifacts are closed.
func (d *Document) OnOtherNode(name string) {
	d.log.Trace().Str("node", name).Msg("unrelated node")
	for _, kind := range content.Kinds {
		d.o.builders[kind].Finish()
	}
}

// End closes both open artifacts and seals the summary into the report.
// Calling End more than once has no further effect.
func (d *Document) End() {
	if d.ended {
		return
	}
	d.ended = true
	for _, kind := range content.Kinds {
		d.o.builders[kind].Finish()
	}
	d.o.report.Seal(d.summary)
	if d.o.active == d {
		d.o.active = nil
	}
	d.log.Debug().Int("fragments", len(d.summary.Fragments)).Msg("document ended")
}

// appendCompressed compresses text and appends it to the artifact file,
// recording metrics. It reports whether the file existed before the append.
func (d *Document) appendCompressed(kind content.Kind, source, text string, a *artifact.Artifact) (bool, error) {
	dest := filepath.Join(d.o.settings.Root, filepath.FromSlash(a.Name))
	existed := isFile(d.o.fs, dest)

	c := d.compressors[kind]
	start := time.Now()
	compressed, err := c.Compress(text)
	elapsed := time.Since(start)
	if err != nil {
		return false, errors.NewCompressionFailure(source, err)
	}

	if err := appendFile(d.o.fs, dest, compressed); err != nil {
		return false, errors.NewCompressionFailure(source, err)
	}

	name := a.Name
	d.summary.Add(report.Metrics{
		Source:         source,
		Destination:    &name,
		Minifier:       c.name,
		OriginalLength: utf8.RuneCountInString(text),
		MinifiedLength: utf8.RuneCountInString(compressed),
		Elapsed:        elapsed,
	})
	d.log.Info().
		Str("source", source).
		Str("destination", name).
		Int("original", utf8.RuneCountInString(text)).
		Int("minified", utf8.RuneCountInString(compressed)).
		Msg("reduced input")
	return existed, nil
}

func appendFile(fs afero.Fs, path, data string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
