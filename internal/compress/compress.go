// Package compress provides the CSS and JavaScript compressors the router
// hands fragments to. Both are backed by tdewolff/minify; the engine names and
// knobs of the inline configuration language map onto its settings.
package compress

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"

	"github.com/hpungsan/webmin/internal/content"
	"github.com/hpungsan/webmin/internal/options"
)

const (
	mediaCSS = "text/css"
	mediaJS  = "application/javascript"
)

// Compressor minifies one fragment of CSS or JavaScript.
type Compressor interface {
	Compress(text string) (string, error)
}

// Func adapts a plain function to the Compressor interface.
type Func func(text string) (string, error)

// Compress calls f.
func (f Func) Compress(text string) (string, error) {
	return f(text)
}

// Factory derives the compressor for a kind from the effective options,
// together with the minifier name recorded in the report.
type Factory func(kind content.Kind, o options.Options) (Compressor, string)

// New is the default Factory.
func New(kind content.Kind, o options.Options) (Compressor, string) {
	if kind == content.CSS {
		return newCSS(o), "YUI"
	}
	switch o.JSEngine {
	case options.EngineClosure:
		return newClosure(o), string(options.EngineClosure)
	default:
		return newYUIJS(o), string(options.EngineYUI)
	}
}

// minifier runs one media type through a dedicated minify.M and applies
// YUI style line breaking afterwards.
type minifier struct {
	m          *minify.M
	mediatype  string
	lineBreak  int
	breakAfter byte
}

func (c *minifier) Compress(text string) (string, error) {
	out, err := c.m.String(c.mediatype, text)
	if err != nil {
		return "", err
	}
	return breakLines(out, c.lineBreak, c.breakAfter), nil
}

func newCSS(o options.Options) *minifier {
	m := minify.New()
	m.Add(mediaCSS, &css.Minifier{})
	return &minifier{m: m, mediatype: mediaCSS, lineBreak: o.YUICSSLineBreak, breakAfter: '}'}
}

// newYUIJS keeps local variable names when munging or micro optimizations are
// disabled. tdewolff/minify always drops redundant semicolons, so
// yuiJsPreserveAllSemiColons has no effect.
func newYUIJS(o options.Options) *minifier {
	m := minify.New()
	m.Add(mediaJS, &js.Minifier{
		KeepVarNames: o.YUIJSNoMunge || o.YUIJSDisableOptimizations,
	})
	return &minifier{m: m, mediatype: mediaJS, lineBreak: o.YUIJSLineBreak, breakAfter: ';'}
}

func newClosure(o options.Options) *minifier {
	m := minify.New()
	m.Add(mediaJS, &js.Minifier{
		KeepVarNames: o.ClosureCompilationLevel == options.WhitespaceOnly,
	})
	return &minifier{m: m, mediatype: mediaJS, lineBreak: -1}
}
