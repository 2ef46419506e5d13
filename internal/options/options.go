// Package options holds the per-document effective minification options and
// the closed table of options that inline directives may override.
package options

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hpungsan/webmin/internal/content"
	"github.com/hpungsan/webmin/internal/errors"
)

// Engine selects the JavaScript compressor.
type Engine string

const (
	EngineYUI     Engine = "YUI"
	EngineClosure Engine = "CLOSURE"
)

// Engines lists the valid engines.
var Engines = []Engine{EngineClosure, EngineYUI}

// CompilationLevel is the Closure compiler optimization level.
type CompilationLevel string

const (
	WhitespaceOnly        CompilationLevel = "WHITESPACE_ONLY"
	SimpleOptimizations   CompilationLevel = "SIMPLE_OPTIMIZATIONS"
	AdvancedOptimizations CompilationLevel = "ADVANCED_OPTIMIZATIONS"
)

// CompilationLevels lists the valid compilation levels.
var CompilationLevels = []CompilationLevel{WhitespaceOnly, SimpleOptimizations, AdvancedOptimizations}

// ParseEngine converts an engine name. Names are matched exactly.
func ParseEngine(s string) (Engine, error) {
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q", s)
}

// ParseCompilationLevel converts a compilation level name. Names are matched exactly.
func ParseCompilationLevel(s string) (CompilationLevel, error) {
	for _, l := range CompilationLevels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown compilation level %q", s)
}

// Options is the effective configuration snapshot for one document.
// It is a plain value: copying it gives an independent snapshot.
type Options struct {
	SkipCSS          bool
	SkipEmbeddedCSS  bool
	SkipJS           bool
	SkipEmbeddedJS   bool
	MergeEmbeddedCSS bool
	MergeEmbeddedJS  bool

	JSEngine                   Engine
	ClosureCompilationLevel    CompilationLevel
	YUICSSLineBreak            int
	YUIJSLineBreak             int
	YUIJSNoMunge               bool
	YUIJSDisableOptimizations  bool
	YUIJSPreserveAllSemiColons bool
}

// Defaults returns the built-in defaults.
func Defaults() Options {
	return Options{
		JSEngine:                EngineYUI,
		ClosureCompilationLevel: SimpleOptimizations,
		YUICSSLineBreak:         -1,
		YUIJSLineBreak:          -1,
	}
}

// setter applies a raw textual value to one option.
type setter func(o *Options, key, raw string) error

func boolSetter(field func(*Options) *bool) setter {
	return func(o *Options, key, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.NewInvalidOptionValue(key, raw, "a boolean")
		}
		*field(o) = v
		return nil
	}
}

func intSetter(field func(*Options) *int) setter {
	return func(o *Options, key, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return errors.NewInvalidOptionValue(key, raw, "an integer")
		}
		*field(o) = v
		return nil
	}
}

// overridable maps directive option names to typed setters.
var overridable = map[string]setter{
	"skipCssMinify":         boolSetter(func(o *Options) *bool { return &o.SkipCSS }),
	"skipEmbeddedCssMinify": boolSetter(func(o *Options) *bool { return &o.SkipEmbeddedCSS }),
	"skipJsMinify":          boolSetter(func(o *Options) *bool { return &o.SkipJS }),
	"skipEmbeddedJsMinify":  boolSetter(func(o *Options) *bool { return &o.SkipEmbeddedJS }),
	"mergeEmbeddedCss":      boolSetter(func(o *Options) *bool { return &o.MergeEmbeddedCSS }),
	"mergeEmbeddedJs":       boolSetter(func(o *Options) *bool { return &o.MergeEmbeddedJS }),
	"jsCompressorEngine": func(o *Options, key, raw string) error {
		e, err := ParseEngine(raw)
		if err != nil {
			return errors.NewInvalidOptionValue(key, raw, "one of "+joinNames(Engines))
		}
		o.JSEngine = e
		return nil
	},
	"closureCompilationLevel": func(o *Options, key, raw string) error {
		l, err := ParseCompilationLevel(raw)
		if err != nil {
			return errors.NewInvalidOptionValue(key, raw, "one of "+joinNames(CompilationLevels))
		}
		o.ClosureCompilationLevel = l
		return nil
	},
	"yuiCssLineBreak":            intSetter(func(o *Options) *int { return &o.YUICSSLineBreak }),
	"yuiJsLineBreak":             intSetter(func(o *Options) *int { return &o.YUIJSLineBreak }),
	"yuiJsNoMunge":               boolSetter(func(o *Options) *bool { return &o.YUIJSNoMunge }),
	"yuiJsDisableOptimizations":  boolSetter(func(o *Options) *bool { return &o.YUIJSDisableOptimizations }),
	"yuiJsPreserveAllSemiColons": boolSetter(func(o *Options) *bool { return &o.YUIJSPreserveAllSemiColons }),
}

// ApplyOverride sets the named option from its raw directive value.
// The snapshot is left untouched when the key or value is rejected.
func ApplyOverride(o *Options, key, raw string) error {
	set, ok := overridable[key]
	if !ok {
		return errors.NewUnknownOption(key)
	}
	return set(o, key, raw)
}

// OverridableNames returns the option names accepted by ApplyOverride, sorted.
func OverridableNames() []string {
	names := make([]string, 0, len(overridable))
	for name := range overridable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Skip reports whether external content of the kind is left alone.
func (o Options) Skip(kind content.Kind) bool {
	if kind == content.CSS {
		return o.SkipCSS
	}
	return o.SkipJS
}

// SkipEmbedded reports whether embedded content of the kind is left alone.
// Disabling a kind disables its embedded content too.
func (o Options) SkipEmbedded(kind content.Kind) bool {
	if kind == content.CSS {
		return o.SkipCSS || o.SkipEmbeddedCSS
	}
	return o.SkipJS || o.SkipEmbeddedJS
}

// MergeEmbedded reports whether embedded content of the kind may join an open artifact.
func (o Options) MergeEmbedded(kind content.Kind) bool {
	if kind == content.CSS {
		return o.MergeEmbeddedCSS
	}
	return o.MergeEmbeddedJS
}

func joinNames[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
