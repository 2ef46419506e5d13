package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/webmin/internal/options"
	"github.com/hpungsan/webmin/internal/router"
)

// configNames are the file names looked up in a config directory, in order.
var configNames = []string{"config.json", "config.yaml", "config.yml"}

// Config holds application configuration.
type Config struct {
	// SourceDir is the web application directory to minify.
	SourceDir string `json:"source_dir,omitempty" yaml:"source_dir,omitempty"`

	// TargetDir receives a copy of SourceDir with minified documents and artifacts.
	TargetDir string `json:"target_dir,omitempty" yaml:"target_dir,omitempty"`

	// HTMLIncludes are doublestar patterns, relative to TargetDir, selecting
	// the documents to process.
	HTMLIncludes []string `json:"html_includes,omitempty" yaml:"html_includes,omitempty"`

	// HTMLExcludes are doublestar patterns removing documents from HTMLIncludes.
	HTMLExcludes []string `json:"html_excludes,omitempty" yaml:"html_excludes,omitempty"`

	// CSSPrefix and JSPrefix name the artifacts, e.g. "css" gives css-1.css.
	CSSPrefix string `json:"css_prefix,omitempty" yaml:"css_prefix,omitempty"`
	JSPrefix  string `json:"js_prefix,omitempty" yaml:"js_prefix,omitempty"`

	// ArtifactDir places artifacts in a subdirectory of TargetDir.
	ArtifactDir string `json:"artifact_dir,omitempty" yaml:"artifact_dir,omitempty"`

	// OtherDirectories map URL prefixes to directories searched for
	// references that are not part of the web application.
	OtherDirectories []router.AlternateRoot `json:"other_directories,omitempty" yaml:"other_directories,omitempty"`

	// SkipMinify copies the application without touching any document.
	SkipMinify bool `json:"skip_minify,omitempty" yaml:"skip_minify,omitempty"`

	// Strict makes directive and option errors fatal for the document.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`

	// KeepBackups writes <document>.bak next to every rewritten document.
	KeepBackups bool `json:"keep_backups,omitempty" yaml:"keep_backups,omitempty"`

	// Minify holds the process-wide option defaults that directives override.
	Minify Minify `json:"minify,omitempty" yaml:"minify,omitempty"`

	// AllowedPaths is an allowlist of directories reports may be exported to.
	// Paths outside ~/.webmin/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for report export.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`
}

// Minify mirrors options.Options with optional fields so layers can be merged.
// A nil field leaves the lower layer in place.
type Minify struct {
	SkipCSS          *bool `json:"skip_css,omitempty" yaml:"skip_css,omitempty"`
	SkipEmbeddedCSS  *bool `json:"skip_embedded_css,omitempty" yaml:"skip_embedded_css,omitempty"`
	SkipJS           *bool `json:"skip_js,omitempty" yaml:"skip_js,omitempty"`
	SkipEmbeddedJS   *bool `json:"skip_embedded_js,omitempty" yaml:"skip_embedded_js,omitempty"`
	MergeEmbeddedCSS *bool `json:"merge_embedded_css,omitempty" yaml:"merge_embedded_css,omitempty"`
	MergeEmbeddedJS  *bool `json:"merge_embedded_js,omitempty" yaml:"merge_embedded_js,omitempty"`

	JSEngine                   *string `json:"js_engine,omitempty" yaml:"js_engine,omitempty"`
	ClosureCompilationLevel    *string `json:"closure_compilation_level,omitempty" yaml:"closure_compilation_level,omitempty"`
	YUICSSLineBreak            *int    `json:"yui_css_line_break,omitempty" yaml:"yui_css_line_break,omitempty"`
	YUIJSLineBreak             *int    `json:"yui_js_line_break,omitempty" yaml:"yui_js_line_break,omitempty"`
	YUIJSNoMunge               *bool   `json:"yui_js_no_munge,omitempty" yaml:"yui_js_no_munge,omitempty"`
	YUIJSDisableOptimizations  *bool   `json:"yui_js_disable_optimizations,omitempty" yaml:"yui_js_disable_optimizations,omitempty"`
	YUIJSPreserveAllSemiColons *bool   `json:"yui_js_preserve_all_semicolons,omitempty" yaml:"yui_js_preserve_all_semicolons,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:    "webapp",
		TargetDir:    "webapp-minified",
		HTMLIncludes: []string{"**/*.html", "**/*.htm", "**/*.jsp"},
		CSSPrefix:    "css",
		JSPrefix:     "js",
	}
}

// Load loads configuration from baseDir/config.json (or config.yaml).
// Returns default config if no file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.webmin.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(findConfigFile(baseDir))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.webmin) and repo (.webmin) directories.
// Repo config is found by walking upward from startDir to find the nearest .webmin directory
// holding a config file. Repo config takes precedence for scalar values; arrays are merged.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(findConfigFile(globalDir))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .webmin config file.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		if path := findConfigFile(filepath.Join(dir, ".webmin")); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// findConfigFile returns the first config file present in dir, or "".
func findConfigFile(dir string) string {
	if dir == "" {
		return ""
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.SourceDir = mergeString(base.SourceDir, overlay.SourceDir)
	result.TargetDir = mergeString(base.TargetDir, overlay.TargetDir)
	result.CSSPrefix = mergeString(base.CSSPrefix, overlay.CSSPrefix)
	result.JSPrefix = mergeString(base.JSPrefix, overlay.JSPrefix)
	result.ArtifactDir = mergeString(base.ArtifactDir, overlay.ArtifactDir)

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.SkipMinify = base.SkipMinify || overlay.SkipMinify
	result.Strict = base.Strict || overlay.Strict
	result.KeepBackups = base.KeepBackups || overlay.KeepBackups
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.HTMLIncludes = mergeStringSlice(base.HTMLIncludes, overlay.HTMLIncludes)
	result.HTMLExcludes = mergeStringSlice(base.HTMLExcludes, overlay.HTMLExcludes)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.OtherDirectories = mergeAlternateRoots(base.OtherDirectories, overlay.OtherDirectories)

	result.Minify = mergeMinify(base.Minify, overlay.Minify)

	return result
}

func mergeString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func mergePtr[T any](base, overlay *T) *T {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergeMinify(base, overlay Minify) Minify {
	return Minify{
		SkipCSS:                    mergePtr(base.SkipCSS, overlay.SkipCSS),
		SkipEmbeddedCSS:            mergePtr(base.SkipEmbeddedCSS, overlay.SkipEmbeddedCSS),
		SkipJS:                     mergePtr(base.SkipJS, overlay.SkipJS),
		SkipEmbeddedJS:             mergePtr(base.SkipEmbeddedJS, overlay.SkipEmbeddedJS),
		MergeEmbeddedCSS:           mergePtr(base.MergeEmbeddedCSS, overlay.MergeEmbeddedCSS),
		MergeEmbeddedJS:            mergePtr(base.MergeEmbeddedJS, overlay.MergeEmbeddedJS),
		JSEngine:                   mergePtr(base.JSEngine, overlay.JSEngine),
		ClosureCompilationLevel:    mergePtr(base.ClosureCompilationLevel, overlay.ClosureCompilationLevel),
		YUICSSLineBreak:            mergePtr(base.YUICSSLineBreak, overlay.YUICSSLineBreak),
		YUIJSLineBreak:             mergePtr(base.YUIJSLineBreak, overlay.YUIJSLineBreak),
		YUIJSNoMunge:               mergePtr(base.YUIJSNoMunge, overlay.YUIJSNoMunge),
		YUIJSDisableOptimizations:  mergePtr(base.YUIJSDisableOptimizations, overlay.YUIJSDisableOptimizations),
		YUIJSPreserveAllSemiColons: mergePtr(base.YUIJSPreserveAllSemiColons, overlay.YUIJSPreserveAllSemiColons),
	}
}

// mergeAlternateRoots keeps base order; an overlay entry with a known prefix
// replaces its root, new prefixes are appended.
func mergeAlternateRoots(base, overlay []router.AlternateRoot) []router.AlternateRoot {
	var result []router.AlternateRoot
	index := make(map[string]int)
	for _, list := range [][]router.AlternateRoot{base, overlay} {
		for _, alt := range list {
			prefix := strings.TrimSpace(alt.URLPrefix)
			if prefix == "" || alt.Root == "" {
				continue
			}
			if i, ok := index[prefix]; ok {
				result[i].Root = alt.Root
				continue
			}
			index[prefix] = len(result)
			result = append(result, router.AlternateRoot{URLPrefix: prefix, Root: alt.Root})
		}
	}
	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// Options resolves the minify section over the built-in option defaults.
func (c *Config) Options() (options.Options, error) {
	o := options.Defaults()
	m := c.Minify

	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setBool(&o.SkipCSS, m.SkipCSS)
	setBool(&o.SkipEmbeddedCSS, m.SkipEmbeddedCSS)
	setBool(&o.SkipJS, m.SkipJS)
	setBool(&o.SkipEmbeddedJS, m.SkipEmbeddedJS)
	setBool(&o.MergeEmbeddedCSS, m.MergeEmbeddedCSS)
	setBool(&o.MergeEmbeddedJS, m.MergeEmbeddedJS)
	setBool(&o.YUIJSNoMunge, m.YUIJSNoMunge)
	setBool(&o.YUIJSDisableOptimizations, m.YUIJSDisableOptimizations)
	setBool(&o.YUIJSPreserveAllSemiColons, m.YUIJSPreserveAllSemiColons)

	if m.YUICSSLineBreak != nil {
		o.YUICSSLineBreak = *m.YUICSSLineBreak
	}
	if m.YUIJSLineBreak != nil {
		o.YUIJSLineBreak = *m.YUIJSLineBreak
	}
	if m.JSEngine != nil {
		e, err := options.ParseEngine(*m.JSEngine)
		if err != nil {
			return options.Options{}, fmt.Errorf("minify.js_engine: %w", err)
		}
		o.JSEngine = e
	}
	if m.ClosureCompilationLevel != nil {
		l, err := options.ParseCompilationLevel(*m.ClosureCompilationLevel)
		if err != nil {
			return options.Options{}, fmt.Errorf("minify.closure_compilation_level: %w", err)
		}
		o.ClosureCompilationLevel = l
	}
	return o, nil
}

// Validate checks the fields a build needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return fmt.Errorf("source_dir is required")
	}
	if strings.TrimSpace(c.TargetDir) == "" {
		return fmt.Errorf("target_dir is required")
	}
	src, err := filepath.Abs(c.SourceDir)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(c.TargetDir)
	if err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("target_dir must differ from source_dir")
	}
	if rel, err := filepath.Rel(dst, src); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("source_dir must not be inside target_dir")
	}
	if rel, err := filepath.Rel(src, dst); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("target_dir must not be inside source_dir")
	}
	if len(c.HTMLIncludes) == 0 {
		return fmt.Errorf("html_includes cannot be empty")
	}
	_, err = c.Options()
	return err
}
