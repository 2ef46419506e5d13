package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/webmin/internal/options"
	"github.com/hpungsan/webmin/internal/router"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CSSPrefix != "css" || cfg.JSPrefix != "js" {
		t.Fatalf("prefixes = %q/%q, want css/js", cfg.CSSPrefix, cfg.JSPrefix)
	}
	if len(cfg.HTMLIncludes) != 3 {
		t.Fatalf("HTMLIncludes = %v, want 3 default patterns", cfg.HTMLIncludes)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.json"), `{"css_prefix": "styles", "strict": true, "minify": {"js_engine": "CLOSURE"}}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CSSPrefix != "styles" {
		t.Fatalf("CSSPrefix = %q, want %q", cfg.CSSPrefix, "styles")
	}
	if cfg.JSPrefix != "js" {
		t.Fatalf("JSPrefix = %q, want default %q", cfg.JSPrefix, "js")
	}
	if !cfg.Strict {
		t.Fatalf("Strict = false, want true")
	}
	if cfg.Minify.JSEngine == nil || *cfg.Minify.JSEngine != "CLOSURE" {
		t.Fatalf("Minify.JSEngine = %v, want CLOSURE", cfg.Minify.JSEngine)
	}
}

func TestLoad_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), `
source_dir: src/main/webapp
other_directories:
  - url_prefix: /static
    root: /srv/static
minify:
  merge_embedded_css: true
  yui_js_line_break: 80
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SourceDir != "src/main/webapp" {
		t.Errorf("SourceDir = %q", cfg.SourceDir)
	}
	if len(cfg.OtherDirectories) != 1 || cfg.OtherDirectories[0].Root != "/srv/static" {
		t.Errorf("OtherDirectories = %+v", cfg.OtherDirectories)
	}

	o, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if !o.MergeEmbeddedCSS || o.YUIJSLineBreak != 80 {
		t.Errorf("Options() = %+v", o)
	}
}

func TestLoad_JSONPreferredOverYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.json"), `{"js_prefix": "from-json"}`)
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), `js_prefix: from-yaml`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JSPrefix != "from-json" {
		t.Fatalf("JSPrefix = %q, want from-json", cfg.JSPrefix)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.json"), `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "strict: [unclosed")

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	writeFile(t, filepath.Join(globalDir, "config.json"), `{"css_prefix": "global", "disabled_tools": ["history"], "keep_backups": true}`)
	writeFile(t, filepath.Join(repoDir, ".webmin", "config.json"), `{"css_prefix": "repo", "disabled_tools": ["report"]}`)

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.CSSPrefix != "repo" {
		t.Errorf("CSSPrefix = %q, want repo", cfg.CSSPrefix)
	}
	if !cfg.KeepBackups {
		t.Errorf("KeepBackups = false, want true from global")
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want both", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.TargetDir != DefaultConfig().TargetDir {
		t.Fatalf("TargetDir = %q, want default", cfg.TargetDir)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	repoDir := t.TempDir()
	nested := filepath.Join(repoDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeFile(t, filepath.Join(repoDir, ".webmin", "config.yaml"), "js_prefix: scripts\n")

	cfg, err := LoadWithRepo(t.TempDir(), nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.JSPrefix != "scripts" {
		t.Fatalf("JSPrefix = %q, want scripts", cfg.JSPrefix)
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	repoDir := t.TempDir()
	child := filepath.Join(repoDir, "child")
	if err := os.MkdirAll(child, 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	want := filepath.Join(repoDir, ".webmin", "config.json")
	writeFile(t, want, `{}`)

	if got := FindRepoConfig(child); got != want {
		t.Fatalf("FindRepoConfig() = %q, want %q", got, want)
	}
}

func TestFindRepoConfig_IgnoresDirectoryNamedLikeConfig(t *testing.T) {
	repoDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repoDir, ".webmin", "config.json"), 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := findConfigFile(filepath.Join(repoDir, ".webmin")); got != "" {
		t.Fatalf("findConfigFile() = %q, want empty", got)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{SourceDir: "a", DBMaxOpenConns: 4}
	overlay := &Config{SourceDir: "b"}

	result := Merge(base, overlay)
	if result.SourceDir != "b" {
		t.Errorf("SourceDir = %q, want b", result.SourceDir)
	}
	if result.DBMaxOpenConns != 4 {
		t.Errorf("DBMaxOpenConns = %d, want 4", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{SkipMinify: true}, &Config{Strict: true})
	if !result.SkipMinify || !result.Strict || result.KeepBackups {
		t.Fatalf("Merge() = %+v", result)
	}
}

func TestMerge_MinifyPointers(t *testing.T) {
	base := &Config{Minify: Minify{MergeEmbeddedCSS: boolPtr(true), YUICSSLineBreak: intPtr(100)}}
	overlay := &Config{Minify: Minify{MergeEmbeddedCSS: boolPtr(false), JSEngine: strPtr("CLOSURE")}}

	m := Merge(base, overlay).Minify
	if m.MergeEmbeddedCSS == nil || *m.MergeEmbeddedCSS {
		t.Errorf("MergeEmbeddedCSS: overlay false should win")
	}
	if m.YUICSSLineBreak == nil || *m.YUICSSLineBreak != 100 {
		t.Errorf("YUICSSLineBreak: base value should survive")
	}
	if m.JSEngine == nil || *m.JSEngine != "CLOSURE" {
		t.Errorf("JSEngine: overlay value should be set")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{HTMLExcludes: []string{"a/**", " b/** "}}
	overlay := &Config{HTMLExcludes: []string{"b/**", "c/**", ""}}

	got := Merge(base, overlay).HTMLExcludes
	want := []string{"a/**", "b/**", "c/**"}
	if len(got) != len(want) {
		t.Fatalf("HTMLExcludes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("HTMLExcludes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMerge_AlternateRoots(t *testing.T) {
	base := &Config{OtherDirectories: []router.AlternateRoot{
		{URLPrefix: "/static", Root: "/a"},
		{URLPrefix: "/lib", Root: "/b"},
	}}
	overlay := &Config{OtherDirectories: []router.AlternateRoot{
		{URLPrefix: "/lib", Root: "/c"},
		{URLPrefix: "/cdn", Root: "/d"},
		{URLPrefix: "", Root: "/ignored"},
	}}

	got := Merge(base, overlay).OtherDirectories
	want := []router.AlternateRoot{
		{URLPrefix: "/static", Root: "/a"},
		{URLPrefix: "/lib", Root: "/c"},
		{URLPrefix: "/cdn", Root: "/d"},
	}
	if len(got) != len(want) {
		t.Fatalf("OtherDirectories = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OtherDirectories[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestOptions_Defaults(t *testing.T) {
	o, err := DefaultConfig().Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if o != options.Defaults() {
		t.Fatalf("Options() = %+v, want defaults", o)
	}
}

func TestOptions_InvalidEnum(t *testing.T) {
	cfg := &Config{Minify: Minify{JSEngine: strPtr("uglify")}}
	if _, err := cfg.Options(); err == nil {
		t.Fatalf("Options() expected error for unknown engine")
	}

	cfg = &Config{Minify: Minify{ClosureCompilationLevel: strPtr("simple")}}
	if _, err := cfg.Options(); err == nil {
		t.Fatalf("Options() expected error for lower-case level")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing source", func(c *Config) { c.SourceDir = "" }, true},
		{"same dirs", func(c *Config) { c.TargetDir = c.SourceDir }, true},
		{"target inside source", func(c *Config) { c.TargetDir = filepath.Join(c.SourceDir, "out") }, true},
		{"source inside target", func(c *Config) { c.SourceDir = filepath.Join(c.TargetDir, "in") }, true},
		{"bad engine", func(c *Config) { c.Minify.JSEngine = strPtr("x") }, true},
		{"no includes", func(c *Config) { c.HTMLIncludes = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
