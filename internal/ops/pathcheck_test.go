package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/webmin/internal/config"
	"github.com/hpungsan/webmin/internal/errors"
)

func TestValidateExportPath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../report.json"},
		{"deep traversal", "../../etc/report.json"},
		{"mid-path traversal", "/tmp/../etc/report.md"},
		{"hidden in path", "/tmp/safe/../../../etc/shadow.html"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateExportPath(tc.path, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateExportPath_ExtensionRequired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	for _, path := range []string{"/tmp/report", "/tmp/report.jsonl", "/tmp/report.txt"} {
		t.Run(path, func(t *testing.T) {
			err := ValidateExportPath(path, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateExportPath_DirectoryRestriction(t *testing.T) {
	setHome(t, t.TempDir())
	cfg := config.DefaultConfig()

	err := ValidateExportPath(filepath.Join(t.TempDir(), "report.json"), cfg)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidateExportPath_DefaultExportsDir(t *testing.T) {
	home := t.TempDir()
	setHome(t, home)

	path := filepath.Join(home, ".webmin", "exports", "run.md")
	if err := ValidateExportPath(path, config.DefaultConfig()); err != nil {
		t.Errorf("expected success in default exports dir, got: %v", err)
	}
}

func TestValidateExportPath_AllowUnsafePaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	if err := ValidateExportPath(filepath.Join(t.TempDir(), "a", "b", "report.html"), cfg); err != nil {
		t.Errorf("expected success with AllowUnsafePaths=true, got: %v", err)
	}
}

func TestValidateExportPath_AllowedPaths(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}

	if err := ValidateExportPath(filepath.Join(allowed, "report.json"), cfg); err != nil {
		t.Errorf("expected success for path in AllowedPaths, got: %v", err)
	}

	// Nested paths are rejected to prevent TOCTOU attacks on directory components.
	err := ValidateExportPath(filepath.Join(allowed, "sub", "report.json"), cfg)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for nested path, got: %v", err)
	}
}

func TestValidateExportPath_SymlinkRejected_EvenWithUnsafePaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	target := filepath.Join(tmpDir, "target.json")
	if err := os.WriteFile(target, []byte("{}"), 0600); err != nil {
		t.Fatalf("failed to create target file: %v", err)
	}
	link := filepath.Join(tmpDir, "link.json")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	err := ValidateExportPath(link, cfg)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.txt", false},
		{"../file.txt", true},
		{"/home/../etc/passwd", true},
		{"./file.txt", false},
		{"file..name.txt", false}, // .. not as path component
		{"/tmp/a/b/../c.json", true},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := containsTraversal(tc.path); got != tc.contains {
				t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.contains)
			}
		})
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"01HXYZ", "01HXYZ"},
		{"../../etc", "etc"},
		{"a/b\\c", "a-b-c"},
		{"", "unnamed"},
	}
	for _, tc := range tests {
		if got := sanitizeForFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeForFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
