package router

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AlternateRoot maps URLs beginning with URLPrefix to files under Root.
type AlternateRoot struct {
	URLPrefix string `json:"url_prefix" yaml:"url_prefix"`
	Root      string `json:"root" yaml:"root"`
}

// resolve finds the file behind an external reference: first under the
// output root, then under the first alternate root whose prefix matches and
// whose file exists. References that climb out of their root with ".." never
// match. ok is false when nothing matches.
func resolve(fs afero.Fs, root string, alternates []AlternateRoot, url string) (string, bool) {
	ref := stripQuery(url)
	if ref == "" {
		return "", false
	}

	candidate, inside := join(root, ref)
	if inside && isFile(fs, candidate) {
		return candidate, true
	}

	for _, alt := range alternates {
		prefix := alt.URLPrefix
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		rest, ok := strings.CutPrefix(ref, prefix)
		if !ok {
			continue
		}
		candidate, inside := join(alt.Root, rest)
		if inside && isFile(fs, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// join resolves ref under root and reports whether the result stays inside it.
func join(root, ref string) (string, bool) {
	path := filepath.Join(root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

// stripQuery drops any query string or fragment from a URL.
func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}
