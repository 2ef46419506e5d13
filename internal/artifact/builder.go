// Package artifact tracks the minified output files of one content kind.
package artifact

import (
	"fmt"
	"path"
)

// Artifact is one minified output file and the sources that fed it.
type Artifact struct {
	// Name is the destination file name, e.g. "css-1.css".
	Name string `json:"name"`
	// Sources lists contributing external source paths in append order.
	Sources []string `json:"sources,omitempty"`
	// HasEmbeddedContent is set once inline content was merged in.
	HasEmbeddedContent bool `json:"has_embedded_content,omitempty"`
}

// AddSource registers an external source as a contributor.
func (a *Artifact) AddSource(source string) {
	a.Sources = append(a.Sources, source)
}

// Builder owns at most one open Artifact at a time and allocates
// sequentially numbered names. The sequence is never reused.
type Builder struct {
	dir       string
	prefix    string
	extension string

	seq     int
	current *Artifact
	sealed  []*Artifact
}

// NewBuilder creates a builder naming artifacts {prefix}-{n}.{extension}
// inside dir (dir may be empty for names relative to the output root).
func NewBuilder(dir, prefix, extension string) (*Builder, error) {
	if prefix == "" {
		return nil, fmt.Errorf("artifact prefix cannot be empty")
	}
	if extension == "" {
		return nil, fmt.Errorf("artifact extension cannot be empty")
	}
	return &Builder{dir: dir, prefix: prefix, extension: extension}, nil
}

// Current returns the open artifact, allocating a new one when none is open.
func (b *Builder) Current() *Artifact {
	if b.current == nil {
		b.seq++
		name := fmt.Sprintf("%s-%d.%s", b.prefix, b.seq, b.extension)
		if b.dir != "" {
			name = path.Join(b.dir, name)
		}
		b.current = &Artifact{Name: name}
	}
	return b.current
}

// Finish closes the open artifact. It is a no-op when none is open.
func (b *Builder) Finish() {
	if b.current == nil {
		return
	}
	b.sealed = append(b.sealed, b.current)
	b.current = nil
}

// IsFresh reports whether the next Current call allocates a new artifact.
func (b *Builder) IsFresh() bool {
	return b.current == nil
}

// Sequence returns the number of the most recently allocated artifact.
func (b *Builder) Sequence() int {
	return b.seq
}

// Sealed returns the finished artifacts in allocation order.
func (b *Builder) Sealed() []*Artifact {
	return b.sealed
}
