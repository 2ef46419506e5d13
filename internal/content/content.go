// Package content names the two kinds of minifiable content.
package content

// Kind is CSS or JavaScript.
type Kind int

const (
	CSS Kind = iota + 1
	JavaScript
)

// Kinds lists every kind in processing order.
var Kinds = []Kind{CSS, JavaScript}

// String returns the display name of the kind.
func (k Kind) String() string {
	switch k {
	case CSS:
		return "CSS"
	case JavaScript:
		return "JavaScript"
	}
	return "unknown"
}

// Extension returns the file extension used for artifacts of the kind.
func (k Kind) Extension() string {
	switch k {
	case CSS:
		return "css"
	case JavaScript:
		return "js"
	}
	return ""
}

// EmbeddedSource is the report source sentinel for inline content of the kind.
func (k Kind) EmbeddedSource() string {
	return "Embedded " + k.String()
}
