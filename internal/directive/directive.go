// Package directive tokenizes inline configuration embedded in HTML comments.
//
// A directive comment carries the header marker followed by whitespace
// separated tokens:
//
//	<!-- webapp-minifier-maven-plugin: jsCompressorEngine=CLOSURE split-javascript -->
//
// The shorter "webapp-minifier:" header is accepted as well.
//
// A token of the form name=value overrides an option; a bare keyword is a
// control directive.
package directive

import (
	stderrors "errors"
	"strings"
	"unicode"

	"github.com/hpungsan/webmin/internal/errors"
)

// Header marks a comment as inline configuration.
const Header = "webapp-minifier-maven-plugin:"

// ShortHeader is an accepted abbreviation of Header.
const ShortHeader = "webapp-minifier:"

// Control identifies an imperative directive.
type Control int

const (
	SplitCSS Control = iota + 1
	SplitJavaScript
)

// controlKeywords is the closed set of directive keywords.
var controlKeywords = map[string]Control{
	"split-css":        SplitCSS,
	"split-javascript": SplitJavaScript,
}

// String returns the directive keyword.
func (c Control) String() string {
	for kw, v := range controlKeywords {
		if v == c {
			return kw
		}
	}
	return "unknown"
}

// Token is either an option override or a control directive.
// Exactly one of Key or Control is set.
type Token struct {
	Key     string
	Value   string
	Control Control
}

// IsOverride reports whether the token is a name=value override.
func (t Token) IsOverride() bool {
	return t.Control == 0
}

// String renders the token the way it appeared in the comment.
func (t Token) String() string {
	if t.IsOverride() {
		return t.Key + "=" + t.Value
	}
	return t.Control.String()
}

// Override creates an override token.
func Override(key, value string) Token {
	return Token{Key: key, Value: value}
}

// Directive creates a control token.
func Directive(c Control) Token {
	return Token{Control: c}
}

// ContainsHeader reports whether text carries the header marker anywhere.
func ContainsHeader(text string) bool {
	idx, _ := findHeader(text)
	return idx >= 0
}

// findHeader returns the offset and length of the first header marker in
// text, or -1 when there is none.
func findHeader(text string) (int, int) {
	idx, n := -1, 0
	for _, h := range []string{Header, ShortHeader} {
		if i := strings.Index(text, h); i >= 0 && (idx < 0 || i < idx) {
			idx, n = i, len(h)
		}
	}
	return idx, n
}

// Parse tokenizes everything after the header marker.
// Valid tokens are returned in textual order even when some tokens fail; the
// failures are joined into the returned error so the caller can choose to
// apply the good tokens or abort.
func Parse(text string) ([]Token, error) {
	idx, n := findHeader(text)
	if idx < 0 {
		return nil, nil
	}

	var tokens []Token
	var errs []error
	for _, field := range strings.FieldsFunc(text[idx+n:], unicode.IsSpace) {
		tok, err := parseToken(field)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, stderrors.Join(errs...)
}

func parseToken(field string) (Token, error) {
	if key, value, ok := strings.Cut(field, "="); ok {
		if key == "" {
			return Token{}, errors.NewDirectiveParse(field, "empty option name")
		}
		return Override(key, value), nil
	}
	if c, ok := controlKeywords[field]; ok {
		return Directive(c), nil
	}
	return Token{}, errors.NewUnrecognizedDirective(field)
}
