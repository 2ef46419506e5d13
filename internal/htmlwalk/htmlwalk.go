// Package htmlwalk parses an HTML document, feeds its nodes in document order
// to a Handler and renders the rewritten document.
package htmlwalk

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hpungsan/webmin/internal/content"
	"github.com/hpungsan/webmin/internal/router"
)

// Handler receives classified nodes. *router.Document satisfies it.
type Handler interface {
	OnComment(text string) (bool, error)
	OnExternalResource(kind content.Kind, url string) (router.Outcome, error)
	OnEmbeddedContent(kind content.Kind, text string, scoped bool) (router.Outcome, error)
	OnOtherNode(name string)
	End()
}

const (
	typeCSS    = "text/css"
	typeTextJS = "text/javascript"
	typeAppJS  = "application/javascript"
)

// Process reads an HTML document from r, routes its nodes through h and
// writes the rewritten document to w. Nodes are removed only after the whole
// tree has been visited. h.End is called once traversal succeeds.
func Process(r io.Reader, w io.Writer, h Handler) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	v := &visitor{h: h}
	if err := v.walk(doc); err != nil {
		return err
	}
	h.End()

	for _, n := range v.deleted {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

type visitor struct {
	h       Handler
	deleted []*html.Node
}

func (v *visitor) walk(n *html.Node) error {
	switch {
	case n.Type == html.CommentNode:
		return v.comment(n)
	case isExternalCSS(n):
		return v.external(n, content.CSS, "href")
	case isEmbeddedCSS(n):
		return v.embedded(n, content.CSS, hasAttr(n, "scoped"))
	case isScript(n) && hasAttr(n, "src"):
		return v.external(n, content.JavaScript, "src")
	case isScript(n):
		return v.embedded(n, content.JavaScript, false)
	case n.Type == html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			v.h.OnOtherNode("#text")
		}
	default:
		v.h.OnOtherNode(nodeName(n))
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := v.walk(c); err != nil {
			return err
		}
	}
	return nil
}

func (v *visitor) comment(n *html.Node) error {
	del, err := v.h.OnComment(n.Data)
	if err != nil {
		return err
	}
	if del {
		v.deleted = append(v.deleted, n)
	}
	return nil
}

func (v *visitor) external(n *html.Node, kind content.Kind, attr string) error {
	out, err := v.h.OnExternalResource(kind, getAttr(n, attr))
	if err != nil {
		return err
	}
	if out.IsDelete() {
		v.deleted = append(v.deleted, n)
		return nil
	}
	setAttr(n, attr, out.Value)
	return nil
}

// embedded routes every text child of a style or script element. The element
// itself goes when all of its text was merged away.
func (v *visitor) embedded(n *html.Node, kind content.Kind, scoped bool) error {
	children, removed := 0, 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		children++
		out, err := v.h.OnEmbeddedContent(kind, c.Data, scoped)
		if err != nil {
			return err
		}
		if out.IsDelete() {
			v.deleted = append(v.deleted, c)
			removed++
			continue
		}
		c.Data = out.Value
	}
	if children > 0 && children == removed {
		v.deleted = append(v.deleted, n)
	}
	return nil
}

func isExternalCSS(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Link &&
		strings.EqualFold(getAttr(n, "rel"), "stylesheet") &&
		hasAttr(n, "href") && typeIs(n, typeCSS)
}

func isEmbeddedCSS(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Style && typeIs(n, typeCSS)
}

func isScript(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Script && typeIs(n, typeTextJS, typeAppJS)
}

// typeIs reports whether the type attribute is absent or one of the accepted values.
func typeIs(n *html.Node, accepted ...string) bool {
	if !hasAttr(n, "type") {
		return true
	}
	t := strings.TrimSpace(getAttr(n, "type"))
	for _, a := range accepted {
		if strings.EqualFold(t, a) {
			return true
		}
	}
	return false
}

func nodeName(n *html.Node) string {
	switch n.Type {
	case html.DocumentNode:
		return "#document"
	case html.DoctypeNode:
		return "#doctype"
	default:
		return n.Data
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
