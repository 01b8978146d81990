// Package outline extracts the heading structure of a Markdown body.
//
// This is an analysis API built on the goldmark parser; nothing is rendered.
package outline

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/docsmith/pkg/types"
)

var md = goldmark.New()

// Headings returns the ATX and setext headings of body in document order.
// Heading text is the concatenated inline text with markup removed.
func Headings(body []byte) []types.Heading {
	root := md.Parser().Parse(text.NewReader(body))

	var headings []types.Heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		headings = append(headings, types.Heading{
			Level: h.Level,
			Text:  strings.TrimSpace(inlineText(h, body)),
		})
		return gmast.WalkSkipChildren, nil
	})
	return headings
}

// inlineText concatenates the text segments below n.
func inlineText(n gmast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *gmast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(node.Value)
		default:
			b.WriteString(inlineText(node, source))
		}
	}
	return b.String()
}
