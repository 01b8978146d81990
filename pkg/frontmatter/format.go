// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package frontmatter

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"
)

// ErrUnencodableHeader is returned by Format when no encoding of the
// header avoids a delimiter line, so the output would not parse back.
var ErrUnencodableHeader = errors.New("header cannot be encoded without a delimiter line")

// Format serializes headers as YAML between delimiter lines using nl and
// appends body verbatim. An empty nl means LF.
//
// Parse(Format(h, body, nl)) returns h and body again. When the plain
// encoding contains a delimiter line (a value ending in "---", say), string
// scalars are re-encoded double-quoted; if that still does not help,
// Format returns ErrUnencodableHeader.
func Format(headers any, body string, nl Newline) (string, error) {
	if nl == "" {
		nl = LF
	}

	var node yaml.Node
	if err := node.Encode(headers); err != nil {
		return "", errors.Wrap(err, "encoding headers")
	}

	header, err := encodeHeader(&node, nl)
	if err != nil {
		return "", err
	}
	if strings.Contains(header, nl.line()) {
		quoteStrings(&node)
		if header, err = encodeHeader(&node, nl); err != nil {
			return "", err
		}
		if strings.Contains(header, nl.line()) {
			return "", ErrUnencodableHeader
		}
	}

	var out strings.Builder
	out.Grow(2*len(nl.line()) + len(header) + len(body))
	out.WriteString(nl.line())
	out.WriteString(header)
	out.WriteString(nl.line())
	out.WriteString(body)
	return out.String(), nil
}

func encodeHeader(node *yaml.Node, nl Newline) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", errors.Wrap(err, "encoding headers")
	}
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "encoding headers")
	}

	header := buf.String()
	if header == "{}\n" {
		return "", nil
	}
	if nl == CRLF {
		header = strings.ReplaceAll(header, "\n", "\r\n")
	}
	return header, nil
}

// quoteStrings switches every string scalar below n to double-quoted style,
// which escapes line breaks and keeps a trailing "---" off the line end.
func quoteStrings(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		quoteStrings(c)
	}
}
