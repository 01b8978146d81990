package outline

import (
	"bytes"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type located struct {
	level     int
	text      string
	lineStart int
	bodyStart int
}

// Section returns the text between the first heading whose text equals
// heading (ignoring case) and the next heading of the same or a higher
// level. The heading line itself is not included. The second result is
// false when no heading matches.
func Section(body []byte, heading string) (string, bool) {
	want := strings.TrimSpace(heading)
	all := locate(body)

	for i, h := range all {
		if !strings.EqualFold(h.text, want) {
			continue
		}
		end := len(body)
		for _, next := range all[i+1:] {
			if next.level <= h.level {
				end = next.lineStart
				break
			}
		}
		if end < h.bodyStart {
			end = h.bodyStart
		}
		return strings.TrimSpace(string(body[h.bodyStart:end])), true
	}
	return "", false
}

// locate finds every heading that has text, with the byte offsets of its
// first line and of the first line after it.
func locate(body []byte) []located {
	root := md.Parser().Parse(text.NewReader(body))

	var out []located
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return gmast.WalkSkipChildren, nil
		}

		start := lineStart(body, lines.At(0).Start)
		after := nextLine(body, start)
		if !bytes.HasPrefix(bytes.TrimLeft(body[start:], " "), []byte("#")) {
			// Setext: the remaining text lines plus the underline.
			for i := 0; i < lines.Len(); i++ {
				after = nextLine(body, after)
			}
		}

		out = append(out, located{
			level:     h.Level,
			text:      strings.TrimSpace(inlineText(h, body)),
			lineStart: start,
			bodyStart: after,
		})
		return gmast.WalkSkipChildren, nil
	})
	return out
}

func lineStart(body []byte, pos int) int {
	return bytes.LastIndexByte(body[:pos], '\n') + 1
}

func nextLine(body []byte, pos int) int {
	if pos >= len(body) {
		return len(body)
	}
	i := bytes.IndexByte(body[pos:], '\n')
	if i < 0 {
		return len(body)
	}
	return pos + i + 1
}
