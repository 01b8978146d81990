// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package frontmatter

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"
)

const delimiter = "---"

// Newline is the line terminator of a document's delimiter lines.
type Newline string

const (
	LF   Newline = "\n"
	CRLF Newline = "\r\n"
)

// String returns a short name for the terminator ("LF" or "CRLF").
func (n Newline) String() string {
	switch n {
	case LF:
		return "LF"
	case CRLF:
		return "CRLF"
	default:
		return "unknown"
	}
}

func (n Newline) line() string {
	return delimiter + string(n)
}

var (
	// ErrMissingBeginningDelimiter is returned when the text does not start
	// with "---\n" or "---\r\n".
	ErrMissingBeginningDelimiter = errors.New("missing beginning front matter delimiter")

	// ErrMissingEndingDelimiter is returned when no closing delimiter with
	// the opening line terminator follows the opening delimiter.
	ErrMissingEndingDelimiter = errors.New("missing ending front matter delimiter")

	// ErrInvalidHeader is matched by every header decoding failure.
	ErrInvalidHeader = errors.New("invalid front matter header")
)

// HeaderError reports a header block that could not be decoded.
type HeaderError struct {
	// Err is the underlying YAML or schema diagnostic.
	Err error
}

func (e *HeaderError) Error() string {
	return ErrInvalidHeader.Error() + ": " + e.Err.Error()
}

func (e *HeaderError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidHeader.
func (e *HeaderError) Is(target error) bool {
	return target == ErrInvalidHeader
}

// Document is the result of a successful Parse.
type Document[H any] struct {
	// Headers is the decoded header record.
	Headers H

	// Body is the text after the closing delimiter line, unmodified. It
	// shares memory with the parsed text.
	Body string

	// Newline is the terminator the delimiter lines used.
	Newline Newline
}

// Parse splits text into a decoded header and a body. The header block is
// decoded as YAML and handed to decode, which maps it onto H.
func Parse[H any](text string, decode Decoder[H]) (Document[H], error) {
	var doc Document[H]

	nl, ok := opening(text)
	if !ok {
		return doc, ErrMissingBeginningDelimiter
	}

	line := nl.line()
	rest := text[len(line):]
	end := strings.Index(rest, line)
	if end < 0 {
		return doc, ErrMissingEndingDelimiter
	}

	headers, err := decodeHeader(rest[:end], decode)
	if err != nil {
		return doc, err
	}

	doc.Headers = headers
	doc.Body = rest[end+len(line):]
	doc.Newline = nl
	return doc, nil
}

// opening reports which delimiter variant text starts with.
func opening(text string) (Newline, bool) {
	switch {
	case strings.HasPrefix(text, LF.line()):
		return LF, true
	case strings.HasPrefix(text, CRLF.line()):
		return CRLF, true
	default:
		return "", false
	}
}

// decodeHeader decodes block as exactly one YAML document. A block holding
// a second document (after a "---" or "--- " line the delimiter search let
// through) is invalid.
func decodeHeader[H any](block string, decode Decoder[H]) (H, error) {
	var (
		zero H
		node yaml.Node
	)
	dec := yaml.NewDecoder(strings.NewReader(block))
	switch err := dec.Decode(&node); {
	case errors.Is(err, io.EOF):
		// Empty block: node stays the zero Node.
	case err != nil:
		return zero, &HeaderError{Err: err}
	default:
		var extra yaml.Node
		switch err := dec.Decode(&extra); {
		case errors.Is(err, io.EOF):
		case err != nil:
			return zero, &HeaderError{Err: err}
		default:
			return zero, &HeaderError{Err: errMultipleDocuments}
		}
	}

	headers, err := decode(&node)
	if err != nil {
		return zero, &HeaderError{Err: err}
	}
	return headers, nil
}

var errMultipleDocuments = errors.New("header holds more than one YAML document")
