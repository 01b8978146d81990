// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package frontmatter splits a leading YAML header from a Markdown body.
//
// A document opens with a delimiter line, "---" followed by either "\n" or
// "\r\n". The header runs until the first later occurrence of the same
// delimiter pattern, and everything after that closing delimiter is the body.
//
//	type Headers struct {
//		Title string `yaml:"title"`
//	}
//
//	doc, err := frontmatter.Parse(text, frontmatter.Fields[Headers]("title"))
//	if errors.Is(err, frontmatter.ErrMissingBeginningDelimiter) {
//		// not a front-matter document
//	}
//
// The closing delimiter is located with a plain substring search, so a "---"
// at the end of a header line (for example "title: x---\n") closes the
// header. Format quotes string values when needed so that its output never
// contains an early delimiter, and fails with [ErrUnencodableHeader] when it
// cannot.
//
// # Errors
//
// Failures fall into three kinds, checked in order:
//
//   - [ErrMissingBeginningDelimiter]: the text does not open with a delimiter line
//   - [ErrMissingEndingDelimiter]: no closing delimiter follows the opening one
//   - [ErrInvalidHeader]: the header is not valid YAML, holds more than one
//     YAML document, or does not fit the schema
//
// Header failures are returned as [*HeaderError], which carries the decoder
// diagnostic and matches [ErrInvalidHeader] under errors.Is.
package frontmatter
