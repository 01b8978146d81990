// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/docsmith/pkg/types"
)

var (
	// ErrEmptyTitle marks a document whose title is blank.
	ErrEmptyTitle = errors.New("empty title")

	// ErrDuplicateTitle marks a document whose title collides with another.
	ErrDuplicateTitle = errors.New("duplicate title")
)

// TitleKey is the comparison key for titles: trimmed, NFC-normalized and
// case-folded. Two documents collide when their keys are equal.
func TitleKey(title string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(title)))
}

// ValidateTitles returns one failure per document whose title is empty or
// shares its TitleKey with another document. Failures are ordered by path.
func ValidateTitles(docs []types.Document) []Failure {
	var failures []Failure
	groups := make(map[string][]int)

	for i, doc := range docs {
		key := TitleKey(doc.Title)
		if key == "" {
			failures = append(failures, Failure{Path: doc.Path, Kind: KindEmptyTitle, Err: ErrEmptyTitle})
			continue
		}
		groups[key] = append(groups[key], i)
	}

	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			others := make([]string, 0, len(members)-1)
			for _, j := range members {
				if j != i {
					others = append(others, docs[j].Path)
				}
			}
			sort.Strings(others)
			failures = append(failures, Failure{
				Path: docs[i].Path,
				Kind: KindDuplicateTitle,
				Err:  errors.Wrapf(ErrDuplicateTitle, "title %q is also used by %s", docs[i].Title, strings.Join(others, ", ")),
			})
		}
	}

	sort.SliceStable(failures, func(a, b int) bool { return failures[a].Path < failures[b].Path })
	return failures
}
