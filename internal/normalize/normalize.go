// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package normalize canonicalizes field text so that spacing, punctuation,
// diacritics, homoglyphs and invisible characters cannot hide a term.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"affiliate-scan/internal/detector"
)

// MinCollapsedLength is the shortest term, in runes of its collapsed form,
// that may be matched through the collapsed fallback.
const MinCollapsedLength = 3

// Form holds the two canonical renderings of a string.
//
// Boundary keeps word boundaries as single spaces. Collapsed drops every
// separator. bounds lists the byte offsets in Collapsed where a token of
// Boundary starts or ends.
type Form struct {
	Boundary  string
	Collapsed string
	bounds    []int
}

// Func produces the canonical forms of a string. Normalize is the reference
// implementation; callers may substitute a memoizing wrapper.
type Func func(raw string) Form

// Normalize builds both canonical forms of raw. It is pure and safe for
// concurrent use.
func Normalize(raw string) Form {
	if raw == "" {
		return Form{}
	}

	s := strings.Map(dropInvisible, raw)
	s = norm.NFKC.String(s)
	s = strings.Map(foldConfusable, s)
	s, _, _ = transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	s = strings.ToLower(s)

	var boundary, collapsed strings.Builder
	boundary.Grow(len(s))
	collapsed.Grow(len(s))
	var bounds []int
	inToken := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if !inToken {
				if boundary.Len() > 0 {
					boundary.WriteByte(' ')
				}
				bounds = append(bounds, collapsed.Len())
				inToken = true
			}
			boundary.WriteRune(r)
			collapsed.WriteRune(r)
			continue
		}
		if inToken {
			bounds = append(bounds, collapsed.Len())
			inToken = false
		}
	}
	if inToken {
		bounds = append(bounds, collapsed.Len())
	}

	return Form{
		Boundary:  boundary.String(),
		Collapsed: collapsed.String(),
		bounds:    bounds,
	}
}

// IsEmpty reports whether the form carries no letters or digits
func (f Form) IsEmpty() bool {
	return f.Collapsed == ""
}

// Match reports how term occurs inside f.
//
// A word-boundary occurrence in the boundary form is preferred. The
// collapsed fallback only applies to terms of at least MinCollapsedLength
// runes and only accepts occurrences that start and end on token edges of
// f, so "h u a w e i" matches "huawei" but "aztec" never matches "zte".
func (f Form) Match(term Form) detector.MatchMode {
	if term.IsEmpty() || f.IsEmpty() {
		return detector.MatchNone
	}
	if strings.Contains(" "+f.Boundary+" ", " "+term.Boundary+" ") {
		return detector.MatchBoundary
	}
	if utf8.RuneCountInString(term.Collapsed) < MinCollapsedLength {
		return detector.MatchNone
	}
	for from := 0; from < len(f.Collapsed); {
		i := strings.Index(f.Collapsed[from:], term.Collapsed)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(term.Collapsed)
		if f.isBound(start) && f.isBound(end) {
			return detector.MatchCollapsed
		}
		_, size := utf8.DecodeRuneInString(f.Collapsed[start:])
		from = start + size
	}
	return detector.MatchNone
}

// Equal reports whether f and term name the same thing as a whole, either
// exactly or once separators are removed.
func (f Form) Equal(term Form) detector.MatchMode {
	if term.IsEmpty() || f.IsEmpty() {
		return detector.MatchNone
	}
	if f.Boundary == term.Boundary {
		return detector.MatchExact
	}
	if f.Collapsed == term.Collapsed {
		return detector.MatchCollapsed
	}
	return detector.MatchNone
}

// MatchIdentifier matches short codes and names of jurisdictions. A
// whole-field equality or a word-boundary occurrence always counts. The
// token-aligned collapsed occurrence counts only for identifiers of at least
// MinCollapsedLength runes, so "HongKong, China" names "Hong Kong" while
// two-letter codes never fire inside other words.
func (f Form) MatchIdentifier(term Form) detector.MatchMode {
	if mode := f.Equal(term); mode != detector.MatchNone {
		return mode
	}
	return f.Match(term)
}

func (f Form) isBound(offset int) bool {
	for _, b := range f.bounds {
		if b == offset {
			return true
		}
		if b > offset {
			return false
		}
	}
	return false
}

// dropInvisible removes format and zero-width code points
func dropInvisible(r rune) rune {
	if unicode.Is(unicode.Cf, r) || invisible[r] {
		return -1
	}
	return r
}

// invisible lists fillers outside the Cf category that render as blank
var invisible = map[rune]bool{
	'\u034F': true, // combining grapheme joiner
	'\u115F': true, // hangul choseong filler
	'\u1160': true, // hangul jungseong filler
	'\u3164': true, // hangul filler
	'\uFFA0': true, // halfwidth hangul filler
}
