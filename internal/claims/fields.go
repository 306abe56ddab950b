// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// fieldKind is the semantic range inferred from a field name
type fieldKind int

const (
	kindPlain fieldKind = iota
	kindPercent
	kindRate
	kindYear
	kindScore
	kindCount
)

var kindTokens = []struct {
	kind   fieldKind
	tokens []string
}{
	{kindPercent, []string{"percent", "percentage", "pct"}},
	{kindRate, []string{"rate", "ratio", "proportion"}},
	{kindYear, []string{"year", "yr"}},
	{kindScore, []string{"confidence", "score", "probability"}},
	{kindCount, []string{"count", "num", "number", "qty", "quantity"}},
}

// inferKind classifies a field by its name. The first matching family in
// kindTokens wins, so "success_rate_pct" is a percentage.
func inferKind(name string) fieldKind {
	tokens := nameTokens(name)
	for _, family := range kindTokens {
		for _, want := range family.tokens {
			for _, tok := range tokens {
				if tok == want {
					return family.kind
				}
			}
		}
	}
	return kindPlain
}

// nameTokens splits snake_case, kebab-case, dotted and camelCase names
func nameTokens(name string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	var prev rune
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				flush()
			}
			cur.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
		prev = r
	}
	flush()
	return tokens
}

// leafName returns the last segment of a dotted path
func leafName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// lookup resolves a dotted path inside a claim value
func lookup(value map[string]any, path string) (any, bool) {
	var cur any = value
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// leaf is a scalar inside a claim value
type leaf struct {
	path  string
	value any
}

// leaves flattens value into dotted-path scalars, sorted by path
func leaves(value map[string]any) []leaf {
	var out []leaf
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if nested, ok := v.(map[string]any); ok {
				walk(path, nested)
				continue
			}
			out = append(out, leaf{path: path, value: v})
		}
	}
	walk("", value)
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// numeric converts a decoded JSON or YAML scalar to float64
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02", "2006-01"}

// orderable converts numbers and timestamps into comparable values
func orderable(v any) (float64, bool) {
	if t, ok := v.(time.Time); ok {
		return float64(t.UnixNano()), true
	}
	if s, ok := v.(string); ok {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return float64(t.UnixNano()), true
			}
		}
	}
	return numeric(v)
}

// isNull reports whether a value counts as missing
func isNull(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// inferredOrderings pairs fields such as period_start/period_end and
// start_date/end_date found in the claim value.
func inferredOrderings(value map[string]any) []OrderingRule {
	paths := make(map[string]bool)
	for _, l := range leaves(value) {
		paths[l.path] = true
	}
	var rules []OrderingRule
	for _, l := range leaves(value) {
		prefix, name := "", l.path
		if i := strings.LastIndexByte(l.path, '.'); i >= 0 {
			prefix, name = l.path[:i+1], l.path[i+1:]
		}
		var end string
		switch {
		case strings.HasSuffix(name, "_start"):
			end = strings.TrimSuffix(name, "_start") + "_end"
		case strings.HasPrefix(name, "start_"):
			end = "end_" + strings.TrimPrefix(name, "start_")
		case strings.HasPrefix(name, "begin_"):
			end = "end_" + strings.TrimPrefix(name, "begin_")
		default:
			continue
		}
		if paths[prefix+end] {
			rules = append(rules, OrderingRule{Start: l.path, End: prefix + end})
		}
	}
	return rules
}
