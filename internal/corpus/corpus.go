// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package corpus loads the curated keyword, entity and taxonomy lists that
// drive detection and tiering. A loaded Corpus is immutable and may be
// shared by any number of goroutines.
package corpus

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/normalize"
)

// Category names understood by the pipeline
const (
	TargetEntities         = "target_entities"
	TargetJurisdictions    = "target_jurisdictions"
	ExcludedJurisdictions  = "excluded_jurisdictions"
	Exclusions             = "exclusions"
	ProductOriginPhrases   = "product_origin_phrases"
	StrategicEntities      = "strategic_entities"
	StrategicTechnologies  = "strategic_technologies"
	GenericTechnology      = "generic_technology"
	CommodityPrefix        = "commodity."
	defaultCorpusSourceTag = "embedded:default.yaml"
)

// RequiredCategories must be present and non-empty in every corpus
var RequiredCategories = []string{
	TargetEntities,
	TargetJurisdictions,
	ExcludedJurisdictions,
	Exclusions,
	ProductOriginPhrases,
	StrategicEntities,
	StrategicTechnologies,
	GenericTechnology,
}

var (
	ErrMissingCategory = errors.New("corpus category missing")
	ErrEmptyCategory   = errors.New("corpus category empty")
	ErrCommodityOrder  = errors.New("corpus commodity order invalid")
)

//go:embed data/default.yaml
var defaultCorpusYAML []byte

// File is the on-disk corpus layout
type File struct {
	Version        string              `yaml:"version"`
	CommodityOrder []string            `yaml:"commodity_order"`
	Categories     map[string][]string `yaml:"categories"`
}

// Term is a corpus entry with its precomputed canonical forms
type Term struct {
	Raw  string
	Form normalize.Form
}

// Corpus is a validated, normalized set of categories
type Corpus struct {
	version        string
	source         string
	commodityOrder []string
	terms          map[string][]Term
	origins        []OriginPhrase
	phraseTokens   [][]string
	targetTokens   [][]string
}

// OriginGap is the number of filler words allowed between an origin phrase
// and the jurisdiction it names, as in "made in the PRC".
const OriginGap = 2

// originFillers are the words that may sit inside that gap
var originFillers = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "was": true, "from": true,
}

// OriginPhrase is a product-origin phrase bound to one target jurisdiction
// identifier, e.g. "made in" + "China".
type OriginPhrase struct {
	Phrase       string
	Jurisdiction string
	Form         normalize.Form
}

// Load reads and validates a corpus file
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading corpus file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	c.source = path
	return c, nil
}

// Default returns the corpus bundled with the binary
func Default() (*Corpus, error) {
	c, err := Parse(defaultCorpusYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded corpus: %w", err)
	}
	c.source = defaultCorpusSourceTag
	return c, nil
}

// LoadOrDefault loads path, or the bundled corpus when path is empty
func LoadOrDefault(path string) (*Corpus, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes and validates corpus YAML
func Parse(data []byte) (*Corpus, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing corpus: %w", err)
	}
	return New(f)
}

// New validates f and precomputes normalized forms for every term.
// Duplicate terms are dropped. Terms within a category are ordered longest
// first so the most specific entry wins.
func New(f File) (*Corpus, error) {
	c := &Corpus{
		version: f.Version,
		terms:   make(map[string][]Term, len(f.Categories)),
	}

	for name, values := range f.Categories {
		c.terms[name] = buildTerms(values)
	}

	for _, name := range RequiredCategories {
		if err := c.require(name); err != nil {
			return nil, err
		}
	}

	if len(f.CommodityOrder) == 0 {
		return nil, fmt.Errorf("%w: commodity_order is empty", ErrCommodityOrder)
	}
	seen := make(map[string]bool)
	for _, sub := range f.CommodityOrder {
		if seen[sub] {
			return nil, fmt.Errorf("%w: %q listed twice", ErrCommodityOrder, sub)
		}
		seen[sub] = true
		if err := c.require(CommodityPrefix + sub); err != nil {
			return nil, err
		}
		c.commodityOrder = append(c.commodityOrder, sub)
	}

	for _, phrase := range c.terms[ProductOriginPhrases] {
		for _, id := range c.terms[TargetJurisdictions] {
			c.origins = append(c.origins, OriginPhrase{
				Phrase:       phrase.Raw,
				Jurisdiction: id.Raw,
				Form:         normalize.Normalize(phrase.Form.Boundary + " " + id.Form.Boundary),
			})
		}
		c.phraseTokens = append(c.phraseTokens, strings.Fields(phrase.Form.Boundary))
	}
	for _, id := range c.terms[TargetJurisdictions] {
		c.targetTokens = append(c.targetTokens, strings.Fields(id.Form.Boundary))
	}

	return c, nil
}

func (c *Corpus) require(name string) error {
	terms, ok := c.terms[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingCategory, name)
	}
	if len(terms) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyCategory, name)
	}
	return nil
}

func buildTerms(values []string) []Term {
	seen := make(map[string]bool, len(values))
	terms := make([]Term, 0, len(values))
	for _, v := range values {
		form := normalize.Normalize(v)
		if form.IsEmpty() || seen[form.Boundary] {
			continue
		}
		seen[form.Boundary] = true
		terms = append(terms, Term{Raw: strings.TrimSpace(v), Form: form})
	}
	sort.SliceStable(terms, func(i, j int) bool {
		li := utf8.RuneCountInString(terms[i].Form.Collapsed)
		lj := utf8.RuneCountInString(terms[j].Form.Collapsed)
		if li != lj {
			return li > lj
		}
		return terms[i].Form.Boundary < terms[j].Form.Boundary
	})
	return terms
}

// Terms returns the normalized terms of a category. The slice must not be
// modified.
func (c *Corpus) Terms(category string) []Term {
	return c.terms[category]
}

// ProductOrigin returns the first origin phrase naming a target
// jurisdiction that occurs in text. The jurisdiction may follow the phrase
// directly or after up to OriginGap filler words.
func (c *Corpus) ProductOrigin(text normalize.Form) (OriginPhrase, bool) {
	if text.IsEmpty() {
		return OriginPhrase{}, false
	}
	for _, o := range c.origins {
		if text.Match(o.Form) != detector.MatchNone {
			return o, true
		}
	}

	tokens := strings.Fields(text.Boundary)
	for pi, phrase := range c.phraseTokens {
		for start := 0; start+len(phrase) <= len(tokens); start++ {
			if !hasPrefix(tokens[start:], phrase) {
				continue
			}
			after := start + len(phrase)
			for at := after; at < len(tokens) && at <= after+OriginGap; at++ {
				for ti, target := range c.targetTokens {
					if hasPrefix(tokens[at:], target) {
						return OriginPhrase{
							Phrase:       c.terms[ProductOriginPhrases][pi].Raw,
							Jurisdiction: c.terms[TargetJurisdictions][ti].Raw,
							Form:         normalize.Normalize(strings.Join(tokens[start:at+len(target)], " ")),
						}, true
					}
				}
				if !originFillers[tokens[at]] {
					break
				}
			}
		}
	}
	return OriginPhrase{}, false
}

func hasPrefix(tokens, prefix []string) bool {
	if len(prefix) == 0 || len(prefix) > len(tokens) {
		return false
	}
	for i, t := range prefix {
		if tokens[i] != t {
			return false
		}
	}
	return true
}

// CommodityOrder returns commodity sub-category names in evaluation order
func (c *Corpus) CommodityOrder() []string {
	return append([]string(nil), c.commodityOrder...)
}

// Version is the corpus' declared version string
func (c *Corpus) Version() string {
	return c.version
}

// Source describes where the corpus was loaded from
func (c *Corpus) Source() string {
	return c.source
}

// Categories returns all category names, sorted
func (c *Corpus) Categories() []string {
	names := make([]string, 0, len(c.terms))
	for name := range c.terms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of distinct terms in a category
func (c *Corpus) Count(category string) int {
	return len(c.terms[category])
}
