// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tier assigns a strategic-importance tier to a record from its
// name and description text. It is independent of affiliation detection.
package tier

import (
	"fmt"
	"strings"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/normalize"
)

// Rule names, in evaluation order. Commodity rules are named
// "commodity.<sub-category>".
const (
	RuleStrategicEntity         = "strategic_entity"
	RuleStrategicTechnology     = "strategic_technology"
	RuleGenericTechnology       = "generic_technology"
	RuleInsufficientDescription = "insufficient_description"
	RuleUnclassified            = "unclassified"
)

// Outcome is the tier and score a rule assigns
type Outcome struct {
	Tier  string  `yaml:"tier" json:"tier"`
	Score float64 `yaml:"score" json:"score"`
}

// Settings configure the outcome of each rule
type Settings struct {
	StrategicEntity         Outcome            `yaml:"strategic_entity" json:"strategic_entity"`
	StrategicTechnology     Outcome            `yaml:"strategic_technology" json:"strategic_technology"`
	Commodity               Outcome            `yaml:"commodity" json:"commodity"`
	CommodityScores         map[string]float64 `yaml:"commodity_scores" json:"commodity_scores"`
	GenericTechnology       Outcome            `yaml:"generic_technology" json:"generic_technology"`
	InsufficientDescription Outcome            `yaml:"insufficient_description" json:"insufficient_description"`
	Unclassified            Outcome            `yaml:"unclassified" json:"unclassified"`

	// MinDescriptionTokens is the word count below which a description is
	// too thin to classify.
	MinDescriptionTokens int `yaml:"min_description_tokens" json:"min_description_tokens"`
}

// DefaultSettings returns the default tier table
func DefaultSettings() Settings {
	return Settings{
		StrategicEntity:         Outcome{Tier: "TIER_1", Score: 0.95},
		StrategicTechnology:     Outcome{Tier: "TIER_1", Score: 0.85},
		Commodity:               Outcome{Tier: "TIER_3", Score: 0.30},
		CommodityScores:         map[string]float64{"critical_minerals": 0.60, "pharmaceuticals": 0.50},
		GenericTechnology:       Outcome{Tier: "TIER_2", Score: 0.50},
		InsufficientDescription: Outcome{Tier: "UNDETERMINED", Score: 0.0},
		Unclassified:            Outcome{Tier: "TIER_4", Score: 0.10},
		MinDescriptionTokens:    3,
	}
}

// Validate checks scores are within [0,1] and tiers are named
func (s Settings) Validate() error {
	outcomes := map[string]Outcome{
		RuleStrategicEntity:         s.StrategicEntity,
		RuleStrategicTechnology:     s.StrategicTechnology,
		"commodity":                 s.Commodity,
		RuleGenericTechnology:       s.GenericTechnology,
		RuleInsufficientDescription: s.InsufficientDescription,
		RuleUnclassified:            s.Unclassified,
	}
	for name, o := range outcomes {
		if strings.TrimSpace(o.Tier) == "" {
			return fmt.Errorf("tiers: %s has no tier name", name)
		}
		if o.Score < 0 || o.Score > 1 {
			return fmt.Errorf("tiers: %s score %.2f outside [0,1]", name, o.Score)
		}
	}
	for sub, score := range s.CommodityScores {
		if score < 0 || score > 1 {
			return fmt.Errorf("tiers: commodity %s score %.2f outside [0,1]", sub, score)
		}
	}
	if s.MinDescriptionTokens < 0 {
		return fmt.Errorf("tiers: min_description_tokens must be >= 0")
	}
	return nil
}

// Text is the classifiable content of a record
type Text struct {
	Names       []normalize.Form
	Description []normalize.Form
}

// Rule is one tagged predicate in the tier chain. Match returns the term
// that fired.
type Rule struct {
	Name    string
	Outcome Outcome
	Match   func(text Text) (string, bool)
}

// Classifier evaluates the tier rule chain
type Classifier struct {
	schema    detector.FieldSchema
	rules     []Rule
	normalize normalize.Func
}

// Option configures a Classifier
type Option func(*Classifier)

// WithNormalizer replaces the normalization function, e.g. with a memo
func WithNormalizer(fn normalize.Func) Option {
	return func(c *Classifier) {
		c.normalize = fn
	}
}

// NewClassifier builds the rule chain from the corpus taxonomies
func NewClassifier(c *corpus.Corpus, schema detector.FieldSchema, settings Settings, opts ...Option) *Classifier {
	cl := &Classifier{
		schema:    schema,
		rules:     BuildRules(c, settings),
		normalize: normalize.Normalize,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// BuildRules returns the chain in priority order: strategic entity,
// strategic technology, each commodity sub-category in corpus order,
// generic technology, insufficient description, then the terminal default.
func BuildRules(c *corpus.Corpus, s Settings) []Rule {
	rules := []Rule{
		{
			Name:    RuleStrategicEntity,
			Outcome: s.StrategicEntity,
			Match:   anyText(c.Terms(corpus.StrategicEntities)),
		},
		{
			Name:    RuleStrategicTechnology,
			Outcome: s.StrategicTechnology,
			Match:   anyText(c.Terms(corpus.StrategicTechnologies)),
		},
	}
	for _, sub := range c.CommodityOrder() {
		outcome := s.Commodity
		if score, ok := s.CommodityScores[sub]; ok {
			outcome.Score = score
		}
		rules = append(rules, Rule{
			Name:    corpus.CommodityPrefix + sub,
			Outcome: outcome,
			Match:   anyText(c.Terms(corpus.CommodityPrefix + sub)),
		})
	}
	minTokens := s.MinDescriptionTokens
	rules = append(rules,
		Rule{
			Name:    RuleGenericTechnology,
			Outcome: s.GenericTechnology,
			Match:   anyText(c.Terms(corpus.GenericTechnology)),
		},
		Rule{
			Name:    RuleInsufficientDescription,
			Outcome: s.InsufficientDescription,
			Match: func(text Text) (string, bool) {
				return "", descriptionTokens(text) < minTokens
			},
		},
		Rule{
			Name:    RuleUnclassified,
			Outcome: s.Unclassified,
			Match: func(Text) (string, bool) {
				return "", true
			},
		},
	)
	return rules
}

// Rules returns the rule names in evaluation order
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Classify assigns a tier to rec. The first rule that fires wins.
func (c *Classifier) Classify(rec detector.Record) detector.TierAssignment {
	text := c.text(rec)
	for _, rule := range c.rules {
		term, ok := rule.Match(text)
		if !ok {
			continue
		}
		return detector.TierAssignment{
			RecordRef:       rec.ID,
			Tier:            rule.Outcome.Tier,
			ImportanceScore: rule.Outcome.Score,
			Category:        rule.Name,
			Rule:            rule.Name,
			MatchedTerm:     term,
		}
	}
	return detector.TierAssignment{RecordRef: rec.ID, Category: RuleUnclassified, Rule: RuleUnclassified}
}

func (c *Classifier) text(rec detector.Record) Text {
	var t Text
	for _, field := range c.schema.Name {
		if f := c.normalize(rec.Value(field)); !f.IsEmpty() {
			t.Names = append(t.Names, f)
		}
	}
	for _, field := range c.schema.Description {
		if f := c.normalize(rec.Value(field)); !f.IsEmpty() {
			t.Description = append(t.Description, f)
		}
	}
	return t
}

func anyText(terms []corpus.Term) func(Text) (string, bool) {
	return func(text Text) (string, bool) {
		for _, term := range terms {
			for _, forms := range [][]normalize.Form{text.Names, text.Description} {
				for _, f := range forms {
					if f.Match(term.Form) != detector.MatchNone {
						return term.Raw, true
					}
				}
			}
		}
		return "", false
	}
}

func descriptionTokens(text Text) int {
	n := 0
	for _, f := range text.Description {
		n += len(strings.Fields(f.Boundary))
	}
	return n
}
