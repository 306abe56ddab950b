// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"affiliate-scan/internal/detector"
)

func TestNormalizeForms(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		boundary  string
		collapsed string
	}{
		{"plain", "Huawei Technologies Co., Ltd.", "huawei technologies co ltd", "huaweitechnologiescoltd"},
		{"spaced", "H u a w e i", "h u a w e i", "huawei"},
		{"hyphenated", "Hua-wei", "hua wei", "huawei"},
		{"diacritics", "Soci\u00e9te\u0301 G\u00e9n\u00e9rale", "societe generale", "societegenerale"},
		{"zero width", "Hua\u200bwei", "huawei", "huawei"},
		{"bom and soft hyphen", "\ufeffZ\u00adTE", "zte", "zte"},
		{"cyrillic homoglyphs", "\u041du\u0430w\u0435\u0456", "huawei", "huawei"},
		{"greek homoglyphs", "\u0396\u03a4\u0395 Corporation", "zte corporation", "ztecorporation"},
		{"full width", "\uff28\uff35\uff21\uff37\uff25\uff29", "huawei", "huawei"},
		{"punctuation runs", "  China -- (PRC)  ", "china prc", "chinaprc"},
		{"empty", "", "", ""},
		{"only separators", " - / ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Normalize(tt.in)
			assert.Equal(t, tt.boundary, f.Boundary)
			assert.Equal(t, tt.collapsed, f.Collapsed)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"H u a w e i Technologies", "\u041du\u0430w\u0435\u0456", "Soci\u00e9t\u00e9  G\u00e9n\u00e9rale", "\uff3a\uff34\uff25"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once.Boundary)
		assert.Equal(t, once.Boundary, twice.Boundary, in)
		assert.Equal(t, once.Collapsed, twice.Collapsed, in)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name  string
		field string
		term  string
		want  detector.MatchMode
	}{
		{"boundary", "Huawei Technologies", "huawei", detector.MatchBoundary},
		{"multi word boundary", "Shenzhen Huawei Technologies Ltd", "Huawei Technologies", detector.MatchBoundary},
		{"spaced obfuscation", "H u a w e i Technologies", "Huawei", detector.MatchCollapsed},
		{"hyphen obfuscation", "Hua-wei", "Huawei", detector.MatchCollapsed},
		{"substring of word rejected", "Aztec Supplies", "ZTE", detector.MatchNone},
		{"prefix of word rejected", "Huaweitech", "Huawei", detector.MatchNone},
		{"short term needs boundary", "Bocca Foods", "boc", detector.MatchNone},
		{"short term boundary ok", "BOC Aviation", "boc", detector.MatchBoundary},
		{"two rune term no collapsed fallback", "c n", "cn", detector.MatchNone},
		{"empty term", "anything", "", detector.MatchNone},
		{"empty field", "", "huawei", detector.MatchNone},
		{"no match", "Acme Corp", "huawei", detector.MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.field).Match(Normalize(tt.term)))
		})
	}
}

// Inserting a single space or hyphen anywhere in a name of three or more
// runes must not hide it.
func TestMatchSingleSeparatorInsertion(t *testing.T) {
	names := []string{"Huawei", "ZTE", "Hikvision", "Dahua Technology", "China Mobile"}
	for _, name := range names {
		term := Normalize(name)
		for i := 1; i < len(name); i++ {
			for _, sep := range []string{" ", "-"} {
				obfuscated := name[:i] + sep + name[i:]
				field := Normalize("Supplier: " + obfuscated + " Ltd")
				assert.NotEqual(t, detector.MatchNone, field.Match(term), obfuscated)
			}
		}
	}
}

func TestEqual(t *testing.T) {
	assert.Equal(t, detector.MatchExact, Normalize("Hong Kong").Equal(Normalize("hong  kong")))
	assert.Equal(t, detector.MatchCollapsed, Normalize("HongKong").Equal(Normalize("Hong Kong")))
	assert.Equal(t, detector.MatchNone, Normalize("Hong Kong SAR").Equal(Normalize("Hong Kong")))
	assert.Equal(t, detector.MatchNone, Normalize("").Equal(Normalize("")))
}

func TestMatchLongInput(t *testing.T) {
	field := Normalize(strings.Repeat("ab ", 500) + "z t e")
	assert.Equal(t, detector.MatchCollapsed, field.Match(Normalize("zte")))
}

func TestMatchIdentifier(t *testing.T) {
	tests := []struct {
		field string
		id    string
		want  detector.MatchMode
	}{
		{"CN", "cn", detector.MatchExact},
		{"C.N.", "CN", detector.MatchCollapsed},
		{"Beijing, China", "China", detector.MatchBoundary},
		{"Cnty of Orange", "CN", detector.MatchNone},
		{"Hong-Kong", "Hong Kong", detector.MatchExact},
		{"HongKong", "Hong Kong", detector.MatchCollapsed},
		{"Hongkongese Trading", "Hong Kong", detector.MatchNone},
		{"HongKong, China", "Hong Kong", detector.MatchCollapsed},
		{"C h i n a", "China", detector.MatchCollapsed},
		{"Chinatown Foods", "China", detector.MatchNone},
		{"C N Tower", "CN", detector.MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.field).MatchIdentifier(Normalize(tt.id)))
		})
	}
}
