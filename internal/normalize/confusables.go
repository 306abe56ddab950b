// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package normalize

// confusables maps cross-script look-alikes onto the Latin letter they
// imitate. Only characters that render identically in common fonts are
// listed.
var confusables = map[rune]rune{
	// Cyrillic
	'А': 'A', 'а': 'a',
	'В': 'B', 'в': 'b',
	'Е': 'E', 'е': 'e',
	'Ѕ': 'S', 'ѕ': 's',
	'І': 'I', 'і': 'i',
	'Ј': 'J', 'ј': 'j',
	'К': 'K', 'к': 'k',
	'М': 'M', 'м': 'm',
	'Н': 'H', 'н': 'h',
	'О': 'O', 'о': 'o',
	'Р': 'P', 'р': 'p',
	'С': 'C', 'с': 'c',
	'Т': 'T', 'т': 't',
	'У': 'Y', 'у': 'y',
	'Х': 'X', 'х': 'x',
	'Ԁ': 'D', 'ԁ': 'd',
	'Һ': 'H', 'һ': 'h',
	'Ԛ': 'Q', 'ԛ': 'q',
	'Ԝ': 'W', 'ԝ': 'w',
	'ӏ': 'l',

	// Greek
	'Α': 'A', 'α': 'a',
	'Β': 'B',
	'Ε': 'E',
	'Ζ': 'Z',
	'Η': 'H',
	'Ι': 'I', 'ι': 'i',
	'Κ': 'K', 'κ': 'k',
	'Μ': 'M',
	'Ν': 'N', 'ν': 'v',
	'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'ρ': 'p',
	'Τ': 'T',
	'Υ': 'Y', 'υ': 'u',
	'Χ': 'X',

	// Armenian
	'օ': 'o', 'ս': 'u', 'հ': 'h', 'ո': 'n',

	// Latin look-alikes outside ASCII
	'ı': 'i', 'ȷ': 'j', 'ℓ': 'l',
}

func foldConfusable(r rune) rune {
	if mapped, ok := confusables[r]; ok {
		return mapped
	}
	return r
}
