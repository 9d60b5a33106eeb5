// Copyright 2025 Email Triage Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package textproc provides text normalization for email content. All
// functions are pure transforms: they never fail and never touch external
// resources, since they run on the hot path before every classification.
package textproc

import (
	"sort"
	"strings"
	"unicode"
)

// Portuguese stopwords dropped by RemoveStopwords. Short function words only;
// anything domain-relevant stays.
var stopwords = map[string]struct{}{
	"e": {}, "a": {}, "o": {}, "que": {}, "de": {}, "do": {}, "da": {},
	"em": {}, "um": {}, "uma": {}, "para": {}, "com": {}, "na": {}, "no": {},
	"por": {}, "se": {}, "os": {}, "as": {}, "dos": {}, "das": {}, "é": {},
	"não": {}, "ao": {}, "como": {}, "mais": {}, "já": {}, "ou": {},
	"sua": {}, "seu": {}, "meu": {}, "minha": {}, "você": {}, "vc": {},
}

// Normalize lowercases the text, replaces every rune that is not a letter
// (accented letters included), digit, or whitespace with a space, collapses
// whitespace runs, and trims. Idempotent.
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// RemoveStopwords drops Portuguese stopwords and tokens of two characters or
// fewer from already-normalized text.
func RemoveStopwords(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, word := range fields {
		if len([]rune(word)) <= 2 {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// Truncate shortens text to at most maxLength characters, cutting at the last
// word boundary and appending an ellipsis. Text at or under the limit is
// returned unchanged.
func Truncate(text string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	truncated := string(runes[:maxLength])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// ExtractKeywords returns the topN most frequent tokens of normalized text
// after stopword removal, most frequent first. Ties break alphabetically so
// the result is deterministic.
func ExtractKeywords(text string, topN int) []string {
	if topN <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, word := range strings.Fields(RemoveStopwords(Normalize(text))) {
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > topN {
		words = words[:topN]
	}
	return words
}
