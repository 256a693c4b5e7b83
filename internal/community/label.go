// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package community

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"unicode"
)

// DefaultLabel names clusters whose member titles yield no usable tokens.
const DefaultLabel = "Uncategorized"

// palette is the fixed display-color cycle, assigned by cluster index.
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// stopWords excludes structural English tokens from cluster labels.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"via": {}, "using": {}, "toward": {}, "towards": {}, "based": {},
	"are": {}, "our": {}, "can": {}, "not": {}, "all": {}, "you": {},
	"its": {}, "their": {}, "this": {}, "that": {}, "what": {}, "when": {},
	"how": {}, "why": {}, "over": {}, "under": {}, "between": {},
	"approach": {}, "method": {}, "study": {}, "analysis": {},
	"survey": {}, "review": {}, "new": {}, "novel": {},
}

// LabelFromTitles derives a human-readable cluster label from member
// titles: the one to three most frequent case-normalized tokens longer
// than two characters, stop words removed, deduplicated per title before
// counting, title-cased and joined with " / ". Falls back to
// "Uncategorized" when nothing survives.
func LabelFromTitles(titles []string) string {
	counts := make(map[string]int)
	for _, title := range titles {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(title) {
			if len(tok) <= 2 {
				continue
			}
			if _, stop := stopWords[tok]; stop {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			counts[tok]++
		}
	}
	if len(counts) == 0 {
		return DefaultLabel
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	// Frequency descending, then lexicographic for determinism.
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}

	for i, tok := range tokens {
		tokens[i] = titleCase(tok)
	}
	return strings.Join(tokens, " / ")
}

// PaletteColor returns the display color for a cluster index, cycling.
func PaletteColor(index int) string {
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

// ColorFor deterministically colors an ad-hoc cluster by id hash.
func ColorFor(id string) string {
	h := fnv.New32a()
	fmt.Fprint(h, id)
	return palette[int(h.Sum32())%len(palette)]
}

func tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
