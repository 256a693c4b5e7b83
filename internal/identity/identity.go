// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity assigns canonical identifiers to paper records and
// decides whether two records describe the same real-world paper.
// Implements: prd007-graph-core R1 (identity resolution);
//
//	docs/ARCHITECTURE.md § Identity Resolver.
//
// All functions are total: they never fail, for any input record. The
// duplicate heuristic trades false negatives for safety against false
// merges.
package identity

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// titleTokenLimit caps the title-derived fallback id, in runes.
const titleTokenLimit = 60

// CanonicalID derives the deterministic identity key for a record.
// Priority: DOI > provider id > arXiv id > open-access id > PubMed id >
// normalized-title fallback. Two true duplicates must produce the same key.
func CanonicalID(rec types.PaperRecord) string {
	ext := rec.External
	switch {
	case ext.DOI != "":
		return "doi:" + strings.ToLower(ext.DOI)
	case ext.ProviderID != "":
		return "paper:" + ext.ProviderID
	case ext.ArxivID != "":
		return "arxiv:" + ext.ArxivID
	case ext.OpenAccessID != "":
		return "oa:" + ext.OpenAccessID
	case ext.PubMedID != "":
		return "pmid:" + ext.PubMedID
	}

	slug := normalizeForID(rec.Title)
	// Truncate on a rune boundary: the slug keeps all Unicode letters.
	if r := []rune(slug); len(r) > titleTokenLimit {
		slug = string(r[:titleTokenLimit])
	}
	if slug == "" {
		slug = "untitled"
	}
	if rec.Year > 0 {
		return fmt.Sprintf("title:%s-%d", slug, rec.Year)
	}
	return "title:" + slug
}

// ResolvePaper assigns a canonical id only if the record has none.
// Idempotent: resolving twice never changes an assigned id.
func ResolvePaper(rec *types.PaperRecord) {
	if rec.ID == "" {
		rec.ID = CanonicalID(*rec)
	}
}

// Resolver applies configurable duplicate-detection thresholds.
type Resolver struct {
	cfg types.IdentityConfig
}

// NewResolver returns a resolver with the given thresholds. Zero-valued
// thresholds fall back to the documented defaults.
func NewResolver(cfg types.IdentityConfig) *Resolver {
	def := types.DefaultCoreConfig().Identity
	if cfg.TitleSimilarityAuthor <= 0 {
		cfg.TitleSimilarityAuthor = def.TitleSimilarityAuthor
	}
	if cfg.TitleSimilarityStrong <= 0 {
		cfg.TitleSimilarityStrong = def.TitleSimilarityStrong
	}
	return &Resolver{cfg: cfg}
}

// IsDuplicate reports whether a and b refer to the same paper. Any shared
// non-empty external identifier is decisive. Otherwise both records need a
// year and at least one author, and the decision falls to Jaccard title
// similarity gated by year and first-author agreement.
func (r *Resolver) IsDuplicate(a, b types.PaperRecord) bool {
	if sharedExternalID(a.External, b.External) {
		return true
	}

	if a.Year == 0 || b.Year == 0 || len(a.Authors) == 0 || len(b.Authors) == 0 {
		return false
	}

	sim := TitleSimilarity(a.Title, b.Title)
	sameYear := a.Year == b.Year
	sameFirst := normalizeAuthor(a.FirstAuthor()) == normalizeAuthor(b.FirstAuthor())

	if sim > r.cfg.TitleSimilarityAuthor && sameYear && sameFirst {
		return true
	}
	return sim > r.cfg.TitleSimilarityStrong && sameYear
}

// sharedExternalID reports whether any of the comparable identifier kinds
// is non-empty on both sides and matches exactly.
func sharedExternalID(a, b types.ExternalIDs) bool {
	pairs := [][2]string{
		{a.DOI, b.DOI},
		{a.ArxivID, b.ArxivID},
		{a.ProviderID, b.ProviderID},
		{a.OpenAccessID, b.OpenAccessID},
		{a.CorpusID, b.CorpusID},
	}
	for _, p := range pairs {
		if p[0] != "" && p[0] == p[1] {
			return true
		}
	}
	return false
}

// MergePapers reconciles two records for the same paper, field by field.
// Existing wins on identifier conflicts; richer collections and longer
// text win otherwise; counts take the maximum.
func MergePapers(existing, incoming types.PaperRecord) types.PaperRecord {
	merged := existing

	if merged.ID == "" {
		merged.ID = CanonicalID(existing)
	}
	merged.External = mergeExternalIDs(existing.External, incoming.External)

	if len(incoming.Authors) > len(merged.Authors) {
		merged.Authors = incoming.Authors
	}
	if len(incoming.Abstract) > len(merged.Abstract) {
		merged.Abstract = incoming.Abstract
	}
	merged.CitationCount = max(existing.CitationCount, incoming.CitationCount)
	merged.ReferenceCount = max(existing.ReferenceCount, incoming.ReferenceCount)
	merged.InfluentialCitationCount = max(existing.InfluentialCitationCount, incoming.InfluentialCitationCount)
	merged.FieldsOfStudy = unionStrings(existing.FieldsOfStudy, incoming.FieldsOfStudy)
	merged.PublicationTypes = unionStrings(existing.PublicationTypes, incoming.PublicationTypes)

	if merged.Title == "" {
		merged.Title = incoming.Title
	}
	if merged.Year == 0 {
		merged.Year = incoming.Year
	}
	if merged.Venue == "" {
		merged.Venue = incoming.Venue
	}
	if merged.URL == "" {
		merged.URL = incoming.URL
	}
	if merged.OpenAccessPDF == "" {
		merged.OpenAccessPDF = incoming.OpenAccessPDF
	}
	if merged.TLDR == "" {
		merged.TLDR = incoming.TLDR
	}
	if len(merged.Embedding) == 0 {
		merged.Embedding = incoming.Embedding
	}

	return merged
}

// mergeExternalIDs unions the identifier sets; existing wins on conflict.
func mergeExternalIDs(existing, incoming types.ExternalIDs) types.ExternalIDs {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return types.ExternalIDs{
		DOI:          pick(existing.DOI, incoming.DOI),
		ArxivID:      pick(existing.ArxivID, incoming.ArxivID),
		ProviderID:   pick(existing.ProviderID, incoming.ProviderID),
		CorpusID:     pick(existing.CorpusID, incoming.CorpusID),
		OpenAccessID: pick(existing.OpenAccessID, incoming.OpenAccessID),
		PubMedID:     pick(existing.PubMedID, incoming.PubMedID),
	}
}

// unionStrings appends elements of b not already in a. Order within each
// input is preserved; cross-input order is not significant.
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// TitleSimilarity returns the Jaccard similarity of the lower-cased,
// punctuation-stripped token sets of the two titles. 0 when either title
// has no tokens.
func TitleSimilarity(a, b string) float64 {
	ta := titleTokenSet(a)
	tb := titleTokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func titleTokenSet(title string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalizeText(title)) {
		set[tok] = struct{}{}
	}
	return set
}

// normalizeText lowercases and strips punctuation, keeping word breaks.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// normalizeForID strips everything but letters and digits.
func normalizeForID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeAuthor canonicalizes an author name for comparison.
func normalizeAuthor(name string) string {
	return normalizeText(name)
}
