// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identity

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pdiddy/rabbithole/pkg/types"
)

func defaultResolver() *Resolver {
	return NewResolver(types.IdentityConfig{})
}

// --- CanonicalID ---

func TestCanonicalIDPriority(t *testing.T) {
	tests := []struct {
		name string
		rec  types.PaperRecord
		want string
	}{
		{
			"doi wins over everything",
			types.PaperRecord{External: types.ExternalIDs{DOI: "10.1000/XYZ", ProviderID: "p1", ArxivID: "2301.07041"}},
			"doi:10.1000/xyz",
		},
		{
			"provider id before arxiv",
			types.PaperRecord{External: types.ExternalIDs{ProviderID: "abc123", ArxivID: "2301.07041"}},
			"paper:abc123",
		},
		{
			"arxiv before open access",
			types.PaperRecord{External: types.ExternalIDs{ArxivID: "2301.07041", OpenAccessID: "W123"}},
			"arxiv:2301.07041",
		},
		{
			"open access before pubmed",
			types.PaperRecord{External: types.ExternalIDs{OpenAccessID: "W123", PubMedID: "999"}},
			"oa:W123",
		},
		{
			"pubmed last identifier",
			types.PaperRecord{External: types.ExternalIDs{PubMedID: "999"}},
			"pmid:999",
		},
		{
			"title fallback with year",
			types.PaperRecord{Title: "Attention Is All You Need!", Year: 2017},
			"title:attentionisallyouneed-2017",
		},
		{
			"title fallback without year",
			types.PaperRecord{Title: "Attention Is All You Need"},
			"title:attentionisallyouneed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalID(tt.rec); got != tt.want {
				t.Errorf("CanonicalID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalIDNeverEmpty(t *testing.T) {
	// A record with no identifiers, no title, and no year still gets an id.
	got := CanonicalID(types.PaperRecord{})
	if got == "" {
		t.Fatal("CanonicalID returned empty for empty record")
	}
}

func TestCanonicalIDTruncatesLongTitles(t *testing.T) {
	rec := types.PaperRecord{Title: strings.Repeat("verylongword ", 20), Year: 2020}
	got := CanonicalID(rec)
	// "title:" + 60 chars + "-2020"
	if len(got) > len("title:")+60+len("-2020") {
		t.Errorf("id too long: %d chars (%q)", len(got), got)
	}
	if !strings.HasSuffix(got, "-2020") {
		t.Errorf("id should end with year suffix, got %q", got)
	}
}

func TestCanonicalIDTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte letters survive normalization; the byte at the cutoff
	// must never land inside a rune.
	rec := types.PaperRecord{Title: "a" + strings.Repeat("语", 70), Year: 2021}
	got := CanonicalID(rec)

	if !utf8.ValidString(got) {
		t.Fatalf("id is not valid UTF-8: %q", got)
	}
	slug := strings.TrimSuffix(strings.TrimPrefix(got, "title:"), "-2021")
	if n := utf8.RuneCountInString(slug); n != 60 {
		t.Errorf("slug rune count = %d, want 60", n)
	}
}

func TestResolvePaperIdempotent(t *testing.T) {
	rec := types.PaperRecord{Title: "Some Paper", Year: 2020}
	ResolvePaper(&rec)
	if rec.ID == "" {
		t.Fatal("ResolvePaper left id empty")
	}

	first := rec.ID
	rec.External.DOI = "10.1000/xyz" // would change the canonical id
	ResolvePaper(&rec)
	if rec.ID != first {
		t.Errorf("ResolvePaper changed an assigned id: %q -> %q", first, rec.ID)
	}
}

// --- IsDuplicate ---

func TestIsDuplicateSharedDOI(t *testing.T) {
	a := types.PaperRecord{Title: "Completely Different Title A", External: types.ExternalIDs{DOI: "10.1000/xyz"}}
	b := types.PaperRecord{Title: "Another Unrelated Thing", Year: 1999, External: types.ExternalIDs{DOI: "10.1000/xyz"}}

	if !defaultResolver().IsDuplicate(a, b) {
		t.Error("records sharing a DOI must be duplicates regardless of other fields")
	}
}

func TestIsDuplicateSharedCorpusID(t *testing.T) {
	a := types.PaperRecord{External: types.ExternalIDs{CorpusID: "12345"}}
	b := types.PaperRecord{External: types.ExternalIDs{CorpusID: "12345"}}
	if !defaultResolver().IsDuplicate(a, b) {
		t.Error("shared corpus id must be decisive")
	}
}

func TestIsDuplicateEmptyIDsNeverMatch(t *testing.T) {
	// Two records with all-empty external ids must not match on emptiness.
	a := types.PaperRecord{Title: "Paper A"}
	b := types.PaperRecord{Title: "Paper B"}
	if defaultResolver().IsDuplicate(a, b) {
		t.Error("empty identifiers must not count as shared")
	}
}

func TestIsDuplicateTitleHeuristic(t *testing.T) {
	base := types.PaperRecord{
		Title:   "Scaling Laws for Neural Language Models",
		Year:    2020,
		Authors: []types.Author{{Name: "Jared Kaplan"}},
	}

	tests := []struct {
		name string
		b    types.PaperRecord
		want bool
	}{
		{
			"same title same year same first author",
			types.PaperRecord{
				Title:   "Scaling Laws for Neural Language Models.",
				Year:    2020,
				Authors: []types.Author{{Name: "jared kaplan"}},
			},
			true,
		},
		{
			"identical title same year different author",
			types.PaperRecord{
				Title:   "Scaling Laws for Neural Language Models",
				Year:    2020,
				Authors: []types.Author{{Name: "Someone Else"}},
			},
			true, // similarity 1.0 > 0.95 strong threshold
		},
		{
			"same title different year",
			types.PaperRecord{
				Title:   "Scaling Laws for Neural Language Models",
				Year:    2021,
				Authors: []types.Author{{Name: "Jared Kaplan"}},
			},
			false,
		},
		{
			"no year on one side",
			types.PaperRecord{
				Title:   "Scaling Laws for Neural Language Models",
				Authors: []types.Author{{Name: "Jared Kaplan"}},
			},
			false,
		},
		{
			"no authors on one side",
			types.PaperRecord{
				Title: "Scaling Laws for Neural Language Models",
				Year:  2020,
			},
			false,
		},
		{
			"moderately similar title needs the author gate",
			types.PaperRecord{
				Title:   "Scaling Laws for Neural Language Models and Agents",
				Year:    2020,
				Authors: []types.Author{{Name: "Jared Kaplan"}},
			},
			false, // 5/7 ≈ 0.714 below both thresholds
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultResolver().IsDuplicate(base, tt.b); got != tt.want {
				t.Errorf("IsDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- TitleSimilarity ---

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "attention is all you need", "Attention Is All You Need!", 1.0},
		{"disjoint", "graph neural networks", "protein folding dynamics", 0.0},
		{"empty side", "", "anything", 0.0},
		{"half overlap", "alpha beta", "alpha gamma", 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("TitleSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}

// --- MergePapers ---

func TestMergePapers(t *testing.T) {
	existing := types.PaperRecord{
		ID:             "doi:10.1000/xyz",
		External:       types.ExternalIDs{DOI: "10.1000/xyz"},
		Title:          "Paper A",
		Authors:        []types.Author{{Name: "Smith"}},
		Abstract:       "Short.",
		CitationCount:  10,
		ReferenceCount: 40,
		FieldsOfStudy:  []string{"CS"},
		Venue:          "NeurIPS",
	}
	incoming := types.PaperRecord{
		External:       types.ExternalIDs{DOI: "10.9999/conflict", ArxivID: "2301.07041"},
		Title:          "Paper A (v2)",
		Authors:        []types.Author{{Name: "Smith"}, {Name: "Jones"}},
		Abstract:       "A much longer abstract with detail.",
		CitationCount:  25,
		ReferenceCount: 12,
		FieldsOfStudy:  []string{"CS", "Biology"},
		URL:            "https://example.org/paper-a",
		Embedding:      []float64{0.1, 0.2},
	}

	m := MergePapers(existing, incoming)

	if m.ID != "doi:10.1000/xyz" {
		t.Errorf("merged id = %q, want existing id", m.ID)
	}
	if m.External.DOI != "10.1000/xyz" {
		t.Errorf("existing must win DOI conflict, got %q", m.External.DOI)
	}
	if m.External.ArxivID != "2301.07041" {
		t.Errorf("arXiv id should be unioned in, got %q", m.External.ArxivID)
	}
	if len(m.Authors) != 2 {
		t.Errorf("richer author list should win, got %d entries", len(m.Authors))
	}
	if m.Abstract != incoming.Abstract {
		t.Error("longer abstract should win")
	}
	if m.CitationCount != 25 {
		t.Errorf("CitationCount = %d, want max 25", m.CitationCount)
	}
	if m.ReferenceCount != 40 {
		t.Errorf("ReferenceCount = %d, want max 40", m.ReferenceCount)
	}
	if len(m.FieldsOfStudy) != 2 {
		t.Errorf("FieldsOfStudy should be the union, got %v", m.FieldsOfStudy)
	}
	if m.URL != "https://example.org/paper-a" {
		t.Error("first non-empty URL should be taken")
	}
	if len(m.Embedding) != 2 {
		t.Error("embedding should be filled from incoming")
	}
	if m.Title != "Paper A" {
		t.Errorf("existing title should be preferred, got %q", m.Title)
	}
}

func TestMergePapersComputesIDWhenMissing(t *testing.T) {
	existing := types.PaperRecord{External: types.ExternalIDs{ArxivID: "2301.07041"}}
	m := MergePapers(existing, types.PaperRecord{})
	if m.ID != "arxiv:2301.07041" {
		t.Errorf("merged id = %q, want canonical id of existing", m.ID)
	}
}
