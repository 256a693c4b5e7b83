// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the graph core.
// Implements: prd007-graph-core (PaperRecord, GraphNode, GraphEdge, Cluster);
//
//	prd008-persistence (Snapshot, reducer payloads).
//
// See docs/ARCHITECTURE.md § Data Model.
package types

// Author is a single paper author. Order within PaperRecord.Authors is
// significant: the first entry is the first author used for duplicate
// detection.
type Author struct {
	// Name is the author's display name as returned by the provider.
	Name string `json:"name" yaml:"name"`

	// Affiliations lists institutional affiliations, when known.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`

	// URL is the provider's author page, when known.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ExternalIDs groups the provider-issued identifiers a paper may carry.
// Any subset may be present; an empty string means "not known".
type ExternalIDs struct {
	// DOI is the Digital Object Identifier (e.g. "10.1145/1234567.1234568").
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is the arXiv identifier (e.g. "2301.07041").
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// ProviderID is the metadata provider's own paper id.
	ProviderID string `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`

	// CorpusID is the provider's corpus-wide numeric id, as a string.
	CorpusID string `json:"corpus_id,omitempty" yaml:"corpus_id,omitempty"`

	// OpenAccessID is the open-access registry id.
	OpenAccessID string `json:"open_access_id,omitempty" yaml:"open_access_id,omitempty"`

	// PubMedID is the PubMed identifier.
	PubMedID string `json:"pubmed_id,omitempty" yaml:"pubmed_id,omitempty"`
}

// PaperRecord holds the bibliographic metadata for one research source as
// delivered by a collaborator search/citation provider. The core never
// fetches these itself.
type PaperRecord struct {
	// ID is the canonical id assigned by the identity resolver. Empty
	// until ResolvePaper has run.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// External holds the provider-issued identifiers.
	External ExternalIDs `json:"external" yaml:"external"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year; 0 means unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Venue is the publication venue.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// CitationCount is the number of citing papers known to the provider.
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// ReferenceCount is the number of referenced papers.
	ReferenceCount int `json:"reference_count,omitempty" yaml:"reference_count,omitempty"`

	// InfluentialCitationCount is the provider's influential-citation
	// count, when reported.
	InfluentialCitationCount int `json:"influential_citation_count,omitempty" yaml:"influential_citation_count,omitempty"`

	// FieldsOfStudy lists subject classifications.
	FieldsOfStudy []string `json:"fields_of_study,omitempty" yaml:"fields_of_study,omitempty"`

	// PublicationTypes lists provider publication-type tags.
	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`

	// OpenAccessPDF is the URL of a freely available PDF, when known.
	OpenAccessPDF string `json:"open_access_pdf,omitempty" yaml:"open_access_pdf,omitempty"`

	// URL is the paper's landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// TLDR is a provider-generated one-line summary.
	TLDR string `json:"tldr,omitempty" yaml:"tldr,omitempty"`

	// Embedding is an optional dense vector for the paper.
	Embedding []float64 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// FirstAuthor returns the name of the first author, or "" if none.
func (p PaperRecord) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0].Name
}
