// Package models defines the shared data model for the issuer disclosure
// knowledge base: raw document listings, indexed chunks, and search results.
package models

import "time"

// SuperChunkIndex is the reserved index for the structured-extraction digest
// chunk of a financial statement. Ordinary chunks use indexes >= 0.
const SuperChunkIndex = -1

// RawDocument is a disclosure document as listed by the scraping collaborators.
// The URL is the identity key: documents are deduplicated by URL and never
// mutated after discovery.
type RawDocument struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"` // free text, multiple formats (see ingest.ParseDocumentDate)
	Type  string `json:"type"`
}

// ChunkMetadata travels with every chunk so search results can be cited
// without a second lookup.
type ChunkMetadata struct {
	IssuerName    string    `json:"issuerName"`
	DocumentTitle string    `json:"documentTitle"`
	DocumentType  string    `json:"documentType"`
	DocumentDate  string    `json:"documentDate"`
	ProcessedAt   time.Time `json:"processedAt"`
	RunID         string    `json:"runId,omitempty"`
}

// Chunk is the unit of retrieval: a bounded text span plus its embedding.
// ID is derived as issuerID_documentID_index, so reprocessing a document
// overwrites its chunks in place.
type Chunk struct {
	ID         string        `json:"id"`
	IssuerID   string        `json:"issuerId"`
	DocumentID string        `json:"documentId"`
	Index      int           `json:"index"`
	Text       string        `json:"text"`
	Embedding  []float64     `json:"-"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// IsSuperChunk reports whether this chunk is a structured-extraction digest.
func (c *Chunk) IsSuperChunk() bool {
	return c.Index == SuperChunkIndex
}

// SearchResult is a chunk ranked by cosine similarity against a query.
type SearchResult struct {
	ID         string        `json:"id"`
	Similarity float64       `json:"similarity"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
}
