package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Link represents a shared link node in the knowledge graph.
type Link struct {
	ID          surrealmodels.RecordID `json:"id"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Content     string                 `json:"content,omitempty"`
	Embedding   []float32              `json:"embedding,omitempty"`

	// ForgeScore is the precomputed 0-1 usefulness signal blended
	// into retrieval ranking.
	ForgeScore  float64 `json:"forge_score"`
	ContentType string  `json:"content_type,omitempty"`
	Quality     *string `json:"quality,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkInput is the input structure for creating or updating a link node.
type LinkInput struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	Embedding   []float32 `json:"embedding"`
	ForgeScore  float64   `json:"forge_score"`
	ContentType string    `json:"content_type,omitempty"`
	Quality     *string   `json:"quality,omitempty"`
}

// MatchType records which retrieval path produced a search result.
type MatchType string

const (
	MatchVector  MatchType = "vector"
	MatchKeyword MatchType = "keyword"
)

// SearchResult is an ephemeral, per-query ranked hit. Not persisted.
type SearchResult struct {
	Link         Link      `json:"link"`
	Score        float64   `json:"score"`
	MatchType    MatchType `json:"match_type"`
	CategoryName *string   `json:"category_name,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
}

// VectorHit is a typed row from the document-level vector index.
// Flat on purpose: rows decode directly from the query result, the
// core never touches raw rows.
type VectorHit struct {
	ID          surrealmodels.RecordID `json:"id"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	ForgeScore  float64                `json:"forge_score"`
	ContentType string                 `json:"content_type,omitempty"`
	Quality     *string                `json:"quality,omitempty"`
	Score       float64                `json:"score"`
}

// KeywordHit is a typed row from the keyword (full-text) query, with
// category and tag names resolved via graph edges.
type KeywordHit struct {
	ID          surrealmodels.RecordID `json:"id"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	ForgeScore  float64                `json:"forge_score"`
	ContentType string                 `json:"content_type,omitempty"`
	Quality     *string                `json:"quality,omitempty"`

	CategoryName *string  `json:"category_name,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}
