package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk is a sub-document passage with its own embedding, used for
// passage-level retrieval under a parent link.
type Chunk struct {
	ID surrealmodels.RecordID `json:"id"`

	// Parent reference
	Link surrealmodels.RecordID `json:"link"`

	Content   string    `json:"content"`
	Position  int       `json:"position"` // order within the parent document
	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkInput is the input structure for creating chunks under a link.
type ChunkInput struct {
	Content   string    `json:"content"`
	Position  int       `json:"position"`
	Embedding []float32 `json:"embedding"`
}

// ChunkSearchResult is a chunk-level vector hit with denormalized
// parent-link attributes joined in. Chunk hits are never blended with
// keyword results.
type ChunkSearchResult struct {
	Content  string  `json:"content"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`

	// Parent link attributes
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	ForgeScore  float64 `json:"forge_score"`
	ContentType string  `json:"content_type,omitempty"`
}
