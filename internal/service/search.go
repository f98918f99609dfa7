// Package service contains the retrieval engine and the ingestion
// worker loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/musicofhel/link-forge-sub001/internal/metrics"
	"github.com/musicofhel/link-forge-sub001/internal/models"
	"golang.org/x/sync/errgroup"
)

// Input validation errors, returned before any store query runs.
var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrEmptyEmbedding = errors.New("empty query embedding")
	ErrInvalidLimit   = errors.New("limit must be positive")
)

// Score blending weights: query relevance vs the stored usefulness
// signal.
const (
	relevanceWeight = 0.7
	forgeWeight     = 0.3
)

// keywordBaseScore is the initial score assigned to every keyword
// match before blending.
const keywordBaseScore = 1.0

// GraphSearcher is the read surface of the graph store consumed by the
// retrieval engine.
type GraphSearcher interface {
	VectorSearchLinks(ctx context.Context, embedding []float32, limit int) ([]models.VectorHit, error)
	KeywordSearchLinks(ctx context.Context, query string, limit int) ([]models.KeywordHit, error)
	VectorSearchChunks(ctx context.Context, embedding []float32, limit int) ([]models.ChunkSearchResult, error)
}

// Embedder generates embedding vectors for query and document text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Search is the hybrid retrieval engine.
type Search struct {
	store    GraphSearcher
	embedder Embedder
	metrics  *metrics.Collector
}

// NewSearch creates a retrieval engine over the given store. The
// embedder may be nil if callers always supply query embeddings.
func NewSearch(store GraphSearcher, embedder Embedder, collector *metrics.Collector) *Search {
	return &Search{store: store, embedder: embedder, metrics: collector}
}

// embedQuery resolves the query embedding, generating one from the
// query text when the caller did not supply it.
func (s *Search) embedQuery(ctx context.Context, query string, embedding []float32) ([]float32, error) {
	if len(embedding) > 0 {
		return embedding, nil
	}
	if s.embedder == nil {
		return nil, ErrEmptyEmbedding
	}

	start := time.Now()
	embedding, err := s.embedder.Embed(ctx, query)
	s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return embedding, nil
}

// HybridSearch runs the vector and keyword queries concurrently, merges
// the result sets by canonical URL, and re-ranks by blending query
// relevance with the stored forge score.
//
// Merge rules: a URL hit by one source keeps that source's score; a URL
// hit by both gets the arithmetic mean of the two, and keyword-sourced
// category/tags only fill fields the vector entry lacked. Final score is
// mergedScore*0.7 + forgeScore*0.3. Results sort descending; ties keep
// merge insertion order (vector hits in store order, then keyword-only
// hits in store order). If either sub-query fails the whole search
// fails.
func (s *Search) HybridSearch(ctx context.Context, query string, queryEmbedding []float32, limit int) ([]models.SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	embedding, err := s.embedQuery(ctx, query, queryEmbedding)
	if err != nil {
		return nil, err
	}

	searchStart := time.Now()
	var vectorHits []models.VectorHit
	var keywordHits []models.KeywordHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		hits, err := s.store.VectorSearchLinks(gctx, embedding, limit)
		s.metrics.RecordTiming(metrics.OpVectorSearch, time.Since(start), err)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		hits, err := s.store.KeywordSearchLinks(gctx, query, limit)
		s.metrics.RecordTiming(metrics.OpKeywordSearch, time.Since(start), err)
		if err != nil {
			return err
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordTiming(metrics.OpHybridSearch, time.Since(searchStart), err)
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	results := mergeHits(vectorHits, keywordHits)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.metrics.RecordTiming(metrics.OpHybridSearch, time.Since(searchStart), nil)
	return results, nil
}

// mergeHits combines the two result sets by URL, preserving insertion
// order, and applies the final score blend.
func mergeHits(vectorHits []models.VectorHit, keywordHits []models.KeywordHit) []models.SearchResult {
	merged := make([]models.SearchResult, 0, len(vectorHits)+len(keywordHits))
	byURL := make(map[string]int, len(vectorHits))

	for _, hit := range vectorHits {
		byURL[hit.URL] = len(merged)
		merged = append(merged, models.SearchResult{
			Link: models.Link{
				ID:          hit.ID,
				URL:         hit.URL,
				Title:       hit.Title,
				Description: hit.Description,
				ForgeScore:  hit.ForgeScore,
				ContentType: hit.ContentType,
				Quality:     hit.Quality,
			},
			Score:     hit.Score,
			MatchType: models.MatchVector,
		})
	}

	for _, hit := range keywordHits {
		if idx, ok := byURL[hit.URL]; ok {
			entry := &merged[idx]
			entry.Score = (entry.Score + keywordBaseScore) / 2
			// Keyword fields fill gaps only, never overwrite.
			if entry.CategoryName == nil {
				entry.CategoryName = hit.CategoryName
			}
			if len(entry.Tags) == 0 {
				entry.Tags = hit.Tags
			}
			continue
		}

		byURL[hit.URL] = len(merged)
		merged = append(merged, models.SearchResult{
			Link: models.Link{
				ID:          hit.ID,
				URL:         hit.URL,
				Title:       hit.Title,
				Description: hit.Description,
				ForgeScore:  hit.ForgeScore,
				ContentType: hit.ContentType,
				Quality:     hit.Quality,
			},
			Score:        keywordBaseScore,
			MatchType:    models.MatchKeyword,
			CategoryName: hit.CategoryName,
			Tags:         hit.Tags,
		})
	}

	for i := range merged {
		merged[i].Score = merged[i].Score*relevanceWeight + merged[i].Link.ForgeScore*forgeWeight
	}

	return merged
}

// ChunkSearch runs a vector query against the chunk-level embedding
// index. Chunk hits carry denormalized parent-link attributes and are
// never blended with keyword results.
func (s *Search) ChunkSearch(ctx context.Context, query string, queryEmbedding []float32, limit int) ([]models.ChunkSearchResult, error) {
	if query == "" && len(queryEmbedding) == 0 {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	embedding, err := s.embedQuery(ctx, query, queryEmbedding)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hits, err := s.store.VectorSearchChunks(ctx, embedding, limit)
	s.metrics.RecordTiming(metrics.OpChunkSearch, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("chunk search: %w", err)
	}
	return hits, nil
}
