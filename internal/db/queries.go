// Package db provides SurrealDB query functions for link graph operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/musicofhel/link-forge-sub001/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// GetLinkByURL retrieves a link node by its canonical URL.
// Returns nil if not found.
func (c *Client) GetLinkByURL(ctx context.Context, url string) (*models.Link, error) {
	results, err := surrealdb.Query[[]models.Link](ctx, c.db, `
		SELECT * FROM link WHERE url = $url LIMIT 1
	`, map[string]any{"url": url})
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpsertLink creates or updates a link node keyed by canonical URL.
// Returns the stored link after the write.
func (c *Client) UpsertLink(ctx context.Context, input models.LinkInput) (*models.Link, error) {
	existing, err := c.GetLinkByURL(ctx, input.URL)
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"url":          input.URL,
		"title":        input.Title,
		"description":  input.Description,
		"content":      input.Content,
		"embedding":    input.Embedding,
		"forge_score":  input.ForgeScore,
		"content_type": input.ContentType,
		"quality":      input.Quality,
	}

	var sql string
	if existing != nil {
		sql = `
			UPDATE $id SET
				title = $title,
				description = $description,
				content = $content,
				embedding = $embedding,
				forge_score = $forge_score,
				content_type = $content_type,
				quality = $quality,
				updated_at = time::now()
			RETURN AFTER
		`
		vars["id"] = existing.ID
	} else {
		sql = `
			CREATE link SET
				url = $url,
				title = $title,
				description = $description,
				content = $content,
				embedding = $embedding,
				forge_score = $forge_score,
				content_type = $content_type,
				quality = $quality
			RETURN AFTER
		`
	}

	results, err := surrealdb.Query[[]models.Link](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("upsert link: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert link: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// SetForgeScore updates the usefulness signal on a link.
func (c *Client) SetForgeScore(ctx context.Context, url string, score float64) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE link SET forge_score = $score, updated_at = time::now() WHERE url = $url
	`, map[string]any{"url": url, "score": score})
	if err != nil {
		return fmt.Errorf("set forge score: %w", err)
	}
	return nil
}

// ReplaceChunks deletes all chunks under a link and recreates them.
// Called by the worker after reprocessing a document.
func (c *Client) ReplaceChunks(ctx context.Context, link *models.Link, chunks []models.ChunkInput) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE chunk WHERE link = $link
	`, map[string]any{"link": link.ID})
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err := surrealdb.Query[any](ctx, c.db, `
			CREATE chunk SET
				link = $link,
				content = $content,
				position = $position,
				embedding = $embedding
		`, map[string]any{
			"link":      link.ID,
			"content":   chunk.Content,
			"position":  chunk.Position,
			"embedding": chunk.Embedding,
		})
		if err != nil {
			return fmt.Errorf("create chunk %d: %w", chunk.Position, wrapQueryError(err))
		}
	}

	return nil
}

// slugify converts a display name into a stable record id fragment.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	return strings.Trim(slug, "-")
}

// AttachCategory ensures the named category node exists and relates the
// link to it. Category record ids are slugs so the ensure is idempotent.
func (c *Client) AttachCategory(ctx context.Context, link *models.Link, name string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("category", $slug) SET name = $name;
		RELATE $link->categorized_as->type::record("category", $slug);
	`, map[string]any{
		"slug": slugify(name),
		"name": name,
		"link": link.ID,
	})
	// The unique edge index rejects a repeat RELATE; the relation is
	// already in place, so that is a success.
	if err != nil && !errors.Is(wrapQueryError(err), ErrAlreadyExists) {
		return fmt.Errorf("attach category: %w", wrapQueryError(err))
	}
	return nil
}

// AttachTags ensures tag nodes exist and relates the link to each.
func (c *Client) AttachTags(ctx context.Context, link *models.Link, names []string) error {
	for _, name := range names {
		_, err := surrealdb.Query[any](ctx, c.db, `
			UPSERT type::record("tag", $slug) SET name = $name;
			RELATE $link->tagged_with->type::record("tag", $slug);
		`, map[string]any{
			"slug": slugify(name),
			"name": name,
			"link": link.ID,
		})
		if err != nil && !errors.Is(wrapQueryError(err), ErrAlreadyExists) {
			return fmt.Errorf("attach tag %q: %w", name, wrapQueryError(err))
		}
	}
	return nil
}

// VectorSearchLinks performs approximate nearest-neighbor search over
// the document-level embedding index. Scores are cosine similarity,
// higher is more similar. Returns up to limit hits in descending score
// order.
func (c *Client) VectorSearchLinks(ctx context.Context, embedding []float32, limit int) ([]models.VectorHit, error) {
	// KNN operand count must be a literal, so limit is formatted in.
	// ef=40 for better HNSW recall.
	sql := fmt.Sprintf(`
		SELECT id, url, title, description, forge_score, content_type, quality,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM link
		WHERE embedding <|%d,40|> $emb
		ORDER BY score DESC
	`, limit)

	results, err := surrealdb.Query[[]models.VectorHit](ctx, c.db, sql, map[string]any{
		"emb": embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search links: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.VectorHit{}, nil
	}
	return (*results)[0].Result, nil
}

// KeywordSearchLinks performs BM25 full-text matching over link title
// and description, resolving category and tag names through the graph
// edges. Hit scoring is left to the caller (every keyword match counts
// equally).
func (c *Client) KeywordSearchLinks(ctx context.Context, query string, limit int) ([]models.KeywordHit, error) {
	results, err := surrealdb.Query[[]models.KeywordHit](ctx, c.db, `
		SELECT id, url, title, description, forge_score, content_type, quality,
			(->categorized_as->category.name)[0] AS category_name,
			->tagged_with->tag.name AS tags
		FROM link
		WHERE title @0@ $q OR description @1@ $q
		LIMIT $limit
	`, map[string]any{"q": query, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("keyword search links: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.KeywordHit{}, nil
	}
	return (*results)[0].Result, nil
}

// VectorSearchChunks performs nearest-neighbor search over the
// chunk-level embedding index, joining denormalized parent-link
// attributes. Same scoring and ordering conventions as the
// document-level query.
func (c *Client) VectorSearchChunks(ctx context.Context, embedding []float32, limit int) ([]models.ChunkSearchResult, error) {
	sql := fmt.Sprintf(`
		SELECT content, position,
			vector::similarity::cosine(embedding, $emb) AS score,
			link.url AS url,
			link.title AS title,
			link.forge_score AS forge_score,
			link.content_type AS content_type
		FROM chunk
		WHERE embedding <|%d,40|> $emb
		ORDER BY score DESC
	`, limit)

	results, err := surrealdb.Query[[]models.ChunkSearchResult](ctx, c.db, sql, map[string]any{
		"emb": embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search chunks: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.ChunkSearchResult{}, nil
	}
	return (*results)[0].Result, nil
}
