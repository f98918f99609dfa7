package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/musicofhel/link-forge-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher is a scripted GraphSearcher.
type fakeSearcher struct {
	vectorHits  []models.VectorHit
	keywordHits []models.KeywordHit
	chunkHits   []models.ChunkSearchResult

	vectorErr  error
	keywordErr error
	chunkErr   error

	gotEmbedding []float32
	gotQuery     string
	gotLimit     int
}

func (f *fakeSearcher) VectorSearchLinks(ctx context.Context, embedding []float32, limit int) ([]models.VectorHit, error) {
	f.gotEmbedding = embedding
	f.gotLimit = limit
	return f.vectorHits, f.vectorErr
}

func (f *fakeSearcher) KeywordSearchLinks(ctx context.Context, query string, limit int) ([]models.KeywordHit, error) {
	f.gotQuery = query
	return f.keywordHits, f.keywordErr
}

func (f *fakeSearcher) VectorSearchChunks(ctx context.Context, embedding []float32, limit int) ([]models.ChunkSearchResult, error) {
	f.gotEmbedding = embedding
	f.gotLimit = limit
	return f.chunkHits, f.chunkErr
}

// fakeEmbedder returns a fixed vector for any input.
type fakeEmbedder struct {
	vec    []float32
	err    error
	called int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.called++
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}

func vectorHit(url string, score, forge float64) models.VectorHit {
	return models.VectorHit{URL: url, Title: url, Score: score, ForgeScore: forge}
}

func keywordHit(url string, forge float64, category string, tags ...string) models.KeywordHit {
	hit := models.KeywordHit{URL: url, Title: url, ForgeScore: forge, Tags: tags}
	if category != "" {
		hit.CategoryName = &category
	}
	return hit
}

var queryEmbedding = []float32{0.1, 0.2, 0.3}

func TestHybridSearchMergesDualHits(t *testing.T) {
	store := &fakeSearcher{
		vectorHits:  []models.VectorHit{vectorHit("https://a.example", 0.9, 0.5)},
		keywordHits: []models.KeywordHit{keywordHit("https://a.example", 0.5, "X", "go", "db")},
	}
	search := NewSearch(store, nil, nil)

	results, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// merged = (0.9+1.0)/2 = 0.95; final = 0.95*0.7 + 0.5*0.3 = 0.815
	assert.InDelta(t, 0.815, results[0].Score, 1e-9)
	assert.Equal(t, models.MatchVector, results[0].MatchType)
	require.NotNil(t, results[0].CategoryName)
	assert.Equal(t, "X", *results[0].CategoryName)
	assert.Equal(t, []string{"go", "db"}, results[0].Tags)
}

func TestHybridSearchKeywordOnlyPassthrough(t *testing.T) {
	store := &fakeSearcher{
		keywordHits: []models.KeywordHit{keywordHit("https://b.example", 0, "")},
	}
	search := NewSearch(store, nil, nil)

	results, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// keyword base 1.0, forge 0: final = 1.0*0.7 = 0.7
	assert.InDelta(t, 0.7, results[0].Score, 1e-9)
	assert.Equal(t, models.MatchKeyword, results[0].MatchType)
}

func TestHybridSearchVectorOnlyPassthrough(t *testing.T) {
	store := &fakeSearcher{
		vectorHits: []models.VectorHit{vectorHit("https://c.example", 0.8, 0.25)},
	}
	search := NewSearch(store, nil, nil)

	results, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// final = 0.8*0.7 + 0.25*0.3 = 0.635
	assert.InDelta(t, 0.635, results[0].Score, 1e-9)
	assert.Equal(t, models.MatchVector, results[0].MatchType)
}

func TestHybridSearchSortsAndTruncates(t *testing.T) {
	store := &fakeSearcher{}
	for i := 0; i < 20; i++ {
		// Scores 0.99, 0.98, ... interleaved out of order.
		score := float64(100-i) / 100
		store.vectorHits = append(store.vectorHits, vectorHit(fmt.Sprintf("https://site-%02d.example", i), 1-score, 0))
	}
	search := NewSearch(store, nil, nil)

	results, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "descending order")
	}
	// Highest vector score was the last hit (1 - 0.81 = 0.19).
	assert.Equal(t, "https://site-19.example", results[0].Link.URL)
}

func TestHybridSearchTieBreakKeepsMergeOrder(t *testing.T) {
	store := &fakeSearcher{
		vectorHits: []models.VectorHit{
			vectorHit("https://first.example", 0.5, 0),
			vectorHit("https://second.example", 0.5, 0),
		},
	}
	search := NewSearch(store, nil, nil)

	results, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)

	first := indexOf(results, "https://first.example")
	second := indexOf(results, "https://second.example")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "equal scores keep merge insertion order")
}

func indexOf(results []models.SearchResult, url string) int {
	for i, r := range results {
		if r.Link.URL == url {
			return i
		}
	}
	return -1
}

func TestHybridSearchFailFast(t *testing.T) {
	boom := errors.New("index unavailable")

	store := &fakeSearcher{
		vectorErr:   boom,
		keywordHits: []models.KeywordHit{keywordHit("https://a.example", 0, "")},
	}
	search := NewSearch(store, nil, nil)
	_, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	assert.ErrorIs(t, err, boom, "vector failure fails the whole search")

	store = &fakeSearcher{
		vectorHits: []models.VectorHit{vectorHit("https://a.example", 0.9, 0)},
		keywordErr: boom,
	}
	search = NewSearch(store, nil, nil)
	_, err = search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	assert.ErrorIs(t, err, boom, "keyword failure fails the whole search")
}

func TestHybridSearchRejectsMalformedInput(t *testing.T) {
	search := NewSearch(&fakeSearcher{}, nil, nil)
	ctx := context.Background()

	_, err := search.HybridSearch(ctx, "", queryEmbedding, 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = search.HybridSearch(ctx, "query", queryEmbedding, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = search.HybridSearch(ctx, "query", queryEmbedding, -3)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	// No embedding supplied and no embedder configured.
	_, err = search.HybridSearch(ctx, "query", nil, 10)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestHybridSearchEmbedsQueryWhenMissing(t *testing.T) {
	store := &fakeSearcher{}
	embedder := &fakeEmbedder{vec: []float32{0.4, 0.5, 0.6}}
	search := NewSearch(store, embedder, nil)

	_, err := search.HybridSearch(context.Background(), "pool sizing", nil, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.called)
	assert.Equal(t, embedder.vec, store.gotEmbedding)
	assert.Equal(t, "pool sizing", store.gotQuery)
}

func TestHybridSearchCallerEmbeddingSkipsEmbedder(t *testing.T) {
	store := &fakeSearcher{}
	embedder := &fakeEmbedder{vec: []float32{0.4}}
	search := NewSearch(store, embedder, nil)

	_, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, embedder.called)
	assert.Equal(t, queryEmbedding, store.gotEmbedding)
}

func TestHybridSearchKeywordFillsGapsOnly(t *testing.T) {
	categoryFromKeyword := "Databases"
	store := &fakeSearcher{
		vectorHits: []models.VectorHit{vectorHit("https://a.example", 0.9, 0)},
		keywordHits: []models.KeywordHit{
			keywordHit("https://a.example", 0, categoryFromKeyword, "sql"),
		},
	}
	search := NewSearch(store, nil, nil)

	results, err := search.HybridSearch(context.Background(), "query", queryEmbedding, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The vector entry had no category/tags, so keyword values fill in,
	// and the match stays attributed to the vector source.
	require.NotNil(t, results[0].CategoryName)
	assert.Equal(t, categoryFromKeyword, *results[0].CategoryName)
	assert.Equal(t, []string{"sql"}, results[0].Tags)
	assert.Equal(t, models.MatchVector, results[0].MatchType)
}

func TestChunkSearch(t *testing.T) {
	store := &fakeSearcher{
		chunkHits: []models.ChunkSearchResult{
			{Content: "passage", Position: 2, Score: 0.88, URL: "https://a.example", Title: "A", ForgeScore: 0.4},
		},
	}
	search := NewSearch(store, nil, nil)

	results, err := search.ChunkSearch(context.Background(), "query", queryEmbedding, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "passage", results[0].Content)
	assert.Equal(t, "https://a.example", results[0].URL)
	assert.Equal(t, 3, store.gotLimit)
}

func TestChunkSearchRejectsMalformedInput(t *testing.T) {
	search := NewSearch(&fakeSearcher{}, nil, nil)
	ctx := context.Background()

	_, err := search.ChunkSearch(ctx, "", nil, 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = search.ChunkSearch(ctx, "query", queryEmbedding, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
