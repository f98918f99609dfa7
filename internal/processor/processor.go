// Package processor turns queue payloads into processed documents ready
// for embedding: URL payloads are fetched and reduced to readable text,
// file payloads are parsed as Markdown.
package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/musicofhel/link-forge-sub001/internal/models"
	"github.com/musicofhel/link-forge-sub001/internal/parser"
)

// ErrUnsupportedPayload indicates a job with a payload kind the
// processor does not know how to handle.
var ErrUnsupportedPayload = errors.New("unsupported payload kind")

// Document is the processed form of a payload, ready for embedding and
// graph writes.
type Document struct {
	URL         string
	Title       string
	Description string
	Text        string
	ContentType string

	// Category and Tags come from Markdown frontmatter; empty for URL
	// payloads.
	Category string
	Tags     []string

	// Chunks are passage-level splits of Text, in document order.
	Chunks []string
}

// Processor extracts documents from job payloads.
type Processor struct {
	client   *http.Client
	chunkCfg parser.ChunkConfig
}

// New creates a processor with the given fetch timeout for URL payloads.
func New(fetchTimeout time.Duration) *Processor {
	return &Processor{
		client:   &http.Client{Timeout: fetchTimeout},
		chunkCfg: parser.DefaultChunkConfig(),
	}
}

// Process extracts a document from the job's payload.
func (p *Processor) Process(ctx context.Context, job *models.QueueJob) (*Document, error) {
	var doc *Document
	var err error

	switch job.PayloadKind {
	case models.PayloadURL:
		doc, err = p.processURL(ctx, job.PayloadRef)
	case models.PayloadFile:
		doc, err = p.processFile(job.PayloadRef)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPayload, job.PayloadKind)
	}
	if err != nil {
		return nil, err
	}

	doc.Chunks = parser.ChunkText(doc.Text, p.chunkCfg)
	return doc, nil
}

// processURL fetches the page and reduces it to readable article text.
func (p *Processor) processURL(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "linkforge/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract readable content: %w", err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = rawURL
	}

	return &Document{
		URL:         rawURL,
		Title:       title,
		Description: strings.TrimSpace(article.Excerpt),
		Text:        strings.TrimSpace(article.TextContent),
		ContentType: "article",
	}, nil
}

// processFile reads a Markdown file, pulling title, description,
// category, and tags from YAML frontmatter when present.
func (p *Processor) processFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	doc := parser.ParseMarkdown(string(data))

	title := doc.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &Document{
		URL:         "file://" + path,
		Title:       title,
		Description: doc.GetFrontmatterString("description"),
		Text:        strings.TrimSpace(doc.Content),
		ContentType: "markdown",
		Category:    doc.GetFrontmatterString("category"),
		Tags:        doc.GetFrontmatterStringSlice("tags"),
	}, nil
}
