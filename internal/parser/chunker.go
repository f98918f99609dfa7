package parser

import (
	"strings"
	"unicode"
)

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// Threshold: only chunk if content exceeds this length
	Threshold int
	// TargetSize: ideal chunk size
	TargetSize int
	// MaxSize: maximum chunk size (larger paragraphs split at sentences)
	MaxSize int
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Threshold:  1500,
		TargetSize: 750,
		MaxSize:    1000,
	}
}

// ChunkText splits extracted document text into paragraph chunks for
// passage-level embedding. Short documents come back as a single chunk
// at position 0.
func ChunkText(text string, config ChunkConfig) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= config.Threshold {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Flush before the chunk would exceed the cap
		if current.Len()+len(para) > config.MaxSize && current.Len() > 0 {
			flush()
		}

		// A single oversized paragraph splits at sentence boundaries
		if len(para) > config.MaxSize {
			flush()
			chunks = append(chunks, chunkBySentences(para, config.TargetSize)...)
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	flush()
	return chunks
}

// chunkBySentences packs sentences into chunks of roughly targetSize.
func chunkBySentences(text string, targetSize int) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current.Len()+len(sentence) > targetSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace, with a small heuristic to skip abbreviations.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				if i > 1 && unicode.IsUpper(runes[i-1]) {
					continue // likely an abbreviation like "Dr."
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
