package queue

import (
	"testing"

	"github.com/musicofhel/link-forge-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLPayloadCanonicalization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"drops fragment", "https://example.com/page#section-2", "https://example.com/page"},
		{"trims trailing slash", "https://example.com/docs/", "https://example.com/docs"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"keeps query", "https://example.com/q?page=2", "https://example.com/q?page=2"},
		{"trims whitespace", "  https://example.com/a  ", "https://example.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := URLPayload(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, models.PayloadURL, payload.Kind)
			assert.Equal(t, tt.want, payload.Key)
			assert.Equal(t, payload.Key, payload.Ref)
		})
	}
}

func TestURLPayloadRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"ftp://example.com/file",
		"javascript:alert(1)",
		"https://",
		"not a url at all://",
	} {
		_, err := URLPayload(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestURLPayloadDedupEquivalence(t *testing.T) {
	a, err := URLPayload("https://Example.com/article/")
	require.NoError(t, err)
	b, err := URLPayload("https://example.com/article#top")
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key, "equivalent urls must share the dedup key")
}

func TestFilePayload(t *testing.T) {
	payload, err := FilePayload("/data/notes/go.md", []byte("# Go notes\n"))
	require.NoError(t, err)

	assert.Equal(t, models.PayloadFile, payload.Kind)
	assert.Equal(t, "/data/notes/go.md", payload.Ref)
	assert.Len(t, payload.Key, 64, "key is a hex sha-256")

	// Identical content at another path collapses onto the same key.
	other, err := FilePayload("/backup/go.md", []byte("# Go notes\n"))
	require.NoError(t, err)
	assert.Equal(t, payload.Key, other.Key)

	changed, err := FilePayload("/data/notes/go.md", []byte("# Go notes v2\n"))
	require.NoError(t, err)
	assert.NotEqual(t, payload.Key, changed.Key)
}

func TestFilePayloadRejectsEmpty(t *testing.T) {
	_, err := FilePayload("/data/empty.md", nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
