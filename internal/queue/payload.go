package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/musicofhel/link-forge-sub001/internal/models"
)

// URLPayload builds a payload for a shared link. The dedup key is the
// canonical URL: scheme and host lowercased, fragment dropped, trailing
// slash trimmed from the path.
func URLPayload(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, ErrEmptyPayload
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Payload{}, fmt.Errorf("unsupported url scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return Payload{}, fmt.Errorf("url missing host: %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	canonical := u.String()
	return Payload{
		Kind: models.PayloadURL,
		Key:  canonical,
		Ref:  canonical,
	}, nil
}

// FilePayload builds a payload for an uploaded file. The dedup key is
// the SHA-256 of the content, so re-uploads of identical files collapse
// onto one job.
func FilePayload(path string, content []byte) (Payload, error) {
	if len(content) == 0 {
		return Payload{}, ErrEmptyPayload
	}

	sum := sha256.Sum256(content)
	return Payload{
		Kind: models.PayloadFile,
		Key:  hex.EncodeToString(sum[:]),
		Ref:  path,
	}, nil
}
