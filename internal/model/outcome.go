package model

import (
	"encoding/hex"
	"mime"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// FetchOutcome is the raw result of a single successful fetch.
type FetchOutcome struct {
	// Content is the response body, converted to UTF-8 when the
	// fetcher knows the charset.
	Content []byte `json:"-"`

	StatusCode int           `json:"status_code"`
	Elapsed    time.Duration `json:"elapsed"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url"`

	// ContentType is the media type without parameters, e.g. "text/html".
	ContentType string `json:"content_type,omitempty"`

	// ETag is the validator returned by the server, if any.
	ETag string `json:"etag,omitempty"`
}

// MediaType strips parameters from a Content-Type header value.
// An unparsable value is returned lower-cased and trimmed.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// IsHTML reports whether the outcome looks like an HTML document.
// An empty content type is treated as HTML because many servers omit it.
func (o *FetchOutcome) IsHTML() bool {
	switch o.ContentType {
	case "", "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// ContentHash returns the hex BLAKE2b-256 digest of the content,
// or an empty string when there is no content.
func (o *FetchOutcome) ContentHash() string {
	if len(o.Content) == 0 {
		return ""
	}
	sum := blake2b.Sum256(o.Content)
	return hex.EncodeToString(sum[:])
}
