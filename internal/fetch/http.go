package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/pixelscan/internal/model"
)

// DefaultMaxBodySize is the largest response body HTTPFetcher reads.
const DefaultMaxBodySize int64 = 5 * 1024 * 1024

// maxRedirects bounds redirect chains.
const maxRedirects = 10

// HTTPFetcher fetches pages over HTTP(S).
type HTTPFetcher struct {
	client      *http.Client
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the underlying client, e.g. with one from
// NewProxyClient.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
// Longer bodies are truncated.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher with a direct client.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      NewHTTPClient(nil),
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewHTTPClient builds the client used for scanning. A nil dial function
// dials directly.
func NewHTTPClient(dial func(ctx context.Context, network, addr string) (net.Conn, error)) *http.Client {
	if dial == nil {
		dial = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	}
	transport := &http.Transport{
		DialContext:         dial,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Fetch performs one GET of rawURL. The timeout bounds the whole attempt,
// including reading the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*model.FetchOutcome, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return nil, model.NewPermanentError(rawURL, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewPermanentError(rawURL, fmt.Errorf("%w: %w", ErrMalformedURL, err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		fe := Classify(rawURL, err)
		f.logger.Debug("fetch failed", "url", rawURL, "kind", fe.Kind.String(), "error", err)
		return nil, fe
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best-effort drain
		f.logger.Debug("unexpected status", "url", rawURL, "status", resp.StatusCode)
		return nil, StatusError(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, Classify(rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	outcome := &model.FetchOutcome{
		Content:     body,
		StatusCode:  resp.StatusCode,
		Elapsed:     time.Since(start),
		FinalURL:    resp.Request.URL.String(),
		ContentType: model.MediaType(contentType),
		ETag:        resp.Header.Get("ETag"),
	}
	if outcome.IsHTML() {
		outcome.Content = toUTF8(body, contentType)
	}

	f.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(outcome.Content),
		"elapsed", outcome.Elapsed,
	)
	return outcome, nil
}

// toUTF8 converts an HTML body to UTF-8 when the Content-Type header or a
// <meta> declaration names another charset. Bodies that are already UTF-8,
// or whose encoding is only a guess, are returned unchanged so the parser
// can still reject binary content.
func toUTF8(body []byte, contentType string) []byte {
	if len(body) == 0 {
		return body
	}
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain || name == "utf-8" {
		return body
	}
	converted, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return converted
}
