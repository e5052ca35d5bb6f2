// Package fetch retrieves page content for the scanner.
//
// The orchestrator depends only on the Fetcher interface, so tests can
// substitute a Func stub with deterministic outcomes. HTTPFetcher is the
// production implementation: it enforces the per-attempt timeout, limits the
// body size, converts the body to UTF-8 and classifies every failure as a
// transient or permanent model.FetchError so the orchestrator can decide
// whether to retry.
//
// NewProxyClient builds an http.Client that dials through a SOCKS5 proxy,
// and CheckProxy verifies that the proxy speaks SOCKS5 before a batch starts.
package fetch
