// Package log provides the slog handler used by pixelscan.
//
// SecureHandler wraps any slog.Handler and scrubs attributes before they are
// written:
//   - values under credential-like keys (cookie, authorization, token, ...)
//     are replaced entirely
//   - URLs keep their scheme, host and path, but credential-like query
//     parameters and userinfo are masked, because scanned pages frequently
//     carry session ids and signed tokens in links
//   - header maps are scrubbed per header
//   - long data: URIs (base64 pixels) are shortened
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
