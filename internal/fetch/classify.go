package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/nao1215/pixelscan/internal/model"
)

// ErrMalformedURL is wrapped by the error returned for URLs that cannot be
// fetched at all: unparsable, relative, or with a non-HTTP scheme.
var ErrMalformedURL = errors.New("malformed URL")

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	return u, nil
}

// StatusError classifies a non-2xx HTTP status. 5xx responses are
// transient; every other status is permanent.
func StatusError(rawURL string, status int) *model.FetchError {
	kind := model.ErrorKindPermanentNetwork
	if status >= 500 && status <= 599 {
		kind = model.ErrorKindTransientNetwork
	}
	return &model.FetchError{Kind: kind, URL: rawURL, StatusCode: status}
}

// Classify converts a transport error into a *model.FetchError.
//
// Transient: timeouts, connection resets and refusals, unexpected EOF,
// temporary DNS failures and context cancellation.
// Permanent: malformed URLs, DNS name-not-found, TLS and certificate errors,
// and anything unrecognized.
func Classify(rawURL string, err error) *model.FetchError {
	if err == nil {
		return nil
	}

	var fe *model.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	if isTransient(err) {
		return model.NewTransientError(rawURL, err)
	}
	return model.NewPermanentError(rawURL, err)
}

func isTransient(err error) bool {
	if errors.Is(err, ErrMalformedURL) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	if isTLSError(err) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}

	return false
}

func isTLSError(err error) bool {
	var (
		recordErr  tls.RecordHeaderError
		verifyErr  *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		alertErr   tls.AlertError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &alertErr)
}
