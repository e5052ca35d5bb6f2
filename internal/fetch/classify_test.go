package fetch

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/nao1215/pixelscan/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: model.ErrorKindTransientNetwork},
		{
			name: "wrapped deadline",
			err:  &url.Error{Op: "Get", URL: "https://example.com", Err: context.DeadlineExceeded},
			want: model.ErrorKindTransientNetwork,
		},
		{
			name: "connection reset",
			err:  &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET},
			want: model.ErrorKindTransientNetwork,
		},
		{name: "unexpected EOF", err: io.ErrUnexpectedEOF, want: model.ErrorKindTransientNetwork},
		{
			name: "dns not found",
			err:  &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
			want: model.ErrorKindPermanentNetwork,
		},
		{
			name: "dns temporary",
			err:  &net.DNSError{Err: "server misbehaving", Name: "example.com", IsTemporary: true},
			want: model.ErrorKindTransientNetwork,
		},
		{
			name: "certificate hostname mismatch",
			err:  fmt.Errorf("tls: %w", x509.HostnameError{Host: "example.com", Certificate: &x509.Certificate{}}),
			want: model.ErrorKindPermanentNetwork,
		},
		{name: "malformed URL", err: fmt.Errorf("%w: bad", ErrMalformedURL), want: model.ErrorKindPermanentNetwork},
		{name: "unknown error", err: errors.New("something odd"), want: model.ErrorKindPermanentNetwork},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Classify("https://example.com", tc.err)
			if got.Kind != tc.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tc.err, got.Kind, tc.want)
			}
			if !errors.Is(got, tc.err) {
				t.Errorf("Classify should wrap the original error")
			}
		})
	}

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		if Classify("https://example.com", nil) != nil {
			t.Error("expected nil for nil error")
		}
	})

	t.Run("existing FetchError is preserved", func(t *testing.T) {
		t.Parallel()
		in := StatusError("https://example.com", 502)
		if got := Classify("https://example.com", in); got != in {
			t.Errorf("expected same FetchError back")
		}
	})
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		transient bool
	}{
		{400, false}, {401, false}, {404, false}, {410, false}, {429, false},
		{500, true}, {502, true}, {503, true}, {504, true},
		{304, false},
	}
	for _, tc := range tests {
		if got := StatusError("u", tc.status).Transient(); got != tc.transient {
			t.Errorf("StatusError(%d).Transient() = %v, want %v", tc.status, got, tc.transient)
		}
	}
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	valid := []string{"http://example.com", "https://example.com/a?b=c", " https://example.com "}
	for _, raw := range valid {
		if _, err := ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q) unexpected error: %v", raw, err)
		}
	}

	invalid := []string{"", "example.com", "mailto:a@b.c", "javascript:alert(1)", "http:///path", "%zz"}
	for _, raw := range invalid {
		if _, err := ValidateURL(raw); !errors.Is(err, ErrMalformedURL) {
			t.Errorf("ValidateURL(%q) = %v, want ErrMalformedURL", raw, err)
		}
	}
}
