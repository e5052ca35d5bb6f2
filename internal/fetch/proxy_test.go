package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
)

func TestValidateProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		valid   bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"[::1]:1080", true},
		{"", false},
		{"127.0.0.1", false},
		{":9050", false},
		{"127.0.0.1:", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:65536", false},
		{"127.0.0.1:abc", false},
	}
	for _, tc := range tests {
		t.Run(tc.address, func(t *testing.T) {
			t.Parallel()
			err := ValidateProxyAddress(tc.address)
			if tc.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
			}
		})
	}
}

func TestNewProxyClient(t *testing.T) {
	t.Parallel()

	client, err := NewProxyClient("127.0.0.1:1080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Transport == nil || client.Jar == nil {
		t.Error("expected transport and cookie jar to be set")
	}

	if _, err := NewProxyClient("nope"); !errors.Is(err, ErrInvalidProxyAddress) {
		t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
	}
}

// serveOnce accepts one connection, reads the 3-byte greeting and replies.
func serveOnce(t *testing.T, reply []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		_, _ = conn.Write(reply)
	}()
	return ln.Addr().String()
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("SOCKS5 proxy is OK", func(t *testing.T) {
		t.Parallel()
		addr := serveOnce(t, []byte{0x05, 0x00})
		if got := CheckProxy(context.Background(), addr); got != ProxyStatusOK {
			t.Errorf("CheckProxy() = %v, want ok", got)
		}
	})

	t.Run("HTTP server is wrong type", func(t *testing.T) {
		t.Parallel()
		addr := serveOnce(t, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		if got := CheckProxy(context.Background(), addr); got != ProxyStatusWrongType {
			t.Errorf("CheckProxy() = %v, want wrong type", got)
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		addr := ln.Addr().String()
		ln.Close()
		if got := CheckProxy(context.Background(), addr); got != ProxyStatusCannotConnect {
			t.Errorf("CheckProxy() = %v, want cannot connect", got)
		}
	})

	t.Run("String", func(t *testing.T) {
		t.Parallel()
		if ProxyStatusTimeout.String() != "timeout" || ProxyStatus(99).String() != "unknown" {
			t.Error("unexpected String() output")
		}
	})
}
