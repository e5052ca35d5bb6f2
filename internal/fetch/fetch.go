package fetch

import (
	"context"
	"time"

	"github.com/nao1215/pixelscan/internal/model"
)

// Fetcher performs a single fetch of rawURL with the given headers.
// Implementations must honor both ctx and timeout, and must report failures
// as *model.FetchError so callers can tell transient from permanent errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*model.FetchOutcome, error)
}

// Func adapts an ordinary function to the Fetcher interface.
type Func func(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*model.FetchOutcome, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*model.FetchOutcome, error) {
	return f(ctx, rawURL, headers, timeout)
}
