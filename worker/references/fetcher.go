package references

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	fetchTimeout = 30 * time.Second
	maxRefBytes  = 20 * 1024 * 1024
)

// Fetcher downloads the reference images attached to a batch. A reference
// that cannot be fetched is logged and omitted; it never fails the task.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
}

func (f *Fetcher) FetchAll(ctx context.Context, urls []string) [][]byte {
	var refs [][]byte
	for _, url := range urls {
		data, err := f.fetch(ctx, url)
		if err != nil {
			f.logger.Warn("Skipping reference image",
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		refs = append(refs, data)
	}
	return refs
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxRefBytes))
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
