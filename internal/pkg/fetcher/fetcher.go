package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ds124wfegd/imagefilter/internal/entity"
)

type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

type httpFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns a Fetcher that downloads at most maxBytes per image.
// A non-positive maxBytes disables the limit.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) Fetcher {
	return &httpFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, entity.NewFilterError(entity.KindTransport, imageURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, entity.NewFilterError(entity.KindTransport, imageURL,
			fmt.Errorf("unsupported url %q", imageURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, entity.NewFilterError(entity.KindTransport, imageURL, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, entity.NewFilterError(entity.KindTransport, imageURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, entity.NewFilterError(entity.KindNotFound, imageURL,
			fmt.Errorf("upstream responded %s", resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, entity.NewFilterError(entity.KindTransport, imageURL,
			fmt.Errorf("upstream responded %s", resp.Status))
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, entity.NewFilterError(entity.KindTransport, imageURL, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, entity.NewFilterError(entity.KindDecode, imageURL, entity.ErrImageTooLarge)
	}

	return data, nil
}
