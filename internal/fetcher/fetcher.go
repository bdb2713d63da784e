package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vinwreck-parser/internal/config"
	"vinwreck-parser/internal/observability"
)

var (
	// ErrStatus marks a response with a non-2xx status code.
	ErrStatus = errors.New("unexpected HTTP status")
	// ErrBodyTooLarge marks a response whose body exceeds maxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")
)

const maxBodyBytes = 32 << 20

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *observability.Logger
}

type FetchResponse struct {
	StatusCode int
	Body       []byte
	URL        string
	Headers    http.Header
}

// ContentType returns the media type without parameters, "image/jpeg" when absent.
func (r *FetchResponse) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if idx := strings.Index(ct, ";"); idx > -1 {
		ct = ct[:idx]
	}
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return "image/jpeg"
	}
	return ct
}

func NewFetcher(cfg *config.Config, logger *observability.Logger) *Fetcher {
	client := &http.Client{
		Timeout: cfg.GetTotalTimeout(),
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.HTTP.MaxIdleConnections,
			MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnections,
			IdleConnTimeout:     cfg.GetIdleConnectionTimeout(),
		},
	}

	return &Fetcher{
		client:    client,
		userAgent: cfg.HTTP.UserAgent,
		logger:    logger,
	}
}

// Fetch performs a single GET. There is no retry: a transport error or a
// non-2xx status is returned to the caller, the latter as *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request for %s: %w", urlStr, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/avif,image/webp,image/*;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("Failed to close response body", "url", urlStr, "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: urlStr, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("GET %s: %w: exceeds %d bytes", urlStr, ErrBodyTooLarge, maxBodyBytes)
	}

	f.logger.Debug("Fetched",
		"url", urlStr,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"bytes", len(body),
	)

	return &FetchResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		URL:        resp.Request.URL.String(),
		Headers:    resp.Header,
	}, nil
}
