package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"resume-builder/internal/shared/telemetry"
)

const retryDelay = 300 * time.Millisecond

// Client converts HTML over a multipart HTTP converter endpoint.
// Transient failures get one retry with backoff; 4xx responses do not.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a converter client. CONVERTER_TIMEOUT_SECONDS
// overrides the request timeout.
func NewClient(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("CONVERTER_URL is required")
	}
	timeout := 45 * time.Second
	if raw := strings.TrimSpace(os.Getenv("CONVERTER_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Convert renders html into the requested format.
func (c *Client) Convert(ctx context.Context, html, format, paperSize, margins string) ([]byte, error) {
	if !SupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	out, err := c.convertOnce(ctx, html, format, paperSize, margins)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return out, err
	}

	telemetry.Warn("convert.retry", map[string]any{
		"format": format,
		"error":  err.Error(),
	})
	select {
	case <-time.After(retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.convertOnce(ctx, html, format, paperSize, margins)
}

func (c *Client) convertOnce(ctx context.Context, html, format, paperSize, margins string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, value := range map[string]string{
		"format":     format,
		"paper_size": paperSize,
		"margins":    margins,
	} {
		if err := mw.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("document", "resume.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: converter http status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("converter http status %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("converter returned empty document")
	}
	return out, nil
}

var _ Converter = (*Client)(nil)
