package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Metadata is the display information resolved for a video.
type Metadata struct {
	Title   string
	Channel string
}

// OEmbedClient looks up video titles through the public oEmbed endpoint.
// It needs no API key.
type OEmbedClient struct {
	endpoint string
	client   *http.Client
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// NewOEmbedClient creates a client for the oEmbed endpoint at baseURL.
func NewOEmbedClient(baseURL string, timeout time.Duration) *OEmbedClient {
	return &OEmbedClient{
		endpoint: baseURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// Lookup resolves title and channel for videoURL.
func (c *OEmbedClient) Lookup(ctx context.Context, videoURL string) (*Metadata, error) {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("oembed error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	title := strings.TrimSpace(result.Title)
	if title == "" {
		return nil, fmt.Errorf("oembed returned empty title")
	}
	return &Metadata{
		Title:   title,
		Channel: strings.TrimSpace(result.AuthorName),
	}, nil
}
