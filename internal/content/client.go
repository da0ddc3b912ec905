package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	postsEndpoint   = "/api/posts"
	relatedEndpoint = "/api/posts/related"
	createEndpoint  = "/api/post/related"

	// DefaultWindow is the bounded page requested for both the home
	// feed and article lookup.
	DefaultWindow = 14
)

// Client talks to the remote content API. Fetched post windows are
// cached for the configured revalidation window; everything else goes
// straight to the network.
//
// No request deadline is applied beyond what the caller's context
// carries; a hung remote call blocks the action that issued it.
type Client struct {
	host       string
	httpClient *http.Client
	logger     *slog.Logger
	revalidate time.Duration
	now        func() time.Time

	mu          sync.Mutex
	cached      []Post
	cachedLimit int
	cachedAt    time.Time
}

// NewClient builds a client for the given API host (no trailing
// slash). revalidateSeconds of zero disables caching.
func NewClient(host string, revalidateSeconds int, logger *slog.Logger) *Client {
	return &Client{
		host:       host,
		httpClient: http.DefaultClient,
		logger:     logger,
		revalidate: time.Duration(revalidateSeconds) * time.Second,
		now:        time.Now,
	}
}

// FetchPosts requests a bounded window of posts sorted newest-first.
func (c *Client) FetchPosts(ctx context.Context, limit int) ([]Post, error) {
	c.mu.Lock()
	if c.revalidate > 0 && c.cached != nil && c.cachedLimit == limit &&
		c.now().Sub(c.cachedAt) < c.revalidate {
		posts := c.cached
		c.mu.Unlock()
		return posts, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.postsURL(limit), nil)
	if err != nil {
		return nil, fmt.Errorf("build posts request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request to %s failed with status %d", c.host, resp.StatusCode)
	}

	var payload postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode posts response: %w", err)
	}
	posts := payload.Data
	if posts == nil {
		posts = []Post{}
	}

	if c.revalidate > 0 {
		c.mu.Lock()
		c.cached = posts
		c.cachedLimit = limit
		c.cachedAt = c.now()
		c.mu.Unlock()
	}
	return posts, nil
}

// Refresh drops the cached posts window so the next read hits the
// network again.
func (c *Client) Refresh() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// FetchRelated returns the related-posts collection. The endpoint is
// never cached. A payload that is not a JSON array is logged and
// treated as empty, matching the upstream contract's looseness.
func (c *Client) FetchRelated(ctx context.Context) ([]RelatedPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+relatedEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build related request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch related posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch related posts (%d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read related response: %w", err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.logger.Warn("related posts payload is not an array, returning empty list")
		return []RelatedPost{}, nil
	}

	var posts []RelatedPost
	if err := json.Unmarshal(trimmed, &posts); err != nil {
		return nil, fmt.Errorf("decode related response: %w", err)
	}
	return posts, nil
}

// CreateRelated submits a new post as a multipart body with a title
// field and an image file. Any 2xx status counts as success; no
// response body is consumed.
func (c *Client) CreateRelated(ctx context.Context, title, filename string, image io.Reader) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("title", title); err != nil {
		return fmt.Errorf("write title field: %w", err)
	}
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+createEndpoint, &body)
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post submission failed with status %d", resp.StatusCode)
	}
	return nil
}

// Ping issues a minimal read against the API so health checks can
// report reachability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.postsURL(1), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("content API returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postsURL(limit int) string {
	params := url.Values{}
	params.Set("pagination[start]", "0")
	params.Set("pagination[limit]", strconv.Itoa(limit))
	params.Set("sort[0]", "publishedAt:desc")
	return c.host + postsEndpoint + "?" + params.Encode()
}
