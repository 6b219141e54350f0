package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"debridops/internal/domain"
	"debridops/internal/metrics"
)

const (
	defaultBaseURL = "https://api.real-debrid.com/rest/1.0"
	defaultTimeout = 15 * time.Second

	// The provider throttles aggressively; stay well under its ceiling.
	defaultRequestsPerSecond = 4
	defaultBurst             = 8

	maxErrorBody    = 1024
	maxResponseBody = 4 << 20
)

type Config struct {
	Token   string
	BaseURL string
	Client  *http.Client
	// RequestsPerSecond caps outgoing calls client-side; 0 = 4 rps.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the debrid provider's REST API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &Client{
		token:   strings.TrimSpace(cfg.Token),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type downloadItem struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Filesize   int64  `json:"filesize"`
	Link       string `json:"link"`
	Host       string `json:"host"`
	Download   string `json:"download"`
	Streamable int    `json:"streamable"`
	Generated  string `json:"generated"`
}

type torrentItem struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Bytes    int64    `json:"bytes"`
	Host     string   `json:"host"`
	Status   string   `json:"status"`
	Added    string   `json:"added"`
	Links    []string `json:"links"`
}

type unrestrictResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Download string `json:"download"`
}

type streamingResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Message string `json:"error"`
	Code    int    `json:"error_code"`
}

// DeleteFile removes the file through the endpoint matching its source
// collection.
func (c *Client) DeleteFile(ctx context.Context, file domain.RemoteFile) error {
	var path string
	switch file.Source {
	case domain.SourceTorrent:
		path = "/torrents/delete/" + url.PathEscape(string(file.ID))
	default:
		path = "/downloads/delete/" + url.PathEscape(string(file.ID))
	}

	body, status, err := c.do(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return c.apiErr(status, body, path)
	}
	return nil
}

// UnrestrictLink converts a restricted hoster link into a direct download URL.
func (c *Client) UnrestrictLink(ctx context.Context, link string) (string, error) {
	form := url.Values{"link": {link}}
	body, status, err := c.do(ctx, http.MethodPost, "/unrestrict/link",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", c.apiErr(status, body, "/unrestrict/link")
	}

	var resp unrestrictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode unrestrict response: %w", err)
	}
	return resp.Download, nil
}

// StreamingURL asks the provider for a transcoded stream of the file.
func (c *Client) StreamingURL(ctx context.Context, file domain.RemoteFile) (string, error) {
	path := "/streaming/" + url.PathEscape(string(file.ID))
	body, status, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", c.apiErr(status, body, path)
	}

	var resp streamingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode streaming response: %w", err)
	}
	return resp.URL, nil
}

// ListDownloads pages the user's download history.
func (c *Client) ListDownloads(ctx context.Context, offset, limit int) ([]domain.RemoteFile, error) {
	path := "/downloads?" + pageQuery(offset, limit)
	body, status, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, c.apiErr(status, body, "/downloads")
	}

	var items []downloadItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode downloads page: %w", err)
	}

	files := make([]domain.RemoteFile, 0, len(items))
	for _, item := range items {
		files = append(files, fromDownloadItem(item))
	}
	return files, nil
}

// ListTorrents pages the user's torrents, keeping only finished ones.
func (c *Client) ListTorrents(ctx context.Context, offset, limit int) ([]domain.RemoteFile, error) {
	path := "/torrents?" + pageQuery(offset, limit)
	body, status, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, c.apiErr(status, body, "/torrents")
	}

	var items []torrentItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode torrents page: %w", err)
	}

	files := make([]domain.RemoteFile, 0, len(items))
	for _, item := range items {
		if item.Status != "downloaded" {
			continue
		}
		files = append(files, fromTorrentItem(item))
	}
	return files, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.DebridRequestsTotal.WithLabelValues(endpointLabel(path), "error").Inc()
		return nil, 0, fmt.Errorf("debrid %s %s: %w", method, endpointLabel(path), err)
	}
	defer resp.Body.Close()
	metrics.DebridRequestsTotal.WithLabelValues(endpointLabel(path), strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

func (c *Client) apiErr(status int, body []byte, path string) error {
	msg := ""
	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = e.Message
	} else if len(body) > 0 {
		trimmed := body
		if len(trimmed) > maxErrorBody {
			trimmed = trimmed[:maxErrorBody]
		}
		msg = strings.TrimSpace(string(trimmed))
	}

	if status == http.StatusNotFound {
		if msg == "" {
			msg = "unknown resource"
		}
		return fmt.Errorf("%w: debrid %s: %s", domain.ErrNotFound, endpointLabel(path), msg)
	}
	if msg == "" {
		return fmt.Errorf("debrid %s: HTTP %d", endpointLabel(path), status)
	}
	return fmt.Errorf("debrid %s: HTTP %d: %s", endpointLabel(path), status, msg)
}

func fromDownloadItem(item downloadItem) domain.RemoteFile {
	file := domain.RemoteFile{
		ID:          domain.FileID(item.ID),
		Filename:    item.Filename,
		Filesize:    item.Filesize,
		Source:      domain.SourceDownload,
		Host:        item.Host,
		Link:        item.Link,
		DownloadURL: item.Download,
		MimeType:    item.MimeType,
		Streamable:  item.Streamable == 1,
		AddedAt:     parseAPITime(item.Generated),
	}
	file.ClassifyMedia()
	return file
}

func fromTorrentItem(item torrentItem) domain.RemoteFile {
	file := domain.RemoteFile{
		ID:       domain.FileID(item.ID),
		Filename: item.Filename,
		Filesize: item.Bytes,
		Source:   domain.SourceTorrent,
		Host:     item.Host,
		AddedAt:  parseAPITime(item.Added),
	}
	if len(item.Links) > 0 {
		file.Link = item.Links[0]
	}
	file.ClassifyMedia()
	return file
}

func pageQuery(offset, limit int) string {
	q := url.Values{}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q.Encode()
}

// endpointLabel keeps metric cardinality bounded: only the first path
// segment, never ids.
func endpointLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

func parseAPITime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
