package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 8 * time.Second
	defaultCallTimeout  = 30 * time.Second
)

// Client calls the transcription backend's JSON API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	fetchTimeout time.Duration
}

// Config controls the backend endpoint and call deadlines.
type Config struct {
	// BaseURL is the backend root, e.g. https://api.example.com.
	BaseURL string
	// FetchTimeout bounds each single job-status fetch. Defaults to 8s.
	FetchTimeout time.Duration
	// HTTPClient is optional and defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// New builds a backend client from config, applying defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultCallTimeout}
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient:   httpClient,
		fetchTimeout: fetchTimeout,
	}
}

// call performs one JSON request against the backend and decodes the
// response into out. Non-2xx responses become a ProtocolError; response
// bodies are never interpreted beyond that.
func (c *Client) call(ctx context.Context, method, path string, in, out any, noCache bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if noCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return wrapTransport(err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return &ProtocolError{Status: res.StatusCode, Body: string(resBody)}
	}

	if out != nil {
		return json.Unmarshal(resBody, out)
	}
	return nil
}

type pingResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

// Ping checks backend reachability via the service root endpoint and
// returns the reported service name.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var res pingResponse
	if err := c.call(ctx, http.MethodGet, "/", nil, &res, false); err != nil {
		return "", err
	}
	return res.Service, nil
}
