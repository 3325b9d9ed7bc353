package ims

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultBaseURL is the production IMS endpoint serving NYC building
// records by BIN.
const DefaultBaseURL = "https://ajay-bhargava--contech-ims-v2.modal.run"

const (
	pathCOByBIN        = "/coa_by_bin"
	pathViolationByBIN = "/violation_by_bin"
)

// Client calls the IMS API. Both endpoints accept a POST body of
// {"bin_number": "..."} and return JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type binRequest struct {
	BINNumber string `json:"bin_number"`
}

func (c *Client) post(ctx context.Context, path, bin string) ([]byte, error) {
	body, err := json.Marshal(binRequest{BINNumber: bin})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call IMS API", goerr.V("path", path), goerr.V("bin", bin))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read IMS response", goerr.V("path", path))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("IMS API returned non-OK status",
			goerr.V("path", path),
			goerr.V("bin", bin),
			goerr.V("status", resp.StatusCode))
	}

	return data, nil
}

// COByBIN returns the raw certificate-of-occupancy payload for a building.
func (c *Client) COByBIN(ctx context.Context, bin string) ([]byte, error) {
	if bin == "" {
		return nil, goerr.New("bin is required")
	}
	return c.post(ctx, pathCOByBIN, bin)
}

// ViolationsByBIN returns the raw violations payload for a building.
func (c *Client) ViolationsByBIN(ctx context.Context, bin string) ([]byte, error) {
	if bin == "" {
		return nil, goerr.New("bin is required")
	}
	return c.post(ctx, pathViolationByBIN, bin)
}
