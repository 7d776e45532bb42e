package pxweb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/statsync/internal/config"
)

// Selection is an insertion-ordered mapping of dimension name to the values
// selected for it. Order matters: the API echoes key columns in query order.
type Selection = orderedmap.OrderedMap[string, []string]

// Client talks to a PxWeb-style catalog API.
//
// The API exposes the catalog as a tree of folder nodes and table leaves.
// GET on a folder path lists its children; GET on a table path returns the
// table's metadata; POST on a table path with a selection returns data.
type Client struct {
	baseURL    string
	locale     string
	httpClient *http.Client
}

// NewClient creates a Client from API configuration.
func NewClient(cfg *config.APIConfig) *Client {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		locale:     cfg.Locale,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// endpoint builds the URL for a catalog path. Path segments are the node ids
// from the catalog root down.
func (c *Client) endpoint(path []string) string {
	parts := append([]string{c.baseURL, c.locale, "ssd"}, path...)
	return strings.Join(parts, "/")
}

// List returns the children of a folder node.
func (c *Client) List(ctx context.Context, path []string) ([]NavItem, error) {
	url := c.endpoint(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list %s: received status code %d", url, resp.StatusCode)
	}

	var items []NavItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode listing for %s: %w", url, err)
	}

	return items, nil
}

// Metadata returns the title and dimensions of a table leaf.
func (c *Client) Metadata(ctx context.Context, path []string) (*TableMeta, error) {
	url := c.endpoint(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch metadata for %s: received status code %d", url, resp.StatusCode)
	}

	var meta TableMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", url, err)
	}

	return &meta, nil
}

// queryRequest is the wire format of a data query.
type queryRequest struct {
	Query    []queryEntry  `json:"query"`
	Response queryResponse `json:"response"`
}

type queryEntry struct {
	Code      string         `json:"code"`
	Selection querySelection `json:"selection"`
}

type querySelection struct {
	Filter string   `json:"filter"`
	Values []string `json:"values"`
}

type queryResponse struct {
	Format string `json:"format"`
}

// Query posts a selection against a table leaf and returns the raw payload.
// Every dimension in the selection is sent as an item filter in map order.
func (c *Client) Query(ctx context.Context, path []string, sel *Selection) (*TableData, error) {
	url := c.endpoint(path)

	reqBody := queryRequest{
		Response: queryResponse{Format: "json"},
	}
	for el := sel.Front(); el != nil; el = el.Next() {
		reqBody.Query = append(reqBody.Query, queryEntry{
			Code: el.Key,
			Selection: querySelection{
				Filter: "item",
				Values: el.Value,
			},
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query for %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query failed for %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query failed for %s: received status code %d", url, resp.StatusCode)
	}

	var data TableData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode query response for %s: %w", url, err)
	}

	return &data, nil
}
