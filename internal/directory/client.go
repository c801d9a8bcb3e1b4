package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	model "github.com/peoplegrid/backend/internal/model/directory"
)

// Client talks to the remote profile directory over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a directory client for the given base URL, e.g.
// "http://localhost:5002". A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Search queries the directory. An empty query lists every record.
func (c *Client) Search(ctx context.Context, query string) ([]model.Participant, error) {
	u := fmt.Sprintf("%s/api/search?q=%s", c.baseURL, url.QueryEscape(query))

	var records []model.Participant
	if err := c.getJSON(ctx, u, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Exists reports whether the identity is registered in the directory.
func (c *Client) Exists(ctx context.Context, identity string) (bool, error) {
	u := fmt.Sprintf("%s/api/profile/exists?email=%s", c.baseURL, url.QueryEscape(identity))

	var payload struct {
		Exists bool `json:"exists"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return false, err
	}
	return payload.Exists, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory request: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory response: %w", err)
	}
	return nil
}
