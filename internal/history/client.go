// Package history is the read client for the conversation history store.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/peoplegrid/backend/internal/model/chat"
)

// Client fetches stored messages over HTTP. A fresh conversation yields an
// empty slice; only transport and decode problems surface as errors.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a history client for the given base URL. A nil
// httpClient falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Fetch returns the conversation's messages in server order.
func (c *Client) Fetch(ctx context.Context, key chat.ConversationKey) ([]chat.Message, error) {
	q := url.Values{}
	q.Set("user1", key.UserA)
	q.Set("user2", key.UserB)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/history?%s", c.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request: unexpected status %d", resp.StatusCode)
	}

	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("history response: %w", err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}
