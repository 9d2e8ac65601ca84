package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GroupView mirrors the ops API group payload.
type GroupView struct {
	ID                int64     `json:"id"`
	ChatID            int64     `json:"chat_id"`
	Title             string    `json:"title"`
	IsActive          bool      `json:"is_active"`
	UniqueMemberCount int64     `json:"unique_member_count"`
	MaxMemberCount    int64     `json:"max_member_count"`
	AddedAt           time.Time `json:"added_at"`
}

// APIError is a non-2xx ops API response.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.HTTPStatus, e.Message)
}

// Client talks to the running bot's ops API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates an ops API client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListGroups fetches all active groups.
func (c *Client) ListGroups(ctx context.Context) ([]GroupView, error) {
	var groups []GroupView
	if err := c.do(ctx, http.MethodGet, "/api/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup fetches one group by chat id or title.
func (c *Client) GetGroup(ctx context.Context, ref string) (*GroupView, error) {
	var group GroupView
	path := "/api/groups/" + url.PathEscape(ref)
	if err := c.do(ctx, http.MethodGet, path, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// SyncGroup triggers reconciliation for one chat and returns the result.
func (c *Client) SyncGroup(ctx context.Context, chatID int64) (*GroupView, error) {
	var group GroupView
	path := fmt.Sprintf("/api/groups/%d/sync", chatID)
	if err := c.do(ctx, http.MethodPost, path, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Message == "" {
			body.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{HTTPStatus: resp.StatusCode, Message: body.Message}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
