// Package tgapi is a thin Telegram Bot API client covering the handful of
// methods the bot needs: long-polling, replies, and member-list queries.
package tgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tallybot/internal/domain"
)

const defaultBaseURL = "https://api.telegram.org"

// Bot API global limit is 30 messages per second; stay under it for all
// outgoing calls rather than tracking per-method budgets.
const (
	defaultRateLimit = 25
	defaultBurst     = 25
)

// Compile-time check: the client serves as the reconciler's member-list port.
var _ domain.ChatAPI = (*Client)(nil)

// Client talks to the Telegram Bot API for one bot token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the outgoing requests-per-second budget.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a client for the given bot token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-ok Bot API response.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

// User is a Telegram user or bot.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// Chat is a Telegram chat.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Message is the subset of Telegram messages the bot reacts to.
type Message struct {
	MessageID      int64  `json:"message_id"`
	From           *User  `json:"from"`
	Chat           Chat   `json:"chat"`
	Text           string `json:"text"`
	NewChatMembers []User `json:"new_chat_members"`
	LeftChatMember *User  `json:"left_chat_member"`
}

// Update is one long-poll update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// ChatMember pairs a user with their status in a chat.
type ChatMember struct {
	User   User   `json:"user"`
	Status string `json:"status"`
}

// GetMe returns the bot's own identity.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for updates after offset. timeout is in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))
	params.Set("allowed_updates", `["message"]`)

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a plain-text message to a chat or user.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	return c.call(ctx, "sendMessage", params, nil)
}

// GetMemberCount returns the chat's current member count.
func (c *Client) GetMemberCount(ctx context.Context, chatID int64) (int64, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))

	var count int64
	if err := c.call(ctx, "getChatMemberCount", params, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetMembers returns the members the Bot API lets a bot enumerate: the
// chat's administrators. Regular members surface through join events and
// the member count; other bots are filtered out.
func (c *Client) GetMembers(ctx context.Context, chatID int64) ([]domain.ChatUser, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))

	var members []ChatMember
	if err := c.call(ctx, "getChatAdministrators", params, &members); err != nil {
		return nil, err
	}

	users := make([]domain.ChatUser, 0, len(members))
	for _, m := range members {
		if m.User.IsBot {
			continue
		}
		users = append(users, domain.ChatUser{ID: m.User.ID, Username: m.User.Username})
	}
	return users, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return &APIError{Code: envelope.ErrorCode, Description: envelope.Description}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
