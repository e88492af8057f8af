// Package publisher emits logical units to the destination API. Threads are
// published head first, then each remaining segment as a reply to the
// previous one, with a fixed pacing delay between calls to respect rate
// limits.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"crosspost/internal/logging"
	"crosspost/internal/retry"
)

const defaultHTTPTimeout = 15 * time.Second

// Client talks to the destination publish API.
type Client struct {
	baseURL    string
	token      string
	charLimit  int
	replyDelay time.Duration
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger

	// sleep is swapped out in tests to skip the pacing delay.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithReplyDelay overrides the pacing delay between thread segments.
func WithReplyDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.replyDelay = delay
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "publisher")
		}
	}
}

// New creates a publish API client.
func New(baseURL, token string, charLimit int, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("publish base url required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("publish api token required")
	}
	if charLimit <= 0 {
		charLimit = 280
	}
	client := &Client{
		baseURL:    baseURL,
		token:      token,
		charLimit:  charLimit,
		replyDelay: 2 * time.Second,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		policy:     retry.NewPolicy(4, time.Second),
		logger:     logging.NewNop(),
		sleep:      retry.SleepWithContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Truncate cuts text at the platform character limit. The cut is a plain
// boundary cut; no word-boundary logic.
func (c *Client) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= c.charLimit {
		return text
	}
	return string(runes[:c.charLimit])
}

type publishRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
	Reply *struct {
		InReplyToID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

type publishResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Publish submits one item and returns the created item's identifier. The
// call is wrapped in the retry policy; rate limits and server errors are
// retried, other client errors propagate immediately.
func (c *Client) Publish(ctx context.Context, text string, mediaIDs []string, replyToID string) (string, error) {
	request := publishRequest{Text: c.Truncate(text)}
	if len(mediaIDs) > 0 {
		request.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: mediaIDs}
	}
	if replyToID != "" {
		request.Reply = &struct {
			InReplyToID string `json:"in_reply_to_tweet_id"`
		}{InReplyToID: replyToID}
	}

	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode publish request: %w", err)
	}

	var createdID string
	err = c.policy.Do(ctx, c.logger, "publish", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(encoded))
		if err != nil {
			return fmt.Errorf("build publish request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute publish request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read publish response: %w", err)
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return &retry.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var parsed publishResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("decode publish response: %w", err)
		}
		if parsed.Data.ID == "" {
			return errors.New("publish response missing item id")
		}
		createdID = parsed.Data.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return createdID, nil
}

// PublishUnit emits a logical unit: the head text first, then each reply in
// order, each answering the previous published segment.
//
// A head failure aborts the unit so the caller records no fingerprint and
// the unit is retried next run. A failed reply is logged and skipped; the
// unit still counts as published (partial-thread degradation).
func (c *Client) PublishUnit(ctx context.Context, headText string, replies []string, mediaIDs []string) (string, error) {
	headID, err := c.Publish(ctx, headText, mediaIDs, "")
	if err != nil {
		return "", fmt.Errorf("publish head: %w", err)
	}

	previousID := headID
	for i, reply := range replies {
		if err := c.sleep(ctx, c.replyDelay); err != nil {
			return headID, err
		}
		replyID, err := c.Publish(ctx, reply, nil, previousID)
		if err != nil {
			c.logger.Warn("thread reply failed, continuing without it",
				logging.Int("reply_index", i+1),
				logging.Int("reply_count", len(replies)),
				logging.Error(err),
			)
			continue
		}
		previousID = replyID
	}
	return headID, nil
}
