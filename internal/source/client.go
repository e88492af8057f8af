package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crosspost/internal/logging"
	"crosspost/internal/retry"
)

// ErrNotFound indicates the handle does not resolve to an account.
var ErrNotFound = errors.New("account not found")

const defaultHTTPTimeout = 15 * time.Second

// Fetch bounds imposed by the timeline API.
const (
	minFetchLimit = 5
	maxFetchLimit = 100
)

// Client talks to the account resolution and timeline APIs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
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

// WithLogger attaches a logger for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a timeline API client.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("source base url required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("source api token required")
	}
	client := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		policy:     retry.NewPolicy(4, time.Second),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ResolveHandle normalizes the handle and resolves it to a stable account
// identifier. ErrNotFound is returned for unknown handles.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	canonical := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if canonical == "" {
		return "", errors.New("handle required")
	}

	endpoint := c.baseURL + "/2/users/by/username/" + url.PathEscape(canonical)

	var payload struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
		Errors []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}

	err := c.policy.Do(ctx, c.logger, "resolve handle", func() error {
		return c.getJSON(ctx, endpoint, &payload)
	})
	if err != nil {
		var statusErr *retry.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve handle %s: %w", canonical, err)
	}

	if payload.Data.ID == "" {
		// The API reports unknown usernames as a 200 with an errors array.
		return "", ErrNotFound
	}
	return payload.Data.ID, nil
}

// timelineResponse models the timeline payload with media expansions.
type timelineResponse struct {
	Data []struct {
		ID             string `json:"id"`
		Text           string `json:"text"`
		CreatedAt      string `json:"created_at"`
		ConversationID string `json:"conversation_id"`
		AuthorID       string `json:"author_id"`
		Attachments    struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
	} `json:"data"`
	Includes struct {
		Media []struct {
			MediaKey        string `json:"media_key"`
			Type            string `json:"type"`
			URL             string `json:"url"`
			PreviewImageURL string `json:"preview_image_url"`
		} `json:"media"`
	} `json:"includes"`
}

// FetchRecent returns up to limit most-recent items for the account,
// newest first, with attachment URLs resolved via expansion fields.
func (c *Client) FetchRecent(ctx context.Context, accountID string, limit int) ([]Item, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id required")
	}
	if limit < minFetchLimit {
		limit = minFetchLimit
	}
	if limit > maxFetchLimit {
		limit = maxFetchLimit
	}

	endpoint, err := url.Parse(c.baseURL + "/2/users/" + url.PathEscape(accountID) + "/tweets")
	if err != nil {
		return nil, fmt.Errorf("parse timeline url: %w", err)
	}
	params := url.Values{}
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("tweet.fields", "created_at,conversation_id,author_id,attachments")
	params.Set("expansions", "attachments.media_keys")
	params.Set("media.fields", "url,preview_image_url,type")
	endpoint.RawQuery = params.Encode()

	var payload timelineResponse
	err = c.policy.Do(ctx, c.logger, "fetch timeline", func() error {
		return c.getJSON(ctx, endpoint.String(), &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timeline for %s: %w", accountID, err)
	}

	mediaByKey := make(map[string]Attachment, len(payload.Includes.Media))
	for _, media := range payload.Includes.Media {
		att := Attachment{MediaKey: media.MediaKey, Type: media.Type, URL: media.URL}
		if att.URL == "" {
			// Videos expose only a preview image at this field level.
			att.URL = media.PreviewImageURL
		}
		mediaByKey[media.MediaKey] = att
	}

	items := make([]Item, 0, len(payload.Data))
	for _, entry := range payload.Data {
		item := Item{
			ID:             entry.ID,
			Text:           entry.Text,
			ConversationID: entry.ConversationID,
			AuthorID:       entry.AuthorID,
		}
		if entry.CreatedAt != "" {
			createdAt, parseErr := time.Parse(time.RFC3339, entry.CreatedAt)
			if parseErr != nil {
				return nil, fmt.Errorf("parse created_at for item %s: %w", entry.ID, parseErr)
			}
			item.CreatedAt = createdAt
		}
		for _, key := range entry.Attachments.MediaKeys {
			att, ok := mediaByKey[key]
			if !ok || att.URL == "" {
				c.logger.Debug("attachment missing from media expansion",
					logging.String(logging.FieldItemID, entry.ID),
					logging.String("media_key", key),
				)
				continue
			}
			item.Attachments = append(item.Attachments, att)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &retry.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
