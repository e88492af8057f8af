// Package media transfers attachments from the source CDN to the
// destination's media endpoint. The whole package is best-effort: a failed
// attachment is dropped and logged, never fatal to the enclosing publish.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/logging"
	"crosspost/internal/source"
)

// Relay downloads attachments to a scratch directory and re-uploads them to
// the destination media endpoint.
type Relay struct {
	uploadURL  string
	token      string
	scratchDir string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the relay.
type Option func(*Relay)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Relay) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// New constructs a media relay.
func New(cfg *config.Config, token string, logger *slog.Logger, opts ...Option) (*Relay, error) {
	uploadURL := strings.TrimSpace(cfg.Media.UploadURL)
	if uploadURL == "" {
		return nil, errors.New("media upload url required")
	}
	timeout := time.Duration(cfg.Media.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	relay := &Relay{
		uploadURL:  uploadURL,
		token:      token,
		scratchDir: cfg.Paths.ScratchDir,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "media"),
	}
	for _, opt := range opts {
		opt(relay)
	}
	return relay, nil
}

// Relay transfers each attachment and returns the destination media ids of
// the ones that made it. An empty result means "publish without media".
func (r *Relay) Relay(ctx context.Context, attachments []source.Attachment) []string {
	var mediaIDs []string
	for _, att := range attachments {
		id, err := r.relayOne(ctx, att)
		if err != nil {
			r.logger.Warn("attachment dropped",
				logging.String("media_key", att.MediaKey),
				logging.String("url", att.URL),
				logging.Error(err),
			)
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}
	return mediaIDs
}

func (r *Relay) relayOne(ctx context.Context, att source.Attachment) (string, error) {
	if strings.TrimSpace(att.URL) == "" {
		return "", errors.New("attachment has no resolved url")
	}

	scratchPath, err := r.download(ctx, att.URL)
	if err != nil {
		return "", err
	}
	defer os.Remove(scratchPath)

	return r.upload(ctx, scratchPath)
}

func (r *Relay) download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(r.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure scratch directory: %w", err)
	}
	scratchPath := filepath.Join(r.scratchDir, scratchName(rawURL))

	file, err := os.Create(scratchPath)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(scratchPath)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(scratchPath)
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return scratchPath, nil
}

// scratchName builds a unique local filename from the current time and the
// source basename.
func scratchName(rawURL string) string {
	base := "attachment"
	if parsed, err := url.Parse(rawURL); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "/" && name != "." {
			base = name
		}
	}
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), base)
}

type uploadResponse struct {
	MediaIDString string `json:"media_id_string"`
	Data          struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (r *Relay) upload(ctx context.Context, scratchPath string) (string, error) {
	data, err := os.ReadFile(scratchPath)
	if err != nil {
		return "", fmt.Errorf("read scratch file: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(scratchPath))
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.MediaIDString != "" {
		return parsed.MediaIDString, nil
	}
	if parsed.Data.ID != "" {
		return parsed.Data.ID, nil
	}
	return "", errors.New("upload response missing media id")
}
