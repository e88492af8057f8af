package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"crosspost/internal/caption"
	"crosspost/internal/config"
	"crosspost/internal/fingerprint"
	"crosspost/internal/logging"
	"crosspost/internal/media"
	"crosspost/internal/publisher"
	"crosspost/internal/retry"
	"crosspost/internal/runner"
	"crosspost/internal/source"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one crosspost pass over all configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return executeRun(signalCtx, ctx, cmd)
		},
	}
}

func executeRun(runCtx context.Context, ctx *commandContext, cmd *cobra.Command) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	creds, err := cfg.LoadCredentials(os.Getenv)
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	release, err := acquireInstanceLock(cfg)
	if err != nil {
		return err
	}
	defer release()

	store, err := fingerprint.Open(cfg)
	if err != nil {
		return fmt.Errorf("open fingerprint store: %w", err)
	}
	defer store.Close()

	r, err := buildRunner(runCtx, cfg, creds, store, logger)
	if err != nil {
		return err
	}

	summary, err := r.Run(runCtx)
	if err != nil {
		return err
	}
	printSummary(cmd, summary)
	return nil
}

// acquireInstanceLock guards against overlapping invocations sharing one
// state directory. The returned release func is safe to call once.
func acquireInstanceLock(cfg *config.Config) (func(), error) {
	lockPath := filepath.Join(cfg.Paths.StateDir, "crosspost.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another crosspost instance is already running")
	}
	return func() { _ = lock.Unlock() }, nil
}

func buildRunner(ctx context.Context, cfg *config.Config, creds config.Credentials, store fingerprint.Store, logger *slog.Logger) (*runner.Runner, error) {
	fetchPolicy := retry.NewPolicy(cfg.Fetch.RetryAttempts, time.Duration(cfg.Fetch.RetryBaseMS)*time.Millisecond)
	fetcher, err := source.New(cfg.Fetch.BaseURL, creds.SourceToken,
		source.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second}),
		source.WithRetryPolicy(fetchPolicy),
		source.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create source client: %w", err)
	}

	captions, err := caption.New(ctx, cfg, creds.CaptionKey, logger)
	if err != nil {
		return nil, fmt.Errorf("create caption generator: %w", err)
	}

	var relay runner.MediaRelay
	if cfg.Media.Enabled {
		mediaRelay, err := media.New(cfg, creds.PublishToken, logger)
		if err != nil {
			return nil, fmt.Errorf("create media relay: %w", err)
		}
		relay = mediaRelay
	}

	publishPolicy := retry.NewPolicy(cfg.Publish.RetryAttempts, time.Duration(cfg.Publish.RetryBaseMS)*time.Millisecond)
	pub, err := publisher.New(cfg.Publish.BaseURL, creds.PublishToken, cfg.Publish.CharacterLimit,
		publisher.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Publish.TimeoutSeconds) * time.Second}),
		publisher.WithRetryPolicy(publishPolicy),
		publisher.WithReplyDelay(time.Duration(cfg.Publish.ReplyDelayMS)*time.Millisecond),
		publisher.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	return runner.New(cfg, store, fetcher, captions, relay, pub, logger)
}

func printSummary(cmd *cobra.Command, summary runner.Summary) {
	fmt.Fprintf(cmd.OutOrStdout(), "Sources: %d  Published: %d  Skipped: %d  Failed: %d\n",
		summary.Sources, summary.Published, summary.Skipped, summary.Failed)
}
