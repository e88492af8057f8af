// Package runner drives one complete crosspost run: for every configured
// source, fetch recent items, reconstruct threads, skip already-published
// units, caption, relay media, publish, and record fingerprints.
//
// Failure isolation follows the smallest-enclosing-scope rule: an item
// failure moves on to the next item, a source failure moves on to the next
// source, and only startup problems (store unavailable, bad configuration)
// abort the run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"crosspost/internal/caption"
	"crosspost/internal/config"
	"crosspost/internal/fingerprint"
	"crosspost/internal/logging"
	"crosspost/internal/source"
	"crosspost/internal/thread"
)

// Fetcher resolves handles and retrieves recent items.
type Fetcher interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	FetchRecent(ctx context.Context, accountID string, limit int) ([]source.Item, error)
}

// Publisher emits a logical unit to the destination.
type Publisher interface {
	PublishUnit(ctx context.Context, headText string, replies []string, mediaIDs []string) (string, error)
}

// MediaRelay transfers attachments to the destination, best-effort.
type MediaRelay interface {
	Relay(ctx context.Context, attachments []source.Attachment) []string
}

// Runner orchestrates a single run across all configured sources.
type Runner struct {
	cfg       *config.Config
	store     fingerprint.Store
	fetcher   Fetcher
	captions  caption.Generator
	media     MediaRelay
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs a runner. The media relay may be nil when media transfer is
// disabled.
func New(cfg *config.Config, store fingerprint.Store, fetcher Fetcher, captions caption.Generator, media MediaRelay, publisher Publisher, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || store == nil || fetcher == nil || captions == nil || publisher == nil {
		return nil, errors.New("runner requires config, store, fetcher, caption generator, and publisher")
	}
	return &Runner{
		cfg:       cfg,
		store:     store,
		fetcher:   fetcher,
		captions:  captions,
		media:     media,
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "runner"),
		now:       time.Now,
	}, nil
}

// Summary aggregates the outcome of one run.
type Summary struct {
	Sources   int
	Skipped   int
	Published int
	Failed    int
}

// Run processes every configured source sequentially. The returned error is
// reserved for run-level failures; per-source and per-item failures are
// logged and counted in the summary instead.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))

	var summary Summary

	if r.cfg.Run.OncePerDay {
		posted, err := r.store.HasPostedOnDate(ctx, r.now())
		if err != nil {
			return summary, fmt.Errorf("check daily guard: %w", err)
		}
		if posted {
			logger.Info("already posted today, skipping run",
				logging.String(logging.FieldEventType, "daily_guard"),
			)
			return summary, nil
		}
	}

	if len(r.cfg.Sources) == 0 {
		logger.Warn("no sources configured, nothing to do")
		return summary, nil
	}

	start := r.now()
	for _, src := range r.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Sources++
		srcLogger := logger.With(logging.String(logging.FieldSource, src.Name))
		if err := r.processSource(ctx, srcLogger, src, &summary); err != nil {
			if errors.Is(err, context.Canceled) {
				return summary, err
			}
			srcLogger.Warn("source skipped for this run",
				logging.String(logging.FieldEventType, "source_skipped"),
				logging.Error(err),
			)
		}
	}

	logger.Info("run complete",
		logging.Int("sources", summary.Sources),
		logging.Int("published", summary.Published),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", r.now().Sub(start)),
	)
	return summary, nil
}

// processSource runs the per-source state machine: resolve, fetch, then
// process items oldest first so thread heads publish before their later
// segments are considered.
func (r *Runner) processSource(ctx context.Context, logger *slog.Logger, src config.Source, summary *Summary) error {
	accountID, err := r.fetcher.ResolveHandle(ctx, src.CanonicalHandle())
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return fmt.Errorf("handle %s not found", src.DisplayHandle())
		}
		return fmt.Errorf("resolve %s: %w", src.DisplayHandle(), err)
	}

	items, err := r.fetcher.FetchRecent(ctx, accountID, r.cfg.Fetch.Limit)
	if err != nil {
		return fmt.Errorf("fetch recent items: %w", err)
	}
	if len(items) == 0 {
		logger.Debug("no recent items")
		return nil
	}

	// The timeline arrives newest first.
	for i := len(items) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := items[i]
		itemLogger := logger.With(logging.String(logging.FieldItemID, item.ID))
		published, err := r.processItem(ctx, itemLogger, src, item, items)
		switch {
		case err != nil:
			summary.Failed++
			itemLogger.Warn("item failed, will retry next run",
				logging.String(logging.FieldEventType, "item_failed"),
				logging.Error(err),
			)
		case published:
			summary.Published++
		default:
			summary.Skipped++
		}
	}
	return nil
}

// processItem handles one fetched item. The dedupe fingerprint is taken from
// the reconstructed unit's head, so every later segment of an already
// published thread resolves to the same key and is skipped.
func (r *Runner) processItem(ctx context.Context, logger *slog.Logger, src config.Source, item source.Item, batch []source.Item) (bool, error) {
	unit := thread.Reconstruct(item, batch)
	head := unit[0]

	key := fingerprint.Key(head.ID, head.Text)
	seen, err := r.store.Has(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	if seen {
		logger.Debug("already published, skipping")
		return false, nil
	}

	captionText := r.captions.Generate(ctx, head.Text, src.DisplayHandle())

	var mediaIDs []string
	if r.media != nil && len(head.Attachments) > 0 {
		mediaIDs = r.media.Relay(ctx, head.Attachments)
	}

	headText := composeHead(captionText, head.Text)
	replies := make([]string, 0, len(unit)-1)
	for _, segment := range unit[1:] {
		replies = append(replies, segment.Text)
	}

	headID, err := r.publisher.PublishUnit(ctx, headText, replies, mediaIDs)
	if err != nil {
		return false, fmt.Errorf("publish unit: %w", err)
	}

	logger.Info("unit published",
		logging.String(logging.FieldEventType, "unit_published"),
		logging.String("destination_id", headID),
		logging.Int("segments", len(unit)),
		logging.Int("media", len(mediaIDs)),
	)

	if err := r.store.Record(ctx, key, src.Name, r.now()); err != nil {
		// Deliberately non-fatal: the unit may publish again next run, and a
		// bounded duplicate beats silent loss.
		logger.Warn("failed to record fingerprint, unit may repost next run",
			logging.String(logging.FieldEventType, "fingerprint_write_failed"),
			logging.Error(err),
		)
	}
	return true, nil
}

// composeHead places the caption above the head item's text. Truncation to
// the platform limit happens in the publisher.
func composeHead(captionText, headText string) string {
	if captionText == "" {
		return headText
	}
	return captionText + "\n\n" + headText
}
