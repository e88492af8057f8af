package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crosspost/internal/fingerprint"
	"crosspost/internal/logging"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var intervalFlag int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run continuously, repeating the crosspost pass on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return executeWatch(signalCtx, ctx, cmd, intervalFlag)
		},
	}

	cmd.Flags().IntVar(&intervalFlag, "interval", 0, "Seconds between passes (overrides run.interval_seconds)")
	return cmd
}

func executeWatch(watchCtx context.Context, ctx *commandContext, cmd *cobra.Command, intervalOverride int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	interval := cfg.Run.IntervalSeconds
	if intervalOverride > 0 {
		interval = intervalOverride
	}
	if interval <= 0 {
		return errors.New("watch requires a positive interval (set run.interval_seconds or --interval)")
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

	r, err := buildRunner(watchCtx, cfg, creds, store, logger)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		summary, err := r.Run(watchCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("pass failed", logging.Error(err))
		} else {
			printSummary(cmd, summary)
		}

		select {
		case <-watchCtx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
