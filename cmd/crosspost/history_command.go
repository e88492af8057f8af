package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"crosspost/internal/fingerprint"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently published units",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := fingerprint.Open(cfg)
			if err != nil {
				return fmt.Errorf("open fingerprint store: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			total, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No published units recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					shortKey(record.Key),
					record.SourceName,
					record.CreatedAt.In(cfg.Location()).Format("2006-01-02 15:04:05"),
				})
			}

			headers := []string{"Fingerprint", "Source", "Published At"}
			if stdoutIsTerminal() {
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			} else {
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
			}
			fmt.Fprintf(out, "Showing %d of %d recorded units\n", len(records), total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of entries to show")
	return cmd
}

func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
