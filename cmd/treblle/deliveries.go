package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"treblle-hq/agent/pkg/cli"
	"treblle-hq/agent/pkg/config"
	"treblle-hq/agent/pkg/journal"
)

var deliveriesFlags struct {
	limit   int
	format  string
	summary bool
	since   time.Duration
	prune   bool
}

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Inspect the local delivery journal",
	Long: `List recent delivery outcomes recorded in the SQLite journal, count them
per outcome, or prune entries older than journal.retention.max_age.

Examples:
  # Last 20 deliveries
  treblle deliveries --limit 20

  # Outcome counts for the last day, as JSON
  treblle deliveries --summary --since 24h --format json

  # Remove expired entries now
  treblle deliveries --prune`,
	RunE: listDeliveries,
}

func init() {
	rootCmd.AddCommand(deliveriesCmd)

	deliveriesCmd.Flags().IntVarP(&deliveriesFlags.limit, "limit", "n", 50, "maximum number of entries to list")
	deliveriesCmd.Flags().StringVarP(&deliveriesFlags.format, "format", "f", "text", "output format: text, json, csv")
	deliveriesCmd.Flags().BoolVar(&deliveriesFlags.summary, "summary", false, "count entries per outcome instead of listing them")
	deliveriesCmd.Flags().DurationVar(&deliveriesFlags.since, "since", 24*time.Hour, "summary window")
	deliveriesCmd.Flags().BoolVar(&deliveriesFlags.prune, "prune", false, "delete entries older than the retention max age")
}

func listDeliveries(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(deliveriesFlags.format)
	if err != nil {
		return err
	}
	if deliveriesFlags.limit <= 0 {
		return errors.New("--limit must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openJournal(cfg)
	if err != nil {
		return cli.NewCommandError("deliveries", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case deliveriesFlags.prune:
		cutoff := time.Now().Add(-cfg.Journal.Retention.MaxAge)
		n, err := store.Prune(ctx, cutoff)
		if err != nil {
			return cli.NewCommandError("deliveries", err)
		}
		fmt.Fprintf(out, "✓ Pruned %d entries recorded before %s\n", n, cutoff.Format(time.RFC3339))
		return nil

	case deliveriesFlags.summary:
		since := time.Now().Add(-deliveriesFlags.since)
		counts, err := store.Summarize(ctx, since)
		if err != nil {
			return cli.NewCommandError("deliveries", err)
		}
		return cli.Render(out, format, summaryTable{Since: since, Counts: counts})

	default:
		entries, err := store.Recent(ctx, deliveriesFlags.limit)
		if err != nil {
			return cli.NewCommandError("deliveries", err)
		}
		return cli.Render(out, format, entryTable(entries))
	}
}

// openJournal opens the configured on-disk journal for inspection. The
// in-memory driver has nothing to inspect from another process.
func openJournal(cfg *config.Config) (journal.Store, error) {
	if cfg.Journal.Driver == journal.DriverMemory {
		return nil, errors.New("the memory journal cannot be inspected from the CLI")
	}
	return journal.Open(journal.Config{
		Driver:       cfg.Journal.Driver,
		Path:         cfg.Journal.Path,
		MaxOpenConns: cfg.Journal.MaxOpenConns,
		BusyTimeout:  cfg.Journal.BusyTimeout,
	})
}

type entryTable []journal.Entry

func (t entryTable) Header() []string {
	return []string{"TIME", "OUTCOME", "STATUS", "ENDPOINT", "BYTES", "DURATION", "REQUEST ID", "ERROR"}
}

func (t entryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		status := "-"
		if e.StatusCode != 0 {
			status = strconv.Itoa(e.StatusCode)
		}
		rows = append(rows, []string{
			e.RecordedAt.Format(time.RFC3339),
			e.Outcome,
			status,
			orDash(e.Endpoint),
			strconv.Itoa(e.Bytes),
			e.Duration.Round(time.Millisecond).String(),
			orDash(e.RequestID),
			orDash(e.Error),
		})
	}
	return rows
}

type summaryTable struct {
	Since  time.Time       `json:"since"`
	Counts journal.Summary `json:"counts"`
}

func (t summaryTable) Header() []string {
	return []string{"OUTCOME", "COUNT"}
}

func (t summaryTable) Rows() [][]string {
	outcomes := make([]string, 0, len(t.Counts))
	for outcome := range t.Counts {
		outcomes = append(outcomes, outcome)
	}
	slices.Sort(outcomes)

	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		rows = append(rows, []string{outcome, strconv.FormatInt(t.Counts[outcome], 10)})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
