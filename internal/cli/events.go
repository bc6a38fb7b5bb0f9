package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridwire/gridwire/internal/config"
	"github.com/gridwire/gridwire/internal/pipeline"
	"github.com/gridwire/gridwire/internal/store"
)

var (
	eventsDB    string
	eventsType  string
	eventsSince time.Duration
	eventsLimit int
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List clustered events from the local database",
	Long: `Events lists stored event clusters, newest activity first.

Example:
  gridwire events --db gridwire.db --limit 20
  gridwire events --type signing --since 48h`,
	RunE: runEvents,
}

// eventsSummaryCmd represents the events summary subcommand
var eventsSummaryCmd = &cobra.Command{
	Use:   "summary <event-id>",
	Short: "Compose and store a text summary for one event",
	Long: `Summary builds a short summary for the event from its claims and
their citations, falling back to linked article titles, and stores it
on the event row.

Example:
  gridwire events summary 12 --db gridwire.db`,
	Args: cobra.ExactArgs(1),
	RunE: runEventsSummary,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsSummaryCmd)

	eventsCmd.PersistentFlags().StringVar(&eventsDB, "db", "gridwire.db", "SQLite database path")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by event type (signing, trade, injury, roster, discipline, news)")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "only events updated within this window (e.g. 48h)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum events to list")
}

func runEvents(cmd *cobra.Command, args []string) error {
	st, err := store.Open(eventsDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	filter := store.EventFilter{
		EventType: eventsType,
		Limit:     eventsLimit,
	}
	if eventsSince > 0 {
		since := time.Now().UTC().Add(-eventsSince)
		filter.Since = &since
	}

	events, err := st.ListEvents(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("no events")
		return nil
	}

	for _, ev := range events {
		confidence := "-"
		if ev.Confidence != nil {
			confidence = fmt.Sprintf("%.1f", *ev.Confidence)
		}
		date := "          "
		if ev.EventDate != nil {
			date = ev.EventDate.Format("2006-01-02")
		}
		fmt.Printf("%-12s %s conf=%-6s %s\n", ev.EventType, date, confidence, ev.Title)
	}
	return nil
}

func runEventsSummary(cmd *cobra.Command, args []string) error {
	eventID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", args[0], err)
	}

	st, err := store.Open(eventsDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	ev, err := st.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if ev == nil {
		return fmt.Errorf("event %d not found", eventID)
	}

	p := pipeline.New(&config.Config{}, st, pipeline.Options{})
	summary, err := p.SummarizeEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("summarize event: %w", err)
	}
	if summary == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "no claims or articles to summarize")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}
