package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridwire/gridwire/internal/config"
	"github.com/gridwire/gridwire/internal/extract"
	"github.com/gridwire/gridwire/internal/logging"
	"github.com/gridwire/gridwire/internal/pipeline"
	"github.com/gridwire/gridwire/internal/store"
)

var (
	sourcesPath   string
	dbPath        string
	allowlistPath string
	runTimeout    time.Duration
	pipelineUA    string
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the ingestion pipeline over configured sources",
	Long: `Pipeline loads the sources file, fetches every enabled feed or
sitemap, filters and deduplicates items against each source's
watermark, persists kept articles, and clusters them into events.

Example:
  gridwire pipeline --sources config/feeds.yaml --db gridwire.db
  GRIDWIRE_REMOTE_URL=https://db.example.com/rest/v1 gridwire pipeline --sources config/feeds.yaml`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().StringVar(&sourcesPath, "sources", "config/feeds.yaml", "sources YAML file")
	pipelineCmd.Flags().StringVar(&dbPath, "db", "gridwire.db", "SQLite database path")
	pipelineCmd.Flags().StringVar(&allowlistPath, "allowlist", "", "claim pattern allowlist YAML (optional)")
	pipelineCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")
	pipelineCmd.Flags().StringVar(&pipelineUA, "ua", "", "HTTP User-Agent override")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := config.Load(sourcesPath)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	opts := pipeline.Options{UserAgent: pipelineUA}

	if allowlistPath != "" {
		patterns, err := extract.LoadAllowlist(allowlistPath)
		if err != nil {
			logging.Warn("allowlist load failed, using defaults", "path", allowlistPath, "error", err)
		} else {
			opts.ClaimPatterns = patterns
		}
	}

	remoteURL := viper.GetString("REMOTE_URL")
	if remoteURL != "" {
		opts.Remote = store.NewRemote(remoteURL, viper.GetString("REMOTE_KEY"), 0)
		logging.Info("remote mirroring enabled", "url", remoteURL)
	}

	p := pipeline.New(cfg, st, opts)
	results := p.Run(ctx)

	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var total pipeline.Stats
	for _, key := range keys {
		stats := results[key]
		fmt.Fprintf(os.Stdout, "%-40s total=%d kept=%d rejected=%d escalated=%d\n",
			key, stats.Total, stats.Kept, stats.Rejected, stats.Escalated)
		total.Total += stats.Total
		total.Kept += stats.Kept
		total.Rejected += stats.Rejected
		total.Escalated += stats.Escalated
	}
	fmt.Fprintf(os.Stdout, "%-40s total=%d kept=%d rejected=%d escalated=%d\n",
		"ALL", total.Total, total.Kept, total.Rejected, total.Escalated)

	return nil
}
