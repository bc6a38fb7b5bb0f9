package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridwire/gridwire/internal/filter"
	"github.com/gridwire/gridwire/internal/llm"
)

var (
	filterTitle  string
	filterURL    string
	filterUseLLM bool
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Classify one headline as NFL, NON_NFL, or AMBIGUOUS",
	Long: `Filter classifies a single headline with the keyword heuristic,
optionally escalating to the configured language model. Use it to vet
headlines the pipeline marked ESCALATE.

Example:
  gridwire filter --title "Chiefs sign veteran tackle"
  gridwire filter --title "Big move coming" --url https://example.com/nfl/rumor --use-llm`,
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVar(&filterTitle, "title", "", "headline title (required)")
	filterCmd.Flags().StringVar(&filterURL, "url", "", "article URL")
	filterCmd.Flags().BoolVar(&filterUseLLM, "use-llm", false, "escalate to the language model (requires GRIDWIRE_OPENAI_API_KEY)")
	_ = filterCmd.MarkFlagRequired("title")
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg := llm.DefaultConfig()
	if filterUseLLM {
		cfg.APIKey = viper.GetString("OPENAI_API_KEY")
		if cfg.APIKey == "" {
			return fmt.Errorf("--use-llm requires GRIDWIRE_OPENAI_API_KEY")
		}
		if m := viper.GetString("OPENAI_MODEL"); m != "" {
			cfg.Model = m
		}
	}

	classifier := llm.NewClassifier(cfg, filter.NewRelevance(nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := classifier.Classify(ctx, filterTitle, filterURL)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s confidence=%.2f reason=%s\n",
		result.Label, result.Confidence, result.Reason)
	return nil
}
