package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ratespread/internal/app"
)

var (
	analyzeFrom string
	analyzeTo   string
	analyzeOut  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the spread analysis pipeline end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{
			OutputDir: analyzeOut,
		}

		if analyzeFrom != "" {
			from, err := time.Parse(time.DateOnly, analyzeFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if analyzeTo != "" {
			to, err := time.Parse(time.DateOnly, analyzeTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		if opts.From != nil && opts.To != nil && !opts.From.Before(*opts.To) {
			return fmt.Errorf("--from must be before --to")
		}

		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "Start date (YYYY-MM-DD, inclusive; defaults to config)")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "End date (YYYY-MM-DD, inclusive; defaults to today)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Output directory for CSV/PNG artifacts (defaults to config)")
}
