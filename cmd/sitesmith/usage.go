package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sitesmith/pkg/metrics"
)

func newUsageCmd() *cobra.Command {
	var (
		prometheusURL string
		modelName     string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show model usage per workflow step from a Prometheus server scraping sitesmith",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := metrics.NewQueryService(prometheusURL)
			if err != nil {
				return err
			}
			usage, err := q.GetUsage(cmd.Context(), modelName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(usage)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STEP\tREQUESTS\tFAILURES\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range usage.Steps {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
					s.Step, s.Requests, s.Failures, s.PromptTokens, s.CompletionTokens, s.TotalTokens)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for outcome, n := range usage.Runs {
				_, _ = fmt.Fprintf(out, "runs %s: %d\n", outcome, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prometheusURL, "prometheus-url", "http://localhost:9090", "Prometheus server address")
	cmd.Flags().StringVar(&modelName, "model-filter", "", "only count calls to this model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
