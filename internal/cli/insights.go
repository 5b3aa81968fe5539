package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skein/internal/insights"
)

// NewInsightsCmd creates the insights command.
func NewInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights <session>",
		Short: "Analyze compression behavior for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			recorder, err := cliCtx.GetRecorder()
			if err != nil {
				return err
			}

			stats := recorder.Stats(args[0])
			fmt.Printf("Session: %s\n", args[0])
			fmt.Printf("  operations: %d (success %d, fallback %d, error %d)\n",
				stats.Total, stats.Success, stats.Fallback, stats.Errors)
			if stats.Total > 0 {
				fmt.Printf("  tokens:     %d in, %d out\n", stats.TotalInputTokens, stats.TotalOutputTokens)
				fmt.Printf("  avg time:   %s\n", stats.AvgDuration.Round(time.Millisecond))
			}
			fmt.Println()
			for _, msg := range insights.Messages(stats) {
				fmt.Printf("  - %s\n", msg)
			}
			return nil
		},
	}
}
