package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewCompressCmd creates the compress command.
func NewCompressCmd() *cobra.Command {
	var (
		force  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "compress <session>",
		Short: "Compress a session's transcript",
		Long: `Run the compression pipeline for a session. Without --force the run
is skipped when usage is below the trigger threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			eng, err := cliCtx.BuildEngine()
			if err != nil {
				return err
			}

			sessionID := args[0]
			run := eng.Run
			if force {
				run = eng.Compress
			}
			report, err := run(cmd.Context(), sessionID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			if !report.Triggered {
				fmt.Printf("No compression needed (%.1f%% of budget)\n", report.Before.UtilizationPct)
				return nil
			}

			fmt.Printf("Compressed session %s\n", sessionID)
			fmt.Printf("  zones:  %d\n", report.Zones)
			fmt.Printf("  chunks: %d\n", len(report.Results))
			fmt.Printf("  tokens: %d -> %d\n", report.Before.TotalTokens, report.After.TotalTokens)
			for _, res := range report.Results {
				fmt.Printf("  [%s] chunk %d/%d via %s: %s\n",
					res.Zone, res.ChunkIndex+1, res.ChunkTotal, res.Backend, res.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Compress even below the trigger threshold")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
