package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	var (
		session string
		limit   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent compression operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			recorder, err := cliCtx.GetRecorder()
			if err != nil {
				return err
			}

			entries := recorder.Logs(session)
			if limit > 0 && limit < len(entries) {
				entries = entries[len(entries)-limit:]
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No compression operations recorded.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %-8s %-8s %s chunk %d/%d  %d->%d tok  %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.Status, e.Zone, e.Backend,
					e.ChunkIndex+1, e.ChunkTotal,
					e.InputTokens, e.OutputTokens,
					e.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Filter by session ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most N entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
