package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewUsageCmd creates the usage command.
func NewUsageCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage <session>",
		Short: "Show context window usage for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			eng, err := cliCtx.BuildEngine()
			if err != nil {
				return err
			}

			usage, err := eng.Usage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(usage)
			}

			fmt.Printf("Session:     %s\n", args[0])
			fmt.Printf("Tokens:      %d / %d\n", usage.TotalTokens, usage.MaxTokens)
			fmt.Printf("Utilization: %.1f%%\n", usage.UtilizationPct)
			if eng.NeedsCompression(usage) {
				fmt.Println("Compression: due")
			} else {
				fmt.Println("Compression: not needed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
