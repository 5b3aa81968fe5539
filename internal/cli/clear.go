package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear recorded compression operations",
		Long:  `Remove compression telemetry from memory and storage. Without --session all records are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			recorder, err := cliCtx.GetRecorder()
			if err != nil {
				return err
			}

			recorder.Clear(session)
			if session == "" {
				fmt.Println("Cleared all telemetry.")
			} else {
				fmt.Printf("Cleared telemetry for session %s.\n", session)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Only clear this session")
	return cmd
}
