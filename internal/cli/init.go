package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"skein/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long:  `Create a config file with defaults at the default location, or at --config if given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Printf("Config written to %s\n", path)
			fmt.Println("Set backends.openai.api_key (or SKEIN_BACKENDS_OPENAI_API_KEY) before serving.")
			return nil
		},
	}
}
