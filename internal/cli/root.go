package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "locofly",
		Short:         "Inventory API for storage locations and their items",
		Long:          "Locofly tracks inventory items per storage location over a small HTTP API backed by PostgreSQL or MySQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// With no subcommand the binary serves.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (default: search ./config.yaml, ./config, /etc/locofly)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newHealthcheckCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
