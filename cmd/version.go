package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/dedup/pkg/runtime"
)

func VersionCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Long:  `Print version info`,
		Example: `  dedup version
  dedup version --help`,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "dedup version: %s commit: %s built at: %s\n",
			runtime.Version, runtime.GitCommit, runtime.Timestamp)
		return err
	}

	return command
}
