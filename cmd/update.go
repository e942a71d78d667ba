package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/autobrr/dedup/pkg/runtime"
)

const repositorySlug = "autobrr/dedup"

func UpdateCommand() *cobra.Command {
	var assumeYes bool

	command := &cobra.Command{
		Use:   "update",
		Short: "Update to latest version",
		Long:  `This command can be used to self-update to the latest version.`,
	}

	command.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Update without asking")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		// detect latest version
		fmt.Fprintln(out, "Checking for the latest version...")
		latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repositorySlug))
		if err != nil {
			return errors.Wrap(err, "determine latest available version")
		}

		// check version
		if !found || latest.LessOrEqual(runtime.Version) {
			fmt.Fprintf(out, "Already using the latest version: %v\n", runtime.Version)
			return nil
		}

		// ask update
		if !assumeYes {
			fmt.Fprintf(out, "Do you want to update to the latest version: %v? (y/n):\n", latest.Version())
			input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			input = strings.ToLower(strings.TrimSpace(input))
			if err != nil || (input != "y" && input != "n") {
				return errors.New("failed validating input")
			} else if input == "n" {
				return nil
			}
		}

		// get existing executable path
		exe, err := os.Executable()
		if err != nil {
			return errors.Wrap(err, "locate current executable path")
		}

		if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
			return errors.Wrap(err, "update existing binary to latest release")
		}

		fmt.Fprintf(out, "Successfully updated to the latest version: %v\n", latest.Version())
		return nil
	}

	return command
}
