package cmd

import (
	"github.com/spf13/cobra"

	"github.com/autobrr/dedup/pkg/config"
	"github.com/autobrr/dedup/pkg/logger"
)

type scanFlags struct {
	format         string
	minSize        string
	maxSize        string
	action         string
	noProgress     bool
	jobs           int
	exclude        []string
	excludeFile    string
	include        []string
	includeFile    string
	filter         string
	filesPerSecond int
}

// RootCommand returns the dedup command. It scans the given paths, or the
// current directory, for duplicate files.
func RootCommand() *cobra.Command {
	var flags scanFlags

	command := &cobra.Command{
		Use:   "dedup [PATH...]",
		Short: "Find duplicate files and optionally replace them with hardlinks",
		Long: `Scans one or more directory trees for files with identical content.
Candidates are grouped by size, then by a digest of their first 8 KiB and
finally by a digest of their full content.`,
		Example: `  dedup ~/Downloads
  dedup --format json /srv/media /mnt/backup
  dedup --action hardlink --dry-run -v /srv/media`,

		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	command.PersistentFlags().StringVarP(&FlagConfigFile, "config", "c", "", "Config file")
	command.PersistentFlags().StringVarP(&FlagLogFile, "log", "l", "", "Log file")
	command.PersistentFlags().CountVarP(&FlagLogLevel, "verbose", "v", "Verbose level")

	f := command.Flags()
	f.StringVarP(&flags.format, "format", "f", config.FormatHuman, "Output format: human, json or quiet")
	f.StringVarP(&flags.minSize, "min-size", "s", "0", "Ignore files smaller than this (e.g. 4096, 1MiB)")
	f.StringVarP(&flags.maxSize, "max-size", "S", "0", "Ignore files larger than this (0 for no limit)")
	f.StringVarP(&flags.action, "action", "a", config.ActionNone, "Action: none, report-exit-code or hardlink")
	f.BoolVar(&FlagDryRun, "dry-run", false, "Show what the action would do without changing anything")
	f.BoolVar(&flags.noProgress, "no-progress", false, "Disable progress output")
	f.IntVarP(&flags.jobs, "jobs", "j", 0, "Number of files hashed at once (0 for one per CPU)")
	f.StringArrayVarP(&flags.exclude, "exclude", "e", nil, "Exclude glob, repeatable")
	f.StringVar(&flags.excludeFile, "exclude-file", "", "Read exclude globs from a file")
	f.StringArrayVarP(&flags.include, "include", "i", nil, "Include glob, repeatable")
	f.StringVar(&flags.includeFile, "include-file", "", "Read include globs from a file")
	f.StringVar(&flags.filter, "filter", "", `Filter expression, e.g. 'Ext == ".mkv" && Size > 1e9'`)
	f.IntVar(&flags.filesPerSecond, "files-per-second", 0, "Limit files opened per second while hashing (0 for no limit)")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := initCore(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		flags.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		roots := args
		if len(roots) == 0 {
			roots = []string{"."}
		}

		s := &scan{
			cfg:    cfg,
			roots:  roots,
			stdout: cmd.OutOrStdout(),
			stderr: cmd.ErrOrStderr(),
			log:    logger.GetLogger("scan"),
		}
		return s.run(cmd.Context())
	}

	return command
}

// Command returns the dedup command with its subcommands.
func Command() *cobra.Command {
	command := RootCommand()
	command.AddCommand(UpdateCommand())
	command.AddCommand(VersionCommand())
	return command
}

// apply overrides configuration values with the flags that were set.
func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Configuration) {
	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}
	if flags.Changed("min-size") {
		cfg.Scan.MinSize = f.minSize
	}
	if flags.Changed("max-size") {
		cfg.Scan.MaxSize = f.maxSize
	}
	if flags.Changed("action") {
		cfg.Action.Type = f.action
	}
	if flags.Changed("dry-run") {
		cfg.Action.DryRun = FlagDryRun
	}
	if flags.Changed("verbose") {
		cfg.Output.Verbose = FlagLogLevel > 0
	}
	if flags.Changed("no-progress") {
		cfg.Output.NoProgress = f.noProgress
	}
	if flags.Changed("jobs") {
		cfg.Hash.Jobs = f.jobs
	}
	if flags.Changed("files-per-second") {
		cfg.Hash.FilesPerSecond = f.filesPerSecond
	}
	if flags.Changed("exclude-file") {
		cfg.Scan.ExcludeFile = f.excludeFile
	}
	if flags.Changed("include-file") {
		cfg.Scan.IncludeFile = f.includeFile
	}
	if flags.Changed("filter") {
		cfg.Scan.Filter = f.filter
	}

	// patterns given on the command line add to the configured ones
	cfg.Scan.Exclude = append(cfg.Scan.Exclude, f.exclude...)
	cfg.Scan.Include = append(cfg.Scan.Include, f.include...)
}
