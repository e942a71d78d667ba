package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/dedup/pkg/config"
	"github.com/autobrr/dedup/pkg/expression"
	"github.com/autobrr/dedup/pkg/grouping"
	"github.com/autobrr/dedup/pkg/hardlink"
	"github.com/autobrr/dedup/pkg/hasher"
	"github.com/autobrr/dedup/pkg/notification"
	"github.com/autobrr/dedup/pkg/paths"
	"github.com/autobrr/dedup/pkg/progress"
	"github.com/autobrr/dedup/pkg/report"
)

const (
	exitDuplicatesFound = 1
	exitLinkFailures    = 2
)

type scan struct {
	cfg    *config.Configuration
	roots  []string
	stdout io.Writer
	stderr io.Writer
	log    *logrus.Entry
}

func (s *scan) run(ctx context.Context) error {
	start := time.Now()
	cfg := s.cfg
	human := cfg.Output.Format == config.FormatHuman

	opts, err := s.collectOptions()
	if err != nil {
		return err
	}

	showProgress := progress.Enabled(cfg.Output.NoProgress, human, s.stderr)

	if progress.IsTerminal(s.stdout) {
		pterm.EnableStyling()
	} else {
		pterm.DisableStyling()
	}

	// collect
	spinner := progress.NewSpinner(showProgress, "Scanning files...", s.stderr)
	records, err := paths.Collect(ctx, s.roots, opts)
	spinner.Stop()
	if err != nil {
		return errors.Wrap(err, "scan")
	}

	// partition by size
	sizeGroups, sizeStats := grouping.BySize(records)
	s.log.Infof("Scanned %d files: %d candidates in %d size groups",
		sizeStats.TotalFiles, sizeStats.CandidateFiles, sizeStats.CandidateGroups)

	// hash
	bar := progress.NewBar(showProgress, "Hashing", sizeStats.CandidateFiles, s.stderr)
	pipeline := hasher.New(s.log, hasher.Options{
		Jobs:           cfg.Hash.Jobs,
		FilesPerSecond: cfg.Hash.FilesPerSecond,
		OnGroupDone:    bar.Add,
	})
	s.log.Debugf("Hashing with %d jobs", pipeline.Jobs())
	dups, err := pipeline.Run(ctx, sizeGroups)
	bar.Stop()
	if err != nil {
		return errors.Wrap(err, "hash")
	}

	stats := pipeline.Stats()
	s.log.WithField("read", humanize.IBytes(stats.BytesRead)).
		Debugf("Digested %d partial and %d full, %d unreadable",
			stats.PartialDigests, stats.FullDigests, stats.Unreadable)

	// report
	rep := report.New(dups, sizeStats.TotalFiles)
	switch cfg.Output.Format {
	case config.FormatJSON:
		err = rep.WriteJSON(s.stdout)
	case config.FormatHuman:
		err = rep.WriteHuman(s.stdout, cfg.Output.Verbose)
	}
	if err != nil {
		return errors.Wrap(err, "write report")
	}

	// act
	var (
		outcome *hardlink.Outcome
		exitErr error
	)

	switch cfg.Action.Type {
	case config.ActionReportExitCode:
		if rep.HasDuplicates() {
			exitErr = &ExitError{Code: exitDuplicatesFound}
		}
	case config.ActionHardlink:
		linker := hardlink.New(s.log, hardlink.Options{
			DryRun:  cfg.Action.DryRun,
			Verbose: cfg.Output.Verbose && cfg.Output.Format != config.FormatQuiet,
			Jobs:    cfg.Action.Jobs,
		})

		result := linker.Link(ctx, rep.Groups)
		outcome = &result

		if human {
			if err := report.WriteOutcome(s.stdout, s.stderr, result, cfg.Action.DryRun); err != nil {
				return errors.Wrap(err, "write outcome")
			}
		}

		s.log.WithField("reclaimed_space", humanize.IBytes(result.BytesReclaimed)).
			Infof("Linked %d files with %d failures", result.FilesLinked, len(result.Failures))

		if len(result.Failures) > 0 {
			exitErr = &ExitError{Code: exitLinkFailures}
		}
	}

	s.notify(rep, outcome, start)

	return exitErr
}

func (s *scan) collectOptions() (paths.CollectOptions, error) {
	cfg := s.cfg.Scan
	opts := paths.CollectOptions{}

	var err error
	if opts.MinSize, err = config.ParseSize(cfg.MinSize); err != nil {
		return opts, err
	}
	if opts.MaxSize, err = config.ParseSize(cfg.MaxSize); err != nil {
		return opts, err
	}

	exclude := append([]string(nil), cfg.Exclude...)
	if cfg.ExcludeFile != "" {
		exclude = append(exclude, paths.ReadPatternFile(cfg.ExcludeFile, s.log)...)
	}
	include := append([]string(nil), cfg.Include...)
	if cfg.IncludeFile != "" {
		include = append(include, paths.ReadPatternFile(cfg.IncludeFile, s.log)...)
	}

	opts.Exclude = paths.NewMatcher(exclude, s.log)
	opts.Include = paths.NewMatcher(include, s.log)
	s.log.Debugf("Exclude patterns: %q, include patterns: %q", opts.Exclude.Patterns(), opts.Include.Patterns())

	if cfg.Filter != "" {
		if opts.Filter, err = expression.Compile(cfg.Filter); err != nil {
			return opts, errors.Wrap(err, "filter")
		}
	}

	return opts, nil
}

func (s *scan) notify(rep report.Report, outcome *hardlink.Outcome, start time.Time) {
	noti := notification.NewDiscordSender(s.log, s.cfg.Notifications)
	if !noti.CanSend() {
		s.log.Debug("Notifications disabled, skipping...")
		return
	}

	var fields []notification.Field
	for _, g := range rep.Groups {
		fields = append(fields, noti.BuildField(notification.ActionDuplicates, notification.BuildOptions{Group: g}))
	}

	description := fmt.Sprintf("Found **%d** duplicate files in **%d** groups | Wasted **%s**",
		rep.Stats.DuplicateFiles, len(rep.Groups), humanize.IBytes(rep.Stats.WastedBytes))

	dryRun := false
	if outcome != nil {
		dryRun = s.cfg.Action.DryRun
		description += fmt.Sprintf(" | Linked **%d** files, reclaimed **%s**",
			outcome.FilesLinked, humanize.IBytes(outcome.BytesReclaimed))

		for _, f := range outcome.Failures {
			fields = append(fields, noti.BuildField(notification.ActionLinkFailure, notification.BuildOptions{Failure: f}))
		}
	}

	if err := noti.Send("Duplicates", description, time.Since(start), fields, dryRun); err != nil {
		s.log.WithError(err).Errorf("Failed sending %s notification", noti.Name())
	}
}
