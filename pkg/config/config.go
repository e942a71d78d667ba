package config

import (
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

const EnvPrefix = "DEDUP_"

type Configuration struct {
	Scan          ScanConfig          `koanf:"scan"`
	Hash          HashConfig          `koanf:"hash"`
	Output        OutputConfig        `koanf:"output"`
	Action        ActionConfig        `koanf:"action"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

type ScanConfig struct {
	// MinSize and MaxSize accept plain byte counts or humanized sizes ("10MiB").
	MinSize     string   `koanf:"min_size"`
	MaxSize     string   `koanf:"max_size"`
	Exclude     []string `koanf:"exclude"`
	Include     []string `koanf:"include"`
	ExcludeFile string   `koanf:"exclude_file"`
	IncludeFile string   `koanf:"include_file"`
	Filter      string   `koanf:"filter"`
}

type HashConfig struct {
	Jobs           int `koanf:"jobs"`
	FilesPerSecond int `koanf:"files_per_second"`
}

type OutputConfig struct {
	Format     string `koanf:"format"`
	Verbose    bool   `koanf:"verbose"`
	NoProgress bool   `koanf:"no_progress"`
}

type ActionConfig struct {
	Type   string `koanf:"type"`
	DryRun bool   `koanf:"dry_run"`
	Jobs   int    `koanf:"jobs"`
}

const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatQuiet = "quiet"

	ActionNone           = "none"
	ActionReportExitCode = "report-exit-code"
	ActionHardlink       = "hardlink"
)

var defaults = map[string]interface{}{
	"scan.min_size":                 "0",
	"scan.max_size":                 "0",
	"scan.exclude":                  []string{},
	"scan.include":                  []string{},
	"hash.jobs":                     0,
	"hash.files_per_second":         0,
	"output.format":                 FormatHuman,
	"output.verbose":                false,
	"output.no_progress":            false,
	"action.type":                   ActionNone,
	"action.dry_run":                false,
	"action.jobs":                   1,
	"notifications.detailed":        false,
	"notifications.skip_empty_run":  true,
	"notifications.service.discord": "",
}

// Load layers defaults, the optional YAML file at path and DEDUP_ environment
// variables, in that order. A double underscore in a variable name separates
// keys: DEDUP_HASH__JOBS sets hash.jobs.
func Load(path string) (*Configuration, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := &Configuration{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated values and size strings.
func (c *Configuration) Validate() error {
	switch c.Output.Format {
	case FormatHuman, FormatJSON, FormatQuiet:
	default:
		return errors.Errorf("invalid output format: %q", c.Output.Format)
	}

	switch c.Action.Type {
	case ActionNone, ActionReportExitCode, ActionHardlink:
	default:
		return errors.Errorf("invalid action: %q", c.Action.Type)
	}

	minSize, err := ParseSize(c.Scan.MinSize)
	if err != nil {
		return errors.Wrap(err, "scan.min_size")
	}
	maxSize, err := ParseSize(c.Scan.MaxSize)
	if err != nil {
		return errors.Wrap(err, "scan.max_size")
	}
	if maxSize > 0 && minSize > maxSize {
		return errors.Errorf("min size %s exceeds max size %s", humanize.IBytes(minSize), humanize.IBytes(maxSize))
	}

	return nil
}

// ParseSize parses a byte count. Empty means 0.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse size %q", s)
	}
	return n, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
