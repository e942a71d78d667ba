package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/autobrr/dedup/pkg/config"
	"github.com/autobrr/dedup/pkg/logger"
)

var (
	// Global flags
	FlagConfigFile string
	FlagLogFile    string
	FlagLogLevel   int
	FlagDryRun     bool
)

// ExitError carries a non-zero exit status out of a command without being a
// failure of the command itself.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps the error returned by a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// initCore sets up logging and loads the configuration.
func initCore(stderr io.Writer) (*config.Configuration, error) {
	if err := logger.Init(logger.Config{
		Verbosity: FlagLogLevel,
		File:      FlagLogFile,
		Output:    stderr,
	}); err != nil {
		return nil, errors.Wrap(err, "initialise logging")
	}

	path := FlagConfigFile
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	if path != "" {
		logger.GetLogger("core").Debugf("Using config file: %q", path)
	}
	return cfg, nil
}

// defaultConfigPath is the per-user config file, when one exists.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(dir, "dedup", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
