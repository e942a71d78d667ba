package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

type Config struct {
	// Verbosity 0 = warn, 1 = info, 2 = debug, 3+ = trace
	Verbosity int
	// File is an optional log file, rotated by size
	File       string
	MaxSizeMB  int
	MaxBackups int
	Output     io.Writer
}

var (
	mu        sync.Mutex
	prefixLen = 10
)

func Init(cfg Config) error {
	logrus.SetLevel(levelFor(cfg.Verbosity))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})

	if cfg.File == "" {
		return nil
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 5
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 10
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	if _, err := rotating.Write(nil); err != nil {
		return errors.Wrapf(err, "open log file %s", cfg.File)
	}

	logrus.AddHook(&fileHook{
		writer: rotating,
		formatter: &prefixed.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
			ForceFormatting: true,
		},
		levels: logrus.AllLevels[:logrus.GetLevel()+1],
	})

	return nil
}

func levelFor(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.WarnLevel
	case verbosity == 1:
		return logrus.InfoLevel
	case verbosity == 2:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// GetLogger returns an entry tagged with a padded prefix so console columns line up.
func GetLogger(prefix string) *logrus.Entry {
	mu.Lock()
	if len(prefix) > prefixLen {
		prefixLen = len(prefix)
	}
	width := prefixLen
	mu.Unlock()

	return logrus.WithField("prefix", fmt.Sprintf("%-*s", width, prefix))
}

type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
	mu        sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}
