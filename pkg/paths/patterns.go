package paths

import (
	"bufio"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ReadPatternFile reads one pattern per line, gitignore style: blank lines and
// lines starting with "#" are skipped. An unreadable file yields no patterns.
func ReadPatternFile(path string, log *logrus.Entry) []string {
	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Warnf("Could not read pattern file: %q", path)
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	if err := scanner.Err(); err != nil {
		log.WithError(err).Warnf("Failed reading pattern file: %q", path)
	}

	return patterns
}
