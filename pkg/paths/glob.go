package paths

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Matcher tests paths against a set of gitignore-style globs. A pattern
// matches when it matches either the whole slash-separated path or the base
// name, so "*.log" and "**/node_modules" both work.
type Matcher struct {
	patterns []*regexp2.Regexp
	sources  []string
}

// NewMatcher compiles patterns. Invalid patterns are logged and skipped.
func NewMatcher(patterns []string, log *logrus.Entry) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		re, err := CompileGlob(p)
		if err != nil {
			log.WithError(err).Warnf("Ignoring invalid pattern: %q", p)
			continue
		}

		m.patterns = append(m.patterns, re)
		m.sources = append(m.sources, p)
	}
	return m
}

func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Patterns returns the patterns that compiled.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.sources
}

func (m *Matcher) Match(p string) bool {
	if m.Empty() {
		return false
	}

	slashed := filepath.ToSlash(p)
	name := path.Base(slashed)

	for _, re := range m.patterns {
		if ok, _ := re.MatchString(slashed); ok {
			return true
		}
		if ok, _ := re.MatchString(name); ok {
			return true
		}
	}

	return false
}

// CompileGlob translates a glob into an anchored regular expression.
// "*" and "?" never cross a "/", "**" does, and "[...]" is a character class
// ("[!...]" negates).
func CompileGlob(glob string) (*regexp2.Regexp, error) {
	if glob == "" {
		return nil, errors.New("empty pattern")
	}

	var b strings.Builder
	b.WriteString("^")

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				if i+2 < len(runes) && runes[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			j := i + 1
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return nil, errors.Errorf("unclosed character class in %q", glob)
			}

			class := runes[i+1 : j]
			b.WriteString("[")
			if class[0] == '!' || class[0] == '^' {
				b.WriteString("^")
				class = class[1:]
			}
			b.WriteString(strings.ReplaceAll(string(class), `\`, `\\`))
			b.WriteString("]")
			i = j
		case '\\':
			if i+1 >= len(runes) {
				return nil, errors.Errorf("trailing escape in %q", glob)
			}
			b.WriteString(regexp2.Escape(string(runes[i+1])))
			i++
		default:
			b.WriteString(regexp2.Escape(string(c)))
		}
	}

	b.WriteString("$")

	re, err := regexp2.Compile(b.String(), regexp2.None)
	if err != nil {
		return nil, errors.Wrapf(err, "compile pattern %q", glob)
	}
	return re, nil
}
