package expression

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// File is the environment a filter expression is evaluated against.
type File struct {
	Path    string
	Name    string
	Ext     string
	Dir     string
	Size    int64
	ModTime time.Time
}

// NewFile builds the expression environment for a file.
func NewFile(path string, size int64, modTime time.Time) File {
	return File{
		Path:    path,
		Name:    filepath.Base(path),
		Ext:     strings.ToLower(filepath.Ext(path)),
		Dir:     filepath.Dir(path),
		Size:    size,
		ModTime: modTime,
	}
}

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// Compile checks text against the File environment. The expression must
// evaluate to a bool.
func Compile(text string) (*CompiledExpression, error) {
	program, err := expr.Compile(text, expr.Env(File{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "compile expression %q", text)
	}

	return &CompiledExpression{
		Program: program,
		Text:    text,
	}, nil
}

// Match evaluates the expression for f.
func (c *CompiledExpression) Match(f File) (bool, error) {
	result, err := expr.Run(c.Program, f)
	if err != nil {
		return false, errors.Wrap(err, "check expression")
	}

	match, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("expression result is not a bool: %T", result)
	}

	return match, nil
}
