// Package taskrun executes the declarative tasks described by a project's
// tasks.star file: it parses the Starlark declarations into an ordered task
// registry, resolves prerequisites and runs the resulting shell commands.
package taskrun

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	starsyntax "go.starlark.net/syntax"
	"mvdan.cc/sh/v3/syntax"
)

// Cmd is a single entry in a task's command sequence. It is either a shell
// snippet or a reference to another task that should run at this point.
type Cmd interface {
	// TaskRef returns the referenced task or nil for shell commands.
	TaskRef() *Task
	// ShellStmts parses the shell content, nil for task references.
	ShellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error)
}

// ShellCmd holds one shell snippet of a task's command sequence.
type ShellCmd struct {
	TaskName string
	Content  string
	Index    int
}

func (c ShellCmd) TaskRef() *Task { return nil }

func (c ShellCmd) ShellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error) {
	result, err := parser.Parse(strings.NewReader(c.Content), fmt.Sprintf("%s:%d", c.TaskName, c.Index))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %q", c.Content)
	}

	return result.Stmts, nil
}

// RefCmd embeds another task in a command sequence.
type RefCmd struct {
	Task *Task
}

func (c RefCmd) TaskRef() *Task { return c.Task }

func (c RefCmd) ShellStmts(*syntax.Parser) ([]*syntax.Stmt, error) { return nil, nil }

// Task contains the processed values passed to task() by the task script.
type Task struct {
	Env          map[string]string
	Short        string
	Desc         string
	Base         string
	Deps         []string
	Inputs       []string
	Outputs      []string
	SkipIfExists []string
	Cmds         []Cmd
	Hidden       bool
	Default      bool
}

// Option is an option() declaration from a task script. Its value can be
// overridden through key=value arguments on the command line.
type Option struct {
	DefaultValue starlark.String
	Help         string
}

func (o Option) Default() string {
	return o.DefaultValue.GoString()
}

// Implement starlark.Value for *Task so task values can be stored in
// variables and passed to other task() calls.

func (t *Task) String() string {
	return fmt.Sprintf("<task %s: %s>", t.Short, t.Desc)
}

func (t *Task) Type() string { return "task" }

// Freeze is a no-op, tasks are immutable once declared.
func (t *Task) Freeze() {}

func (t *Task) Truth() starlark.Bool { return starlark.True }

// Hash always fails, tasks are only expected in lists and tuples.
func (t *Task) Hash() (uint32, error) {
	return 0, eris.New("task is not a hashable type")
}

// Path is a filesystem path produced by resolve_path(). Keeping a dedicated
// Starlark type lets command tuples convert it relative to the task's base
// directory.
type Path string

func (p Path) String() string { return starlark.String(p).String() }

func (p Path) Type() string { return "path" }

func (p Path) Freeze() {}

func (p Path) Truth() starlark.Bool { return p != "" }

func (p Path) Hash() (uint32, error) { return starlark.String(p).Hash() }

func (p Path) CompareSameType(op starsyntax.Token, y_ starlark.Value, depth int) (bool, error) {
	y := y_.(Path)

	switch op {
	case starsyntax.EQL:
		return p == y, nil
	case starsyntax.NEQ:
		return p != y, nil
	case starsyntax.LT:
		return p < y, nil
	case starsyntax.LE:
		return p <= y, nil
	case starsyntax.GT:
		return p > y, nil
	case starsyntax.GE:
		return p >= y, nil
	}

	return false, eris.Errorf("unknown operator %v", op)
}

func (p Path) Index(i int) starlark.Value { return starlark.String(p[i]) }

func (p Path) Len() int { return len(p) }

func (p Path) Slice(start, end, step int) starlark.Value {
	return starlark.String(p).Slice(start, end, step)
}
