package taskrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes tasks from a parsed TaskList. The zero value is not usable,
// construct it with NewRunner.
type Runner struct {
	list        *TaskList
	projectRoot string
	stdout      io.Writer
	stderr      io.Writer
	runTasks    map[string]bool
	DryRun      bool
	Force       bool
}

func NewRunner(list *TaskList, projectRoot string) *Runner {
	return &Runner{
		list:        list,
		projectRoot: projectRoot,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		runTasks:    make(map[string]bool),
	}
}

// SetOutput redirects the command output streams. Tests use this to keep
// shell output away from the test log.
func (r *Runner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Invoke runs the named task and its prerequisite closure in dependency
// order. The whole graph is validated before the first action runs, so an
// unknown prerequisite or a cycle never leaves half-finished work behind. A
// task reachable through multiple paths runs at most once per Runner.
func (r *Runner) Invoke(ctx context.Context, target string) error {
	order, err := r.list.Resolve(target)
	if err != nil {
		return err
	}

	for _, task := range order[:len(order)-1] {
		if err := r.runTask(ctx, task, true); err != nil {
			return eris.Wrapf(err, "task %s failed due to its dependency %s", target, task.Short)
		}
	}

	return r.runTask(ctx, order[len(order)-1], true)
}

func getTaskEnv(task *Task) expand.Environ {
	envVars := os.Environ()

	for name, value := range task.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

// execHandler reroutes mv, rm and mkdir to our cross-platform
// implementations so task actions behave the same everywhere.
func execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			switch args[0] {
			case "mv", "rm", "mkdir":
				args = append([]string{"tool"}, args...)
			}
		}

		return next(ctx, args)
	}
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// resolvePatternList expands the glob patterns relative to base. Patterns
// that match nothing are dropped.
func (r *Runner) resolvePatternList(base string, patterns []string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		ReadDir:  shellReadDir,
		GlobStar: true,
	}

	parser := syntax.NewParser()

	for _, item := range patterns {
		item = joinPath(base, r.projectRoot, item)
		item = filepath.ToSlash(item)

		words := make([]*syntax.Word, 0)
		err := parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse pattern %s", item)
		}

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			// an unmatched pattern is returned verbatim, skip it
			if !strings.Contains(match, "*") {
				result = append(result, match)
			}
		}
	}
	return result, nil
}

// upToDate reports whether the task's outputs are newer than all of its
// inputs. Tasks without inputs or outputs are never up to date; they always
// run. Missing inputs are an error, a missing output just forces the run.
func (r *Runner) upToDate(ctx context.Context, task *Task) (bool, error) {
	inputList, err := r.resolvePatternList(task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputList, err := r.resolvePatternList(task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve outputs")
	}

	if len(inputList) == 0 || len(outputList) == 0 {
		return false, nil
	}

	var newestInput time.Time
	for _, item := range inputList {
		info, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "failed to check input %s", item)
		}

		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	oldestOutput := time.Time{}
	for _, item := range outputList {
		info, err := os.Stat(item)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, eris.Wrapf(err, "failed to check output %s", item)
		}

		if oldestOutput.IsZero() || info.ModTime().Before(oldestOutput) {
			oldestOutput = info.ModTime()
		}
	}

	if oldestOutput.After(newestInput) {
		log(ctx).Info().
			Str("task", task.Short).
			Msgf("nothing to do (output is %.0f seconds newer)", oldestOutput.Sub(newestInput).Seconds())
		return true, nil
	}

	return false, nil
}

func (r *Runner) runTask(ctx context.Context, task *Task, canSkip bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done, seen := r.runTasks[task.Short]
	if seen {
		if done {
			log(ctx).Debug().Msgf("task %s already run", task.Short)
			return nil
		}

		// Resolve catches static cycles; this guards inline task refs that
		// only become visible during execution.
		return &CycleError{Stack: []string{task.Short, task.Short}}
	}

	r.runTasks[task.Short] = false

	if canSkip && !r.Force {
		skip, err := r.shouldSkip(ctx, task)
		if err != nil {
			return err
		}

		if skip {
			r.runTasks[task.Short] = true
			return nil
		}
	}

	if err := r.runCmds(ctx, task); err != nil {
		return err
	}

	r.runTasks[task.Short] = true
	return nil
}

func (r *Runner) shouldSkip(ctx context.Context, task *Task) (bool, error) {
	if len(task.SkipIfExists) > 0 {
		skipList, err := r.resolvePatternList(task.Base, task.SkipIfExists)
		if err != nil {
			return false, eris.Wrap(err, "failed to resolve skip_if_exists list")
		}

		found := 0
		for _, item := range skipList {
			_, err := os.Stat(item)
			if err == nil {
				found++
			} else if !eris.Is(err, os.ErrNotExist) {
				return false, eris.Wrapf(err, "failed to check %s", item)
			}
		}

		if found > 0 && found == len(skipList) {
			log(ctx).Info().
				Str("task", task.Short).
				Msg("skipped because all skip files exist")
			return true, nil
		}
	}

	return r.upToDate(ctx, task)
}

func (r *Runner) runCmds(ctx context.Context, task *Task) error {
	shell, err := interp.New(
		interp.Dir(task.Base),
		interp.Env(getTaskEnv(task)),
		interp.ExecHandlers(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, r.stdout, r.stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize shell")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for _, item := range task.Cmds {
		if subTask := item.TaskRef(); subTask != nil {
			if err := r.runTask(ctx, subTask, true); err != nil {
				return err
			}

			if err = ctx.Err(); err != nil {
				return err
			}
			continue
		}

		stmts, err := item.ShellStmts(parser)
		if err != nil {
			return eris.Wrap(err, "failed to parse shell script")
		}

		for _, stmt := range stmts {
			strBuffer.Reset()
			if err = printer.Print(&strBuffer, stmt); err != nil {
				return eris.Wrap(err, "failed to print command")
			}

			log(ctx).Info().
				Str("task", task.Short).
				Bool("command", true).
				Msg(strBuffer.String())

			if r.DryRun {
				continue
			}

			err = shell.Run(ctx, stmt)
			if err != nil {
				if status, ok := interp.IsExitStatus(err); ok {
					return &ActionError{
						TaskName: task.Short,
						Cmd:      strBuffer.String(),
						Status:   int(status),
					}
				}
				return eris.Wrapf(err, "task %s: command %q", task.Short, strBuffer.String())
			}

			if shell.Exited() {
				return nil
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
